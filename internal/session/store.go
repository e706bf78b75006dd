package session

import (
	"context"
	"slices"
	"time"
)

// Store persists sessions. ConditionalUpdate is the only primitive callers may
// rely on for race safety: it applies a patch only if the stored status still
// equals expected, and reports ok=false when it does not.
type Store interface {
	FindOne(ctx context.Context, f Filter) (*Session, error)
	FindByID(ctx context.Context, id string) (*Session, error)
	Insert(ctx context.Context, s *Session) error
	ConditionalUpdate(ctx context.Context, id string, expected Status, p Patch) (*Session, bool, error)
	UpdateMany(ctx context.Context, f Filter, p Patch) (int, error)
}

// CodeMatch selects sessions by join code presence.
type CodeMatch int

const (
	CodeAny CodeMatch = iota
	CodeNone
	CodeExact
)

// Filter narrows a lookup. Zero values mean "any".
type Filter struct {
	Statuses       []Status
	NotStatus      Status
	Mode           Mode
	Code           CodeMatch
	JoinCode       string
	Player1        string
	ExcludePlayer1 string
	CreatedBefore  time.Time
}

// Matches reports whether s satisfies every populated field of f.
func (f Filter) Matches(s *Session) bool {
	if s == nil {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, s.Status) {
		return false
	}
	if f.NotStatus != "" && s.Status == f.NotStatus {
		return false
	}
	if f.Mode != "" && s.Mode != f.Mode {
		return false
	}
	switch f.Code {
	case CodeNone:
		if s.JoinCode != "" {
			return false
		}
	case CodeExact:
		if s.JoinCode == "" || s.JoinCode != f.JoinCode {
			return false
		}
	}
	if f.Player1 != "" && s.Player1.Name != f.Player1 {
		return false
	}
	if f.ExcludePlayer1 != "" && s.Player1.Name == f.ExcludePlayer1 {
		return false
	}
	if !f.CreatedBefore.IsZero() && s.CreatedAt.After(f.CreatedBefore) {
		return false
	}
	return true
}

// Append adds one guess row to a slot.
type Append struct {
	Slot     SlotID
	Guess    string
	Feedback []LetterState
}

// Patch is a partial update. Empty fields are left unchanged.
type Patch struct {
	Status  Status
	Player2 string
	Winner  string
	Append  *Append
	// MaxRows rejects an Append once the slot already holds this many rows.
	MaxRows int
}

// Apply mutates s in place and validates the result.
func (p Patch) Apply(s *Session, now time.Time) error {
	target := s.Status
	if p.Status != "" {
		target = p.Status
	}
	if err := checkTransition(s.Status, target); err != nil {
		return err
	}
	if p.Player2 != "" {
		if s.Player2.Name != "" && s.Player2.Name != p.Player2 {
			return ErrSlotTaken
		}
		s.Player2.Name = p.Player2
	}
	if a := p.Append; a != nil {
		sl := s.Slot(a.Slot)
		if p.MaxRows > 0 && len(sl.Guesses) >= p.MaxRows {
			return ErrRowLimit
		}
		sl.Guesses = append(sl.Guesses, a.Guess)
		sl.Feedback = append(sl.Feedback, append([]LetterState(nil), a.Feedback...))
	}
	if p.Winner != "" {
		s.Winner = p.Winner
	}
	s.Status = target
	s.UpdatedAt = now
	return s.Validate()
}

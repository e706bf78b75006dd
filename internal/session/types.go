package session

import (
	"fmt"
	"time"
)

// Status represents the lifecycle of a game session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStarted   Status = "started"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

// Mode is fixed at creation.
type Mode string

const (
	ModeSolo   Mode = "solo"
	ModeOnline Mode = "online"
)

// LetterState is the per-letter feedback symbol for one guessed character.
type LetterState string

const (
	LetterCorrect LetterState = "correct"
	LetterPresent LetterState = "present"
	LetterAbsent  LetterState = "absent"
)

// SlotID addresses one of the two player slots.
type SlotID int

const (
	Player1 SlotID = 1
	Player2 SlotID = 2
)

// Slot is the per-player portion of a session. Guesses[i] and Feedback[i]
// always correspond.
type Slot struct {
	Name     string          `json:"name"`
	Guesses  []string        `json:"guesses"`
	Feedback [][]LetterState `json:"feedback"`
}

// Session is the persisted game record.
type Session struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	Mode       Mode      `json:"mode"`
	SecretWord string    `json:"secret_word"`
	Player1    Slot      `json:"player1"`
	Player2    Slot      `json:"player2"`
	Winner     string    `json:"winner,omitempty"`
	JoinCode   string    `json:"join_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// New builds a fresh session. Solo sessions start immediately; online ones wait
// for a second player.
func New(id string, mode Mode, secret, player1, joinCode string, now time.Time) *Session {
	status := StatusPending
	if mode == ModeSolo {
		status = StatusStarted
	}
	return &Session{
		ID:         id,
		Status:     status,
		Mode:       mode,
		SecretWord: secret,
		Player1:    Slot{Name: player1, Guesses: []string{}, Feedback: [][]LetterState{}},
		Player2:    Slot{Guesses: []string{}, Feedback: [][]LetterState{}},
		JoinCode:   joinCode,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Slot returns a pointer to the requested slot.
func (s *Session) Slot(id SlotID) *Slot {
	if id == Player2 {
		return &s.Player2
	}
	return &s.Player1
}

// SlotOf resolves the slot owned by name. Empty names never match.
func (s *Session) SlotOf(name string) (SlotID, bool) {
	if name == "" {
		return 0, false
	}
	switch name {
	case s.Player1.Name:
		return Player1, true
	case s.Player2.Name:
		return Player2, true
	}
	return 0, false
}

// Opponent returns the slot facing id.
func Opponent(id SlotID) SlotID {
	if id == Player1 {
		return Player2
	}
	return Player1
}

// IsCodeSession reports whether the session pairs by join code.
func (s *Session) IsCodeSession() bool { return s.JoinCode != "" }

// Clone returns a deep copy so callers never share slices with a store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Player1 = s.Player1.clone()
	c.Player2 = s.Player2.clone()
	return &c
}

func (sl Slot) clone() Slot {
	out := Slot{Name: sl.Name, Guesses: append([]string{}, sl.Guesses...), Feedback: make([][]LetterState, len(sl.Feedback))}
	for i, row := range sl.Feedback {
		out.Feedback[i] = append([]LetterState(nil), row...)
	}
	return out
}

// Validate checks the record invariants that must hold at every write.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvariant)
	}
	if (s.Winner != "") != (s.Status == StatusFinished) {
		return fmt.Errorf("%w: winner %q with status %s", ErrInvariant, s.Winner, s.Status)
	}
	if s.Mode == ModeSolo && s.Player2.Name != "" {
		return fmt.Errorf("%w: solo session with second player", ErrInvariant)
	}
	for _, id := range []SlotID{Player1, Player2} {
		sl := s.Slot(id)
		if len(sl.Guesses) != len(sl.Feedback) {
			return fmt.Errorf("%w: slot %d has %d guesses and %d feedback rows", ErrInvariant, id, len(sl.Guesses), len(sl.Feedback))
		}
		for i, g := range sl.Guesses {
			if len(g) != len(s.SecretWord) || len(sl.Feedback[i]) != len(g) {
				return fmt.Errorf("%w: slot %d row %d length mismatch", ErrInvariant, id, i)
			}
		}
	}
	return nil
}

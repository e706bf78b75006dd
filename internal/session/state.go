package session

import "fmt"

// Errors
var (
	ErrNotFound          = errf("session not found")
	ErrIllegalTransition = errf("illegal session transition")
	ErrInvariant         = errf("session invariant violated")
	ErrSlotTaken         = errf("player slot already taken")
	ErrRowLimit          = errf("slot row limit reached")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

var allStatuses = []Status{StatusPending, StatusStarted, StatusFinished, StatusCancelled}

var transitions = map[Status][]Status{
	StatusPending: {StatusStarted, StatusCancelled},
	StatusStarted: {StatusFinished},
}

// IsTerminal reports whether no further mutation is allowed.
func (s Status) IsTerminal() bool { return s == StatusFinished || s == StatusCancelled }

// IsActive reports whether a session still holds its join code for lookups.
func (s Status) IsActive() bool { return s == StatusPending || s == StatusStarted }

// ActiveStatuses lists the statuses for which IsActive holds.
func ActiveStatuses() []Status {
	out := make([]Status, 0, len(allStatuses))
	for _, st := range allStatuses {
		if st.IsActive() {
			out = append(out, st)
		}
	}
	return out
}

// CanTransition reports whether from → to is allowed. A same-status write is
// allowed only for non-terminal states.
func CanTransition(from, to Status) bool {
	if from == to {
		return !from.IsTerminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

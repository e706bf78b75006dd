package match

import (
	"context"
	"errors"

	"github.com/park285/wordle-duel/internal/session"
)

// Kind classifies failures so transports can map them to status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidState
	KindUnauthorized
	KindInvalidInput
	KindCapacity
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidInput:
		return "invalid_input"
	case KindCapacity:
		return "capacity"
	case KindTimeout:
		return "timeout"
	}
	return "internal"
}

// Error is a domain failure. Code is a stable key for message catalogs.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newErr(kind Kind, code, msg string) *Error { return &Error{Kind: kind, Code: code, msg: msg} }

// Errors
var (
	ErrGameNotFound   = newErr(KindNotFound, "game_not_found", "game not found")
	ErrCodeNotFound   = newErr(KindNotFound, "code_not_found", "cannot find a game with that code")
	ErrNotOngoing     = newErr(KindInvalidState, "not_ongoing", "the game is not currently ongoing")
	ErrNoGuessesLeft  = newErr(KindInvalidState, "no_guesses_left", "no guesses left for this player")
	ErrWordleWithheld = newErr(KindInvalidState, "wordle_withheld", "the word cannot be revealed yet")
	ErrNotParticipant = newErr(KindUnauthorized, "not_participant", "that player does not belong to this game")
	ErrInvalidWord    = newErr(KindInvalidInput, "invalid_word", "the entered word is not valid")
	ErrInvalidArgs    = newErr(KindInvalidInput, "invalid_args", "invalid arguments")
	ErrGameFull       = newErr(KindCapacity, "game_full", "the game already has maximum allowed players")
	ErrJoinTimeout    = newErr(KindTimeout, "join_timeout", "couldn't find a game")
)

// KindOf maps any error returned by the engine to its Kind.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, session.ErrIllegalTransition):
		return KindInvalidState
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}
	return KindInternal
}

// CodeOf returns the catalog key for err, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	switch {
	case errors.Is(err, session.ErrIllegalTransition):
		return "illegal_transition"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "internal"
}

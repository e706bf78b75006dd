package match

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/wordle-duel/internal/obslog"
	"github.com/park285/wordle-duel/internal/session"
	"github.com/park285/wordle-duel/internal/words"
)

// GuessResult is the outcome of one submitted row.
type GuessResult struct {
	RowResponse []session.LetterState `json:"rowResponse"`
	Status      session.Status        `json:"status"`
}

// SubmitGuess validates and records a guess for playerName. The row, its
// feedback and, on a full match, the finish are written in one conditional
// update against Started.
func (m *Manager) SubmitGuess(ctx context.Context, gameID, playerName, word string) (*GuessResult, error) {
	s, err := m.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if s.Status != session.StatusStarted {
		m.metrics.Guess("not_ongoing")
		return nil, ErrNotOngoing
	}
	word = strings.ToUpper(strings.TrimSpace(word))
	if len(word) != len(s.SecretWord) {
		m.metrics.Guess("invalid")
		return nil, ErrInvalidWord
	}
	valid, err := m.oracle.IsValidWord(ctx, word)
	if err != nil {
		return nil, fmt.Errorf("validate word: %w", err)
	}
	if !valid {
		m.metrics.Guess("invalid")
		return nil, ErrInvalidWord
	}
	slot, ok := s.SlotOf(strings.TrimSpace(playerName))
	if !ok {
		return nil, ErrNotParticipant
	}
	playerName = s.Slot(slot).Name
	if len(s.Slot(slot).Guesses) >= m.opts.MaxGuesses {
		m.metrics.Guess("exhausted")
		return nil, ErrNoGuessesLeft
	}

	fb := m.oracle.Score(s.SecretWord, word)
	patch := session.Patch{
		Append:  &session.Append{Slot: slot, Guess: word, Feedback: fb},
		MaxRows: m.opts.MaxGuesses,
	}
	if words.Solved(fb) {
		patch.Status = session.StatusFinished
		patch.Winner = playerName
	}
	updated, ok, err := m.store.ConditionalUpdate(ctx, s.ID, session.StatusStarted, patch)
	switch {
	case errors.Is(err, session.ErrRowLimit):
		m.metrics.Guess("exhausted")
		return nil, ErrNoGuessesLeft
	case errors.Is(err, session.ErrNotFound):
		return nil, ErrGameNotFound
	case err != nil:
		return nil, fmt.Errorf("record guess: %w", err)
	case !ok:
		m.metrics.Guess("not_ongoing")
		return nil, ErrNotOngoing
	}

	m.metrics.Guess("accepted")
	obslog.L().Info("guess_recorded",
		zap.String("game_id", updated.ID),
		zap.String("player", playerName),
		zap.Int("row", len(updated.Slot(slot).Guesses)),
		zap.String("status", string(updated.Status)),
	)
	if updated.Status == session.StatusFinished {
		m.metrics.Finished(string(updated.Status))
		obslog.L().Info("match_finished", zap.String("game_id", updated.ID), zap.String("winner", updated.Winner), zap.String("mode", string(updated.Mode)))
		m.persistIfFinal(ctx, updated)
	}
	return &GuessResult{RowResponse: fb, Status: updated.Status}, nil
}

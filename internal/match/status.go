package match

import (
	"context"
	"errors"

	"github.com/park285/wordle-duel/internal/session"
)

// PlayerStatus is a player's own progress. Wordle is set only for the winner of
// a finished session.
type PlayerStatus struct {
	GameStatus     session.Status          `json:"gameStatus"`
	PlayerStatuses [][]session.LetterState `json:"playerStatuses"`
	Wordle         string                  `json:"wordle"`
}

func (m *Manager) PlayerStatus(ctx context.Context, gameID, playerID string) (*PlayerStatus, error) {
	s, err := m.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	id, ok := s.SlotOf(playerID)
	if !ok {
		return nil, ErrNotParticipant
	}
	out := &PlayerStatus{
		GameStatus:     s.Status,
		PlayerStatuses: s.Slot(id).Feedback,
	}
	if s.Status == session.StatusFinished && s.Winner == playerID {
		out.Wordle = s.SecretWord
	}
	return out, nil
}

// CanRetrieveWordle reports whether the secret of a solo session may be
// revealed: the solo player has used exactly the full set of guesses.
// Unknown sessions report false.
func (m *Manager) CanRetrieveWordle(ctx context.Context, gameID string) (bool, error) {
	s, err := m.load(ctx, gameID)
	if errors.Is(err, ErrGameNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.revealable(s), nil
}

func (m *Manager) revealable(s *session.Session) bool {
	return s.Mode == session.ModeSolo && len(s.Player1.Guesses) == m.opts.MaxGuesses
}

// Wordle returns the secret of a revealable solo session.
func (m *Manager) Wordle(ctx context.Context, gameID string) (string, error) {
	s, err := m.load(ctx, gameID)
	if err != nil {
		return "", err
	}
	if !m.revealable(s) {
		return "", ErrWordleWithheld
	}
	return s.SecretWord, nil
}

// CheckOpponentJoined is a single poll for the creator of an online session.
// It returns the paired view once started and a pending view otherwise.
func (m *Manager) CheckOpponentJoined(ctx context.Context, gameID, playerID string) (*GameView, error) {
	s, err := m.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if s.Status == session.StatusStarted && s.Mode == session.ModeOnline && playerID != "" && s.Player1.Name == playerID {
		return reconnectView(s, playerID), nil
	}
	return pendingView(s), nil
}

// Board is a player's own rows, used for share cards.
type Board struct {
	GameID   string
	Player   string
	Mode     session.Mode
	Status   session.Status
	Rows     [][]Tile
	Solved   bool
	MaxRows  int
	WordSize int
}

func (m *Manager) PlayerBoard(ctx context.Context, gameID, playerID string) (*Board, error) {
	s, err := m.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	id, ok := s.SlotOf(playerID)
	if !ok {
		return nil, ErrNotParticipant
	}
	sl := s.Slot(id)
	return &Board{
		GameID:   s.ID,
		Player:   sl.Name,
		Mode:     s.Mode,
		Status:   s.Status,
		Rows:     mergeRows(sl.Guesses, sl.Feedback),
		Solved:   s.Winner == sl.Name,
		MaxRows:  m.opts.MaxGuesses,
		WordSize: len(s.SecretWord),
	}, nil
}

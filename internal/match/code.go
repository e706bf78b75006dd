package match

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/wordle-duel/internal/obslog"
	"github.com/park285/wordle-duel/internal/session"
)

const codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// randomCode returns n uppercase letters.
func randomCode(n int) (string, error) {
	b := make([]byte, n)
	alphabet := big.NewInt(int64(len(codeLetters)))
	for i := range b {
		k, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return "", err
		}
		b[i] = codeLetters[k.Int64()]
	}
	return string(b), nil
}

func normalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

func activeCodeFilter(code string) session.Filter {
	return session.Filter{
		Statuses: session.ActiveStatuses(),
		Code:     session.CodeExact,
		JoinCode: code,
	}
}

// GenerateCode opens a code session with userID as player1.
func (m *Manager) GenerateCode(ctx context.Context, userID string) (*GameView, error) {
	userID, err := validUser(userID)
	if err != nil {
		return nil, err
	}
	for i := 0; i < m.opts.CodeAttempts; i++ {
		code, err := randomCode(m.opts.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("generate join code: %w", err)
		}
		taken, err := m.store.FindOne(ctx, activeCodeFilter(code))
		if err != nil {
			return nil, fmt.Errorf("check join code: %w", err)
		}
		if taken != nil {
			obslog.L().Debug("match_code_collision", zap.String("code", code), zap.Int("attempt", i+1))
			continue
		}
		s, err := m.create(ctx, session.ModeOnline, userID, code)
		if err != nil {
			return nil, err
		}
		return pendingView(s), nil
	}
	return nil, fmt.Errorf("failed to allocate join code after %d attempts", m.opts.CodeAttempts)
}

// JoinFromCode joins a code session. The creator waits, without a deadline,
// until a second player arrives; ctx cancellation ends the wait and leaves the
// session pending for reconnection.
func (m *Manager) JoinFromCode(ctx context.Context, userID, code string) (*GameView, error) {
	return m.joinFromCode(ctx, userID, code, true)
}

// JoinFromCodeNoWait is JoinFromCode without the creator's wait: the creator
// gets a pending view and polls at will.
func (m *Manager) JoinFromCodeNoWait(ctx context.Context, userID, code string) (*GameView, error) {
	return m.joinFromCode(ctx, userID, code, false)
}

func (m *Manager) joinFromCode(ctx context.Context, userID, code string, wait bool) (*GameView, error) {
	userID, err := validUser(userID)
	if err != nil {
		return nil, err
	}
	code = normalizeCode(code)
	if code == "" {
		return nil, ErrInvalidArgs
	}
	for attempt := 0; attempt < m.opts.MaxClaimAttempts; attempt++ {
		s, err := m.store.FindOne(ctx, activeCodeFilter(code))
		if err != nil {
			return nil, fmt.Errorf("find code session: %w", err)
		}
		if s == nil {
			return nil, ErrCodeNotFound
		}
		_, member := s.SlotOf(userID)
		if s.Player1.Name != "" && s.Player2.Name != "" && !member {
			return nil, ErrGameFull
		}
		if s.Status == session.StatusStarted {
			obslog.L().Info("match_code_reconnect", zap.String("game_id", s.ID), zap.String("user_id", userID))
			return reconnectView(s, userID), nil
		}
		if s.Player1.Name == userID && s.Player2.Name == "" {
			if !wait {
				return pendingView(s), nil
			}
			return m.waitForCodeOpponent(ctx, s, userID)
		}
		claimed, ok, err := m.store.ConditionalUpdate(ctx, s.ID, session.StatusPending, session.Patch{
			Status:  session.StatusStarted,
			Player2: userID,
		})
		if errors.Is(err, session.ErrSlotTaken) {
			return nil, ErrGameFull
		}
		if err != nil {
			return nil, fmt.Errorf("claim code session %s: %w", s.ID, err)
		}
		if !ok {
			m.metrics.RaceLost()
			continue
		}
		m.metrics.Claimed("code")
		obslog.L().Info("match_code_claim", zap.String("game_id", claimed.ID), zap.String("code", code), zap.String("player2", userID))
		return pairedView(claimed, userID), nil
	}
	obslog.L().Warn("match_code_claim_exhausted", zap.String("code", code), zap.String("user_id", userID), zap.Int("attempts", m.opts.MaxClaimAttempts))
	return nil, fmt.Errorf("claim code session %s: lost %d consecutive races", code, m.opts.MaxClaimAttempts)
}

func (m *Manager) waitForCodeOpponent(ctx context.Context, s *session.Session, userID string) (*GameView, error) {
	done := m.metrics.WaiterStarted()
	defer done()
	obslog.L().Info("match_code_wait", zap.String("game_id", s.ID), zap.String("code", s.JoinCode), zap.String("user_id", userID))
	started, err := m.waitFor(ctx, s.ID, isStarted)
	if err != nil {
		if ctx.Err() != nil {
			obslog.L().Info("match_code_wait_abandoned", zap.String("game_id", s.ID), zap.String("user_id", userID))
		}
		return nil, err
	}
	return pairedView(started, userID), nil
}

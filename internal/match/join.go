package match

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/wordle-duel/internal/obslog"
	"github.com/park285/wordle-duel/internal/session"
)

func queueFilter(userID string) session.Filter {
	return session.Filter{
		Statuses:       []session.Status{session.StatusPending},
		Mode:           session.ModeOnline,
		Code:           session.CodeNone,
		ExcludePlayer1: userID,
	}
}

func ownQueueFilter(userID string) session.Filter {
	return session.Filter{
		Statuses: []session.Status{session.StatusPending},
		Mode:     session.ModeOnline,
		Code:     session.CodeNone,
		Player1:  userID,
	}
}

// openQueueSession returns the caller's own waiting queue session, creating
// one only when none exists so retries land on the same game.
func (m *Manager) openQueueSession(ctx context.Context, userID string) (*session.Session, error) {
	own, err := m.store.FindOne(ctx, ownQueueFilter(userID))
	if err != nil {
		return nil, fmt.Errorf("find own queue session: %w", err)
	}
	if own != nil {
		obslog.L().Debug("match_queue_resume", zap.String("game_id", own.ID), zap.String("user_id", userID))
		return own, nil
	}
	return m.create(ctx, session.ModeOnline, userID, "")
}

// claimQueue binds userID into the oldest waiting queue session. It returns
// nil when nothing could be claimed within MaxClaimAttempts.
func (m *Manager) claimQueue(ctx context.Context, userID string) (*session.Session, error) {
	for attempt := 0; attempt < m.opts.MaxClaimAttempts; attempt++ {
		cand, err := m.store.FindOne(ctx, queueFilter(userID))
		if err != nil {
			return nil, fmt.Errorf("find queue session: %w", err)
		}
		if cand == nil {
			return nil, nil
		}
		s, ok, err := m.store.ConditionalUpdate(ctx, cand.ID, session.StatusPending, session.Patch{
			Status:  session.StatusStarted,
			Player2: userID,
		})
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrSlotTaken) {
			m.metrics.RaceLost()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("claim queue session %s: %w", cand.ID, err)
		}
		if !ok {
			m.metrics.RaceLost()
			obslog.L().Debug("match_queue_race_lost", zap.String("game_id", cand.ID), zap.String("user_id", userID), zap.Int("attempt", attempt+1))
			continue
		}
		m.metrics.Claimed("queue")
		obslog.L().Info("match_queue_claim", zap.String("game_id", s.ID), zap.String("player1", s.Player1.Name), zap.String("player2", userID))
		return s, nil
	}
	return nil, nil
}

// JoinOrCreate pairs userID with the oldest waiting player, or returns the
// caller's queue session as pending without waiting. A retry while that
// session is still waiting returns the same game.
func (m *Manager) JoinOrCreate(ctx context.Context, userID string) (*GameView, error) {
	userID, err := validUser(userID)
	if err != nil {
		return nil, err
	}
	if s, err := m.claimQueue(ctx, userID); err != nil || s != nil {
		if err != nil {
			return nil, err
		}
		return pairedView(s, userID), nil
	}
	s, err := m.openQueueSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	return pendingView(s), nil
}

// JoinGame pairs userID with a waiting player, or opens a queue session and
// blocks until someone claims it. When the wait ends without an opponent the
// session is cancelled.
func (m *Manager) JoinGame(ctx context.Context, userID string) (*GameView, error) {
	userID, err := validUser(userID)
	if err != nil {
		return nil, err
	}
	if s, err := m.claimQueue(ctx, userID); err != nil || s != nil {
		if err != nil {
			return nil, err
		}
		return pairedView(s, userID), nil
	}
	s, err := m.openQueueSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	done := m.metrics.WaiterStarted()
	wctx, cancel := context.WithTimeout(ctx, m.opts.JoinTimeout)
	started, werr := m.waitFor(wctx, s.ID, isStarted)
	cancel()
	done()
	if werr == nil {
		return pairedView(started, userID), nil
	}
	return m.abandonQueueSession(ctx, s.ID, userID, werr)
}

// abandonQueueSession cancels a queue session whose wait failed. If an
// opponent claimed it in the meantime the paired view wins over the failure,
// unless the caller itself went away.
func (m *Manager) abandonQueueSession(ctx context.Context, id, userID string, cause error) (*GameView, error) {
	cctx, cancel := detached(ctx)
	defer cancel()
	_, ok, err := m.store.ConditionalUpdate(cctx, id, session.StatusPending, session.Patch{Status: session.StatusCancelled})
	if err != nil {
		obslog.L().Error("match_join_compensate_error", zap.String("game_id", id), zap.Error(err))
		return nil, fmt.Errorf("cancel queue session %s: %w", id, err)
	}
	if ctx.Err() != nil {
		obslog.L().Info("match_join_abandoned", zap.String("game_id", id), zap.String("user_id", userID), zap.Bool("cancelled", ok))
		return nil, ctx.Err()
	}
	if !ok {
		cur, lerr := m.store.FindByID(cctx, id)
		if lerr == nil && cur != nil && cur.Status == session.StatusStarted {
			obslog.L().Info("match_join_late_claim", zap.String("game_id", id), zap.String("user_id", userID))
			return pairedView(cur, userID), nil
		}
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		m.metrics.JoinTimedOut()
		obslog.L().Info("match_join_timeout", zap.String("game_id", id), zap.String("user_id", userID), zap.Duration("timeout", m.opts.JoinTimeout))
		return nil, ErrJoinTimeout
	}
	obslog.L().Warn("match_join_wait_error", zap.String("game_id", id), zap.String("user_id", userID), zap.Error(cause))
	return nil, cause
}

// CreateSolo opens a single-player session that starts immediately.
func (m *Manager) CreateSolo(ctx context.Context, userID string) (*GameView, error) {
	userID, err := validUser(userID)
	if err != nil {
		return nil, err
	}
	s, err := m.create(ctx, session.ModeSolo, userID, "")
	if err != nil {
		return nil, err
	}
	return pairedView(s, userID), nil
}

package match

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/wordle-duel/internal/obslog"
	"github.com/park285/wordle-duel/internal/session"
)

// SweepStale cancels pending sessions created at or before now minus
// StaleAfter and returns how many were cancelled.
func (m *Manager) SweepStale(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-m.opts.StaleAfter)
	n, err := m.store.UpdateMany(ctx, session.Filter{
		Statuses:      []session.Status{session.StatusPending},
		CreatedBefore: cutoff,
	}, session.Patch{Status: session.StatusCancelled})
	if err != nil {
		obslog.L().Error("sweep_stale_error", zap.Int("cancelled", n), zap.Error(err))
		return n, fmt.Errorf("sweep stale sessions: %w", err)
	}
	m.metrics.Swept(n)
	obslog.L().Info("sweep_stale", zap.Int("cancelled", n), zap.Time("cutoff", cutoff))
	return n, nil
}

// RunSweeper calls SweepStale every interval until ctx ends.
func (m *Manager) RunSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = m.SweepStale(ctx)
		}
	}
}

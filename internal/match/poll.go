package match

import (
	"context"
	"fmt"
	"time"

	"github.com/park285/wordle-duel/internal/session"
)

// waitFor re-reads the session every poll interval until cond holds or ctx
// ends. A session that turns terminal without satisfying cond ends the wait
// with ErrNotOngoing.
func (m *Manager) waitFor(ctx context.Context, id string, cond func(*session.Session) bool) (*session.Session, error) {
	t := time.NewTicker(m.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
		s, err := m.store.FindByID(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("poll session %s: %w", id, err)
		}
		if s == nil {
			return nil, ErrGameNotFound
		}
		if cond(s) {
			return s, nil
		}
		if s.Status.IsTerminal() {
			return nil, ErrNotOngoing
		}
	}
}

func isStarted(s *session.Session) bool { return s.Status == session.StatusStarted }

package match

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/wordle-duel/internal/metrics"
	"github.com/park285/wordle-duel/internal/obslog"
	"github.com/park285/wordle-duel/internal/session"
)

// WordOracle generates secrets, validates guesses and scores them.
type WordOracle interface {
	GenerateSecret() string
	IsValidWord(ctx context.Context, word string) (bool, error)
	Score(secret, guess string) []session.LetterState
}

// ResultSink receives sessions that reached Finished.
type ResultSink interface {
	SaveResult(ctx context.Context, s *session.Session) error
}

type Options struct {
	PollInterval     time.Duration
	JoinTimeout      time.Duration
	StaleAfter       time.Duration
	CodeLength       int
	CodeAttempts     int
	MaxClaimAttempts int
	MaxGuesses       int
}

func DefaultOptions() Options {
	return Options{
		PollInterval:     time.Second,
		JoinTimeout:      30 * time.Second,
		StaleAfter:       5 * 24 * time.Hour,
		CodeLength:       5,
		CodeAttempts:     5,
		MaxClaimAttempts: 8,
		MaxGuesses:       6,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = d.JoinTimeout
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = d.StaleAfter
	}
	if o.CodeLength <= 0 {
		o.CodeLength = d.CodeLength
	}
	if o.CodeAttempts <= 0 {
		o.CodeAttempts = d.CodeAttempts
	}
	if o.MaxClaimAttempts <= 0 {
		o.MaxClaimAttempts = d.MaxClaimAttempts
	}
	if o.MaxGuesses <= 0 {
		o.MaxGuesses = d.MaxGuesses
	}
	return o
}

// compensationTimeout bounds cleanup writes that run after the caller left.
const compensationTimeout = 5 * time.Second

// Manager runs matchmaking and the session lifecycle on top of a Store.
// It holds no session state of its own.
type Manager struct {
	store   session.Store
	oracle  WordOracle
	opts    Options
	metrics *metrics.Metrics
	sink    ResultSink
	now     func() time.Time
	newID   func() string
}

func NewManager(store session.Store, oracle WordOracle, opts Options) *Manager {
	return &Manager{
		store:  store,
		oracle: oracle,
		opts:   opts.withDefaults(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// AttachArchive wires a sink for finished sessions.
func (m *Manager) AttachArchive(sink ResultSink) {
	if m != nil {
		m.sink = sink
	}
}

// AttachMetrics wires prometheus collectors.
func (m *Manager) AttachMetrics(mt *metrics.Metrics) {
	if m != nil {
		m.metrics = mt
	}
}

func (m *Manager) Options() Options { return m.opts }

func (m *Manager) load(ctx context.Context, id string) (*session.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidArgs
	}
	s, err := m.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if s == nil {
		return nil, ErrGameNotFound
	}
	return s, nil
}

func (m *Manager) create(ctx context.Context, mode session.Mode, player1, code string) (*session.Session, error) {
	s := session.New(m.newID(), mode, m.oracle.GenerateSecret(), player1, code, m.now())
	if err := m.store.Insert(ctx, s); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	kind := "queue"
	switch {
	case mode == session.ModeSolo:
		kind = "solo"
	case code != "":
		kind = "code"
	}
	m.metrics.SessionCreated(string(mode), kind)
	obslog.L().Info("match_session_created",
		zap.String("game_id", s.ID),
		zap.String("mode", string(mode)),
		zap.String("kind", kind),
		zap.String("player1", player1),
	)
	return s, nil
}

// persistIfFinal hands finished sessions to the archive, if one is attached.
func (m *Manager) persistIfFinal(ctx context.Context, s *session.Session) {
	if m.sink == nil || s == nil || s.Status != session.StatusFinished {
		return
	}
	if err := m.sink.SaveResult(ctx, s); err != nil {
		obslog.L().Error("match_result_persist_error", zap.String("game_id", s.ID), zap.Error(err))
		return
	}
	obslog.L().Info("match_result_persist", zap.String("game_id", s.ID), zap.String("winner", s.Winner))
}

func validUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrInvalidArgs
	}
	return userID, nil
}

// detached returns a context that survives caller cancellation, for
// compensating writes.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
}

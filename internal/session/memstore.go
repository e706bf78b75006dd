package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrDuplicate is returned when inserting an existing id.
var ErrDuplicate = errors.New("session already exists")

// MemoryStore keeps sessions in process memory. Used when no Redis is configured
// and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session), now: time.Now}
}

func (m *MemoryStore) Insert(ctx context.Context, s *Session) error {
	if s == nil {
		return fmt.Errorf("%w: nil session", ErrInvariant)
	}
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return ErrDuplicate
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

// FindOne returns the oldest matching session, or nil.
func (m *MemoryStore) FindOne(ctx context.Context, f Filter) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matches := m.matching(f)
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0].Clone(), nil
}

func (m *MemoryStore) ConditionalUpdate(ctx context.Context, id string, expected Status, p Patch) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conditionalUpdateLocked(id, expected, p)
}

func (m *MemoryStore) conditionalUpdateLocked(id string, expected Status, p Patch) (*Session, bool, error) {
	cur, ok := m.sessions[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if cur.Status != expected {
		return nil, false, nil
	}
	next := cur.Clone()
	if err := p.Apply(next, m.now()); err != nil {
		return nil, false, err
	}
	m.sessions[id] = next
	return next.Clone(), true, nil
}

func (m *MemoryStore) UpdateMany(ctx context.Context, f Filter, p Patch) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.matching(f) {
		_, ok, err := m.conditionalUpdateLocked(s.ID, s.Status, p)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// matching must be called with mu held.
func (m *MemoryStore) matching(f Filter) []*Session {
	var out []*Session
	for _, s := range m.sessions {
		if f.Matches(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"companiond/internal/types"
)

// MemoryStore keeps sessions in process memory. Each session carries its own
// lock so appends on one conversation never block another; the store-level
// lock only guards the map itself.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memSession
}

type memSession struct {
	mu        sync.Mutex
	id        string
	createdAt time.Time
	turns     []types.Turn
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memSession)}
}

// GetOrCreate implements Store.
func (s *MemoryStore) GetOrCreate(_ context.Context, id string) (types.Session, error) {
	if id != "" {
		s.mu.RLock()
		sess, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok {
			return sess.snapshot(), nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the write lock; a concurrent caller may have created it.
	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			return sess.snapshot(), nil
		}
	} else {
		id = uuid.NewString()
	}

	sess := &memSession{id: id, createdAt: time.Now().UTC()}
	s.sessions[id] = sess
	return sess.snapshot(), nil
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, sessionID string, turn types.Turn) error {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	sess.mu.Lock()
	sess.turns = append(sess.turns, turn)
	sess.mu.Unlock()
	return nil
}

// History implements Store.
func (s *MemoryStore) History(_ context.Context, sessionID string) ([]types.Turn, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	turns := make([]types.Turn, len(sess.turns))
	copy(turns, sess.turns)
	return turns, nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(_ context.Context) (types.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.Stats{Sessions: len(s.sessions)}
	for _, sess := range s.sessions {
		sess.mu.Lock()
		stats.Turns += len(sess.turns)
		sess.mu.Unlock()
	}
	return stats, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func (m *memSession) snapshot() types.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := make([]types.Turn, len(m.turns))
	copy(turns, m.turns)
	return types.Session{ID: m.id, CreatedAt: m.createdAt, Turns: turns}
}

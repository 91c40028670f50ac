package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store holds live sessions keyed by token.
type Store interface {
	Put(s *Session)
	Get(id uuid.UUID) (*Session, error)
	Delete(id uuid.UUID)
	Len() int
}

// MemoryStore is an in-process Store with idle eviction: sessions unused
// for longer than the TTL are removed by a background janitor.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	logger   *zap.Logger
}

// NewMemoryStore creates a store that evicts sessions idle longer than ttl.
//
// Precondition: ttl must be positive.
func NewMemoryStore(ttl time.Duration, logger *zap.Logger) (*MemoryStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %v", ttl)
	}
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		logger:   logger,
	}, nil
}

// Put stores a session, replacing any session with the same token.
func (m *MemoryStore) Put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Get returns the session for a token and refreshes its idle timer.
//
// Postcondition: Returns ErrNotFound for unknown or evicted tokens.
func (m *MemoryStore) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	s.Touch()
	return s, nil
}

// Delete removes a session. Deleting an absent token is a no-op.
func (m *MemoryStore) Delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts every session idle longer than the TTL and returns how
// many were removed.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var evicted int
	for id, s := range m.sessions {
		if now.Sub(s.LastSeen()) > m.ttl {
			delete(m.sessions, id)
			evicted++
			m.logger.Info("evicted idle session",
				zap.String("session", id.String()),
				zap.Time("last_seen", s.LastSeen()))
		}
	}
	return evicted
}

// Janitor sweeps the store at the given interval until ctx is cancelled.
func (m *MemoryStore) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(now); n > 0 {
				m.logger.Debug("session sweep complete", zap.Int("evicted", n))
			}
		}
	}
}

// internal/store/memory.go
//
// In-memory implementation of the session Store.
// Sessions hold live timers and are never serialized, so memory is the only
// backend; finished rounds are persisted separately by the HTTP layer.
//
// Characteristics:
//   - Stores *game.Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Idle sessions are dropped by Prune.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/goback/internal/game"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("session not found")

// Store defines the persistence interface for player sessions.
type Store interface {
	// Save persists or replaces a session.
	Save(ctx context.Context, s *game.Session) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*game.Session, error)

	// Delete removes a session; unknown ids are ignored.
	Delete(ctx context.Context, id string) error

	// Prune removes sessions last seen before cutoff and returns their ids.
	Prune(ctx context.Context, cutoff time.Time) []string
}

type memory struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*game.Session)}
}

func (m *memory) Save(ctx context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memory) Prune(ctx context.Context, cutoff time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var gone []string
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			gone = append(gone, id)
		}
	}
	return gone
}

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lokal/internal/auth/models"
	"lokal/pkg/platform/sentinel"
)

// InMemorySessionStore keeps login sessions in memory for tests/dev.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func New() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]*models.Session)}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *session
	s.sessions[session.ID] = &clone
	return nil
}

// FindByID returns ErrNotFound for unknown ids and ErrExpired for sessions
// past their lifetime at now.
func (s *InMemorySessionStore) FindByID(_ context.Context, id string, now time.Time) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if session.IsExpired(now) {
		return nil, fmt.Errorf("session expired: %w", sentinel.ErrExpired)
	}
	clone := *session
	return &clone, nil
}

// Delete is a no-op for unknown ids.
func (s *InMemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// DeleteExpired removes sessions past their lifetime.
func (s *InMemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, session := range s.sessions {
		if session.IsExpired(now) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

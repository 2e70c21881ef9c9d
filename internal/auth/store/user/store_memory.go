package user

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"lokal/internal/auth/models"
	"lokal/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in memory for tests/dev. Username and email
// are unique case-insensitively, matching the Postgres indexes.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.User
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[uuid.UUID]*models.User)}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return fmt.Errorf("user %q: %w", user.Username, sentinel.ErrConflict)
		}
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Username, username) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

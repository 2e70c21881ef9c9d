package authorizationcode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lokal/internal/oidc/models"
	"lokal/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when the code does not exist (or was swept after expiry)
// - ErrAlreadyUsed / ErrExpired from Consume
// - nil on success

// InMemoryAuthorizationCodeStore stores authorization codes in memory for tests/dev.
type InMemoryAuthorizationCodeStore struct {
	mu        sync.Mutex
	authCodes map[string]*models.AuthorizationCode
}

// New constructs an empty in-memory auth code store.
func New() *InMemoryAuthorizationCodeStore {
	return &InMemoryAuthorizationCodeStore{
		authCodes: make(map[string]*models.AuthorizationCode),
	}
}

func (s *InMemoryAuthorizationCodeStore) Create(_ context.Context, authCode *models.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authCodes[authCode.Code]; ok {
		return fmt.Errorf("authorization code: %w", sentinel.ErrConflict)
	}
	clone := *authCode
	s.authCodes[authCode.Code] = &clone
	return nil
}

// Consume redeems a code atomically. Used codes are kept until they expire so
// replays report ErrAlreadyUsed.
func (s *InMemoryAuthorizationCodeStore) Consume(_ context.Context, code string, now time.Time) (*models.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.authCodes[code]
	if !ok {
		return nil, fmt.Errorf("authorization code not found: %w", sentinel.ErrNotFound)
	}
	if err := record.Consume(now); err != nil {
		return nil, err
	}
	clone := *record
	return &clone, nil
}

// DeleteExpiredCodes removes all authorization codes that have expired as of the given time.
func (s *InMemoryAuthorizationCodeStore) DeleteExpiredCodes(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deletedCount := 0
	for code, record := range s.authCodes {
		if record.IsExpired(now) {
			delete(s.authCodes, code)
			deletedCount++
		}
	}
	return deletedCount, nil
}

package client

import (
	"context"
	"fmt"
	"sync"

	"lokal/internal/oidc/models"
	"lokal/pkg/platform/sentinel"
)

// InMemory is the registry of OIDC clients. Clients are seeded at startup.
type InMemory struct {
	mu      sync.RWMutex
	clients map[string]*models.Client
}

func NewInMemory() *InMemory {
	return &InMemory{clients: make(map[string]*models.Client)}
}

// Create registers a client. It fails with ErrConflict if the id is taken.
func (s *InMemory) Create(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.ClientID]; ok {
		return fmt.Errorf("client %q: %w", c.ClientID, sentinel.ErrConflict)
	}
	clone := *c
	s.clients[c.ClientID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, clientID string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client %q: %w", clientID, sentinel.ErrNotFound)
	}
	clone := *c
	return &clone, nil
}

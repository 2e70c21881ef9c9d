package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"lokal/internal/auth/models"
	"lokal/pkg/platform/sentinel"
)

type SessionStoreSuite struct {
	suite.Suite
	store *InMemorySessionStore
	ctx   context.Context
	now   time.Time
}

func (s *SessionStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.now = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

func (s *SessionStoreSuite) newSession(id string, ttl time.Duration) *models.Session {
	return &models.Session{ID: id, UserID: uuid.New(), CreatedAt: s.now, ExpiresAt: s.now.Add(ttl)}
}

// TestSessionLookup tests session retrieval behavior.
func (s *SessionStoreSuite) TestSessionLookup() {
	session := s.newSession("s-1", time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, session))

	s.Run("returns stored session when found", func() {
		found, err := s.store.FindByID(s.ctx, "s-1", s.now)
		s.Require().NoError(err)
		s.Equal(session.UserID, found.UserID)
	})

	s.Run("expired session", func() {
		_, err := s.store.FindByID(s.ctx, "s-1", s.now.Add(2*time.Hour))
		s.Require().ErrorIs(err, sentinel.ErrExpired)
	})

	s.Run("unknown session", func() {
		_, err := s.store.FindByID(s.ctx, "nope", s.now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *SessionStoreSuite) TestDelete() {
	s.Require().NoError(s.store.Create(s.ctx, s.newSession("s-1", time.Hour)))
	s.Require().NoError(s.store.Delete(s.ctx, "s-1"))
	s.Require().NoError(s.store.Delete(s.ctx, "s-1"))

	_, err := s.store.FindByID(s.ctx, "s-1", s.now)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SessionStoreSuite) TestDeleteExpired() {
	s.Require().NoError(s.store.Create(s.ctx, s.newSession("short", time.Minute)))
	s.Require().NoError(s.store.Create(s.ctx, s.newSession("long", time.Hour)))

	deleted, err := s.store.DeleteExpired(s.ctx, s.now.Add(10*time.Minute))
	s.Require().NoError(err)
	s.Equal(1, deleted)
}

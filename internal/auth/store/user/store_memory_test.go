package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"lokal/internal/auth/models"
	"lokal/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
	ctx   context.Context
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func newUser(username, email string) *models.User {
	return &models.User{ID: uuid.New(), Username: username, Email: email, PasswordHash: "hash", CreatedAt: time.Now()}
}

// TestLookupBehavior tests user retrieval by ID and username.
func (s *InMemoryUserStoreSuite) TestLookupBehavior() {
	admin := newUser("Admin", "admin@test.com")
	s.Require().NoError(s.store.Create(s.ctx, admin))

	s.Run("returns user by ID when exists", func() {
		found, err := s.store.FindByID(s.ctx, admin.ID)
		s.Require().NoError(err)
		s.Equal("admin@test.com", found.Email)
	})

	s.Run("username lookup ignores case", func() {
		found, err := s.store.FindByUsername(s.ctx, "ADMIN")
		s.Require().NoError(err)
		s.Equal(admin.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown users", func() {
		_, err := s.store.FindByID(s.ctx, uuid.New())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindByUsername(s.ctx, "ghost")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryUserStoreSuite) TestUniqueness() {
	s.Require().NoError(s.store.Create(s.ctx, newUser("admin", "admin@test.com")))

	s.Run("duplicate username", func() {
		s.Require().ErrorIs(s.store.Create(s.ctx, newUser("ADMIN", "other@test.com")), sentinel.ErrConflict)
	})

	s.Run("duplicate email", func() {
		s.Require().ErrorIs(s.store.Create(s.ctx, newUser("other", "Admin@Test.com")), sentinel.ErrConflict)
	})
}

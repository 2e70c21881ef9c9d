package user

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"lokal/pkg/platform/sentinel"
)

type PostgresUserStoreSuite struct {
	suite.Suite
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *PostgresStore
	ctx   context.Context
}

func TestPostgresUserStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db, s.mock = db, mock
	s.store = NewPostgres(db)
	s.ctx = context.Background()
}

func (s *PostgresUserStoreSuite) TearDownTest() {
	s.Require().NoError(s.mock.ExpectationsWereMet())
	_ = s.db.Close()
}

func (s *PostgresUserStoreSuite) TestCreate() {
	u := newUser("admin", "admin@test.com")

	s.Run("inserts", func() {
		s.mock.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
			WithArgs(u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		s.Require().NoError(s.store.Create(s.ctx, u))
	})

	s.Run("unique violation is a conflict", func() {
		s.mock.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
			WillReturnError(&pq.Error{Code: "23505"})
		s.Require().ErrorIs(s.store.Create(s.ctx, u), sentinel.ErrConflict)
	})
}

func (s *PostgresUserStoreSuite) TestFindByUsername() {
	id := uuid.New()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Run("found", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(username) = lower($1)")).
			WithArgs("Admin").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
				AddRow(id.String(), "admin", "admin@test.com", "hash", created))

		u, err := s.store.FindByUsername(s.ctx, "Admin")
		s.Require().NoError(err)
		s.Equal(id, u.ID)
		s.Equal(created, u.CreatedAt)
	})

	s.Run("missing", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}))

		_, err := s.store.FindByID(s.ctx, uuid.New())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

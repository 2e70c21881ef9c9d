package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"lokal/internal/translation/models"
	"lokal/pkg/platform/sentinel"
)

var resourceColumns = []string{"id", "sid", "id", "lang_id", "text"}

type PostgresStoreSuite struct {
	suite.Suite
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *PostgresStore
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db, s.mock = db, mock
	s.store = NewPostgres(db)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) TearDownTest() {
	s.Require().NoError(s.mock.ExpectationsWereMet())
	_ = s.db.Close()
}

func (s *PostgresStoreSuite) TestListSids() {
	s.mock.ExpectQuery(regexp.QuoteMeta(listSidsSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"sid"}).AddRow("A").AddRow("B"))

	sids, err := s.store.Begin().ListSids(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"A", "B"}, sids)
}

func (s *PostgresStoreSuite) TestGetBySid() {
	id := uuid.New()

	s.Run("groups joined rows into one aggregate", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta("WHERE r.sid = $1")).
			WithArgs("WELCOME_MSG").
			WillReturnRows(sqlmock.NewRows(resourceColumns).
				AddRow(id.String(), "WELCOME_MSG", 1, "en-US", "Welcome").
				AddRow(id.String(), "WELCOME_MSG", 2, "de-DE", "Willkommen"))

		res, err := s.store.Begin().GetBySid(s.ctx, "WELCOME_MSG")
		s.Require().NoError(err)
		s.Equal(id, res.ID())
		s.Len(res.Translations(), 2)
		de, ok := res.Translation("de-de")
		s.Require().True(ok)
		s.Equal(int64(2), de.ID())
	})

	s.Run("resource without translations", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta("WHERE r.sid = $1")).
			WithArgs("EMPTY").
			WillReturnRows(sqlmock.NewRows(resourceColumns).AddRow(id.String(), "EMPTY", nil, nil, nil))

		res, err := s.store.Begin().GetBySid(s.ctx, "EMPTY")
		s.Require().NoError(err)
		s.Empty(res.Translations())
	})

	s.Run("no rows is not found", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta("WHERE r.sid = $1")).
			WithArgs("MISSING").
			WillReturnRows(sqlmock.NewRows(resourceColumns))

		_, err := s.store.Begin().GetBySid(s.ctx, "MISSING")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestSaveNewResource() {
	res, err := models.New("GREETING_MSG")
	s.Require().NoError(err)
	s.Require().NoError(res.AddOrUpdateTranslation(models.DefaultLangID, "Hello"))

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(insertResourceSQL)).
		WithArgs(sqlmock.AnyArg(), "GREETING_MSG").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectQuery(regexp.QuoteMeta(insertTranslationSQL)).
		WithArgs("GREETING_MSG", "default", "Hello").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	s.mock.ExpectCommit()

	repo := s.store.Begin()
	s.Require().NoError(repo.Add(s.ctx, res))
	s.Require().NoError(repo.Save(s.ctx))

	def, ok := res.Translation("default")
	s.Require().True(ok)
	s.Equal(int64(7), def.ID())
}

func (s *PostgresStoreSuite) TestSaveTrackedChanges() {
	id := uuid.New()
	s.mock.ExpectQuery(regexp.QuoteMeta("WHERE r.sid = $1")).
		WithArgs("GREETING_MSG").
		WillReturnRows(sqlmock.NewRows(resourceColumns).
			AddRow(id.String(), "GREETING_MSG", 1, "default", "Hello").
			AddRow(id.String(), "GREETING_MSG", 2, "en", "Hi"))

	repo := s.store.Begin()
	res, err := repo.GetBySid(s.ctx, "GREETING_MSG")
	s.Require().NoError(err)
	s.Require().NoError(res.AddOrUpdateTranslation("EN", "Hi there"))
	s.Require().NoError(res.AddOrUpdateTranslation("fr", "Bonjour"))

	// Unchanged "default" is not rewritten.
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(updateTranslationSQL)).
		WithArgs("Hi there", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectQuery(regexp.QuoteMeta(insertTranslationSQL)).
		WithArgs("GREETING_MSG", "fr", "Bonjour").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	s.mock.ExpectCommit()

	s.Require().NoError(repo.Save(s.ctx))
	fr, _ := res.Translation("fr")
	s.Equal(int64(3), fr.ID())
}

func (s *PostgresStoreSuite) TestSaveDelete() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(deleteResourceSQL)).
		WithArgs("GREETING_MSG").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	repo := s.store.Begin()
	s.Require().NoError(repo.DeleteBySid(s.ctx, "GREETING_MSG"))
	s.Require().NoError(repo.Save(s.ctx))
	s.Require().ErrorIs(repo.Save(s.ctx), sentinel.ErrInvalidState)
}

func (s *PostgresStoreSuite) TestUniqueViolationIsConflict() {
	res, err := models.New("DUP")
	s.Require().NoError(err)

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(insertResourceSQL)).
		WithArgs(sqlmock.AnyArg(), "DUP").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "text_resources_sid_key"})
	s.mock.ExpectRollback()

	repo := s.store.Begin()
	s.Require().NoError(repo.Add(s.ctx, res))
	s.Require().ErrorIs(repo.Save(s.ctx), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFailedSaveAssignsNoIDs() {
	res, err := models.New("GREETING_MSG")
	s.Require().NoError(err)
	s.Require().NoError(res.AddOrUpdateTranslation("en", "Hello"))
	s.Require().NoError(res.AddOrUpdateTranslation("fr", "Bonjour"))

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(insertResourceSQL)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectQuery(regexp.QuoteMeta(insertTranslationSQL)).
		WithArgs("GREETING_MSG", "en", "Hello").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	s.mock.ExpectQuery(regexp.QuoteMeta(insertTranslationSQL)).
		WithArgs("GREETING_MSG", "fr", "Bonjour").
		WillReturnError(sql.ErrConnDone)
	s.mock.ExpectRollback()

	repo := s.store.Begin()
	s.Require().NoError(repo.Add(s.ctx, res))
	err = repo.Save(s.ctx)
	s.Require().Error(err)
	s.NotErrorIs(err, sentinel.ErrConflict)

	en, _ := res.Translation("en")
	s.Zero(en.ID())
}

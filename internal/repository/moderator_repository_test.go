package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportdesk/report-desk-api/internal/models"
)

func newModeratorMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestModeratorRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newModeratorMock(t)
	defer cleanup()
	repo := NewModeratorRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "image_url", "created_at"}).
		AddRow("user-1", "Maria Curie", "maria@example.com", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM moderators WHERE id = $1`)).
		WithArgs("user-1").
		WillReturnRows(rows)

	moderator, err := repo.FindByID(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, moderator)
	assert.Equal(t, "Maria Curie", moderator.DisplayName())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM moderators WHERE id = $1`)).
		WithArgs("unknown").
		WillReturnError(sql.ErrNoRows)

	moderator, err = repo.FindByID(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, moderator)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModeratorRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newModeratorMock(t)
	defer cleanup()
	repo := NewModeratorRepository(db)

	mock.ExpectExec("INSERT INTO moderators").
		WithArgs("user-1", nil, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), &models.Moderator{ID: "user-1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModeratorRepositoryCreateDuplicateIsRecognisable(t *testing.T) {
	db, mock, cleanup := newModeratorMock(t)
	defer cleanup()
	repo := NewModeratorRepository(db)

	mock.ExpectExec("INSERT INTO moderators").
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "moderators_pkey"})

	err := repo.Create(context.Background(), &models.Moderator{ID: "user-1"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

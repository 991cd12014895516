package sessions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aavault/aavault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestMarkCompleted_OnlyWhilePending(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `UPDATE\s+data_sessions\s+SET\s+status\s*=\s*\$2.*WHERE\s+id\s*=\s*\$1\s+AND\s+status\s*=\s*\$7`
	fetchedAt := time.Now()

	mock.ExpectExec(q).
		WithArgs("s-1", string(StatusCompleted), "blob-key", "hash", "sha256", fetchedAt, string(StatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.MarkCompleted(context.Background(), "s-1", "blob-key", "hash", "sha256", fetchedAt)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(q).
		WithArgs("s-1", string(StatusCompleted), "blob-key", "hash", "sha256", fetchedAt, string(StatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.MarkCompleted(context.Background(), "s-1", "blob-key", "hash", "sha256", fetchedAt)
	require.NoError(t, err)
	assert.False(t, ok, "a terminal session must not be completed twice")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByExternalID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+.*FROM\s+data_sessions\s+WHERE\s+external_id\s*=\s*\$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByExternalID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

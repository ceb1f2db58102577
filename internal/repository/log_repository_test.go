package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLogRepo(t *testing.T) (LogRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLogRepository(db), mock
}

func TestLogRepository_CreateEncodesDetails(t *testing.T) {
	repo, mock := newMockLogRepo(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs("l1", "u1", models.LogTypePost, "published", models.LogStatusSuccess, models.Platform(""),
			[]byte(`{"post_id":"p1"}`), "", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.LogEntry{
		ID: "l1", OwnerID: "u1", Type: models.LogTypePost, Action: "published",
		Status: models.LogStatusSuccess, Details: map[string]any{"post_id": "p1"}, CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogRepository_ListByOwnerFiltersAndPages(t *testing.T) {
	repo, mock := newMockLogRepo(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs WHERE owner_id = $1 AND type = $2")).
		WithArgs("u1", models.LogTypeSocialConnect).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE owner_id = $1 AND type = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 20")).
		WithArgs("u1", models.LogTypeSocialConnect).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "type", "action", "status", "platform", "details", "error_message", "created_at"}).
			AddRow("l1", "u1", "social_connect", "connected", "success", "twitter", `{"username":"alice"}`, "", now).
			AddRow("l2", "u1", "social_connect", "disconnected", "info", "twitter", nil, "", now))

	entries, total, err := repo.ListByOwner(context.Background(), "u1", LogFilter{
		Type: models.LogTypeSocialConnect,
		Page: Page{Page: 2, Limit: 20},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 25, total)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].Details["username"])
	assert.Nil(t, entries[1].Details)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogRepository_DeleteOlderThan(t *testing.T) {
	repo, mock := newMockLogRepo(t)
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM audit_logs WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var postRowColumns = []string{"id", "owner_id", "platforms", "caption", "hashtags", "media_refs", "metadata", "scheduled_time", "status", "publish_results", "created_at", "updated_at"}

func newMockPostRepo(t *testing.T) (PostRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostRepository(db), mock
}

func TestPostRepository_ListDueOrdersOldestFirst(t *testing.T) {
	repo, mock := newMockPostRepo(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(postRowColumns).
		AddRow("p1", "u1", "{twitter,linkedin}", "hello", "{go}", `[{"url":"https://cdn/x.png","type":"image"}]`, nil,
			now.Add(-time.Hour), "pending", "[]", now, now).
		AddRow("p2", "u2", "{instagram}", "later", "{}", "[]", `{"location":"Berlin"}`,
			now.Add(-time.Minute), "pending", "[]", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_posts WHERE status = $1 AND scheduled_time <= $2 ORDER BY scheduled_time ASC")).
		WithArgs(models.PostStatusPending, now).
		WillReturnRows(rows)

	posts, err := repo.ListDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, []models.Platform{models.PlatformTwitter, models.PlatformLinkedIn}, posts[0].Platforms)
	assert.Equal(t, []string{"go"}, posts[0].Hashtags)
	require.Len(t, posts[0].MediaRefs, 1)
	assert.Equal(t, models.MediaTypeImage, posts[0].MediaRefs[0].Type)
	assert.Nil(t, posts[0].Metadata)

	assert.Equal(t, "Berlin", posts[1].Metadata["location"])
	assert.Equal(t, models.PostStatusPending, posts[1].Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ClaimIsConditional(t *testing.T) {
	repo, mock := newMockPostRepo(t)

	claim := regexp.QuoteMeta("UPDATE scheduled_posts") + ".*" + regexp.QuoteMeta("WHERE id = $3 AND status = $4")
	mock.ExpectExec(claim).
		WithArgs(models.PostStatusProcessing, sqlmock.AnyArg(), "p1", models.PostStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(claim).
		WithArgs(models.PostStatusProcessing, sqlmock.AnyArg(), "p1", models.PostStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Claim(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Claim(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, ok, "second claim must observe the post is no longer pending")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_CompleteRequiresProcessing(t *testing.T) {
	repo, mock := newMockPostRepo(t)

	complete := regexp.QuoteMeta("UPDATE scheduled_posts") + ".*" + regexp.QuoteMeta("WHERE id = $4 AND status = $5")
	mock.ExpectExec(complete).
		WithArgs(models.PostStatusFailed, sqlmock.AnyArg(), sqlmock.AnyArg(), "p1", models.PostStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Complete(context.Background(), "p1", models.PostStatusFailed, []models.PublishResult{{Platform: models.PlatformTwitter}})
	assert.ErrorIs(t, err, ErrConflict)

	err = repo.Complete(context.Background(), "p1", models.PostStatusPending, nil)
	assert.Error(t, err, "pending is not a completion status")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_CancelExplainsNoop(t *testing.T) {
	repo, mock := newMockPostRepo(t)
	cancel := regexp.QuoteMeta("WHERE id = $3 AND owner_id = $4 AND status = $5")
	exists := regexp.QuoteMeta("SELECT 1 FROM scheduled_posts WHERE id = $1 AND owner_id = $2")

	mock.ExpectExec(cancel).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Cancel(context.Background(), "u1", "p1"))

	mock.ExpectExec(cancel).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).WithArgs("p2", "u1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	assert.ErrorIs(t, repo.Cancel(context.Background(), "u1", "p2"), ErrNotFound)

	mock.ExpectExec(cancel).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).WithArgs("p3", "u1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	assert.ErrorIs(t, repo.Cancel(context.Background(), "u1", "p3"), ErrConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_RemoveSkipsPublished(t *testing.T) {
	repo, mock := newMockPostRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scheduled_posts WHERE id = $1 AND owner_id = $2 AND status NOT IN ($3, $4)")).
		WithArgs("p1", "u1", models.PostStatusPublished, models.PostStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM scheduled_posts")).
		WithArgs("p1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	assert.ErrorIs(t, repo.Remove(context.Background(), "u1", "p1"), ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newMockPostRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_posts WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(postRowColumns))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListByOwnerPaginates(t *testing.T) {
	repo, mock := newMockPostRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM scheduled_posts WHERE owner_id = $1 AND status = $2")).
		WithArgs("u1", models.PostStatusFailed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY scheduled_time DESC LIMIT 5 OFFSET 5")).
		WithArgs("u1", models.PostStatusFailed).
		WillReturnRows(sqlmock.NewRows(postRowColumns).
			AddRow("p6", "u1", "{twitter}", "c", "{}", "[]", nil, now, "failed",
				`[{"platform":"twitter","success":false,"error":"boom","reason":"network_or_transient_error"}]`, now, now))

	posts, total, err := repo.ListByOwner(context.Background(), "u1", PostFilter{
		Status: models.PostStatusFailed,
		Page:   Page{Page: 2, Limit: 5},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 12, total)
	require.Len(t, posts, 1)
	require.Len(t, posts[0].PublishResults, 1)
	assert.Equal(t, "boom", posts[0].PublishResults[0].Error)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_CreateFailurePropagates(t *testing.T) {
	repo, mock := newMockPostRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scheduled_posts")).
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &models.ScheduledPost{
		ID:        "p1",
		OwnerID:   "u1",
		Platforms: []models.Platform{models.PlatformTwitter},
		Caption:   "hi",
		Status:    models.PostStatusPending,
	})
	assert.EqualError(t, err, "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPageNormalize(t *testing.T) {
	assert.EqualValues(t, 0, Page{}.offset())
	assert.EqualValues(t, defaultPageSize, Page{}.limit())
	assert.EqualValues(t, maxPageSize, Page{Limit: 5000}.limit())
	assert.EqualValues(t, 40, Page{Page: 3, Limit: 20}.offset())
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/repository/repotest"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	ids    []string
	delays []time.Duration
	err    error
}

func (e *recordingEnqueuer) EnqueuePost(_ context.Context, postID string, delay time.Duration) error {
	e.ids = append(e.ids, postID)
	e.delays = append(e.delays, delay)
	return e.err
}

func newPostService(store *repotest.Store, enq Enqueuer) *postService {
	repos := store.Repositories()
	svc := NewPostService(repos.Posts, repos.Accounts, NewAuditLogger(repos.Logs), enq).(*postService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestPostService_Create(t *testing.T) {
	store := repotest.NewStore()
	store.PutAccount(&models.ConnectedAccount{OwnerID: "u1", Platform: models.PlatformTwitter, AccessToken: "t", IsActive: true})
	enq := &recordingEnqueuer{}
	svc := newPostService(store, enq)

	post, err := svc.Create(context.Background(), "u1", &transfer.CreatePostRequest{
		Platforms:     []string{"twitter"},
		Caption:       "launch day",
		Hashtags:      []string{"go"},
		Media:         []transfer.MediaInput{{URL: "https://cdn.example.com/a.png", Type: "image"}},
		ScheduledTime: fixedNow.Add(30 * time.Minute),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, models.PostStatusPending, post.Status)

	stored := store.Post(post.ID)
	require.NotNil(t, stored)
	assert.Equal(t, []models.Platform{models.PlatformTwitter}, stored.Platforms)
	assert.Equal(t, models.MediaTypeImage, stored.MediaRefs[0].Type)

	assert.Equal(t, []string{post.ID}, enq.ids)
	assert.Equal(t, []time.Duration{30 * time.Minute}, enq.delays)

	logs := store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "scheduled", logs[0].Action)
}

func TestPostService_CreateRequiresConnectedAccounts(t *testing.T) {
	store := repotest.NewStore()
	store.PutAccount(&models.ConnectedAccount{OwnerID: "u1", Platform: models.PlatformTwitter, AccessToken: "t", IsActive: true})
	svc := newPostService(store, nil)

	_, err := svc.Create(context.Background(), "u1", &transfer.CreatePostRequest{
		Platforms:     []string{"twitter", "instagram"},
		Caption:       "x",
		ScheduledTime: fixedNow,
	})
	require.ErrorIs(t, err, ErrAccountNotConnected)
	assert.Contains(t, err.Error(), "Instagram")
	assert.Zero(t, store.PostWrites())
}

func TestPostService_CreateValidation(t *testing.T) {
	svc := newPostService(repotest.NewStore(), nil)

	cases := map[string]*transfer.CreatePostRequest{
		"no platforms":     {Caption: "x", ScheduledTime: fixedNow},
		"unknown platform": {Platforms: []string{"myspace"}, Caption: "x", ScheduledTime: fixedNow},
		"duplicate":        {Platforms: []string{"twitter", "twitter"}, Caption: "x", ScheduledTime: fixedNow},
		"no caption":       {Platforms: []string{"twitter"}, ScheduledTime: fixedNow},
		"no time":          {Platforms: []string{"twitter"}, Caption: "x"},
		"bad media type":   {Platforms: []string{"twitter"}, Caption: "x", ScheduledTime: fixedNow, Media: []transfer.MediaInput{{URL: "https://a/b", Type: "gif"}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "u1", req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestPostService_EnqueueFailureKeepsPost(t *testing.T) {
	store := repotest.NewStore()
	store.PutAccount(&models.ConnectedAccount{OwnerID: "u1", Platform: models.PlatformTwitter, AccessToken: "t", IsActive: true})
	svc := newPostService(store, &recordingEnqueuer{err: errors.New("redis down")})

	post, err := svc.Create(context.Background(), "u1", &transfer.CreatePostRequest{
		Platforms: []string{"twitter"}, Caption: "x", ScheduledTime: fixedNow.Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.NotNil(t, store.Post(post.ID))
}

func TestPostService_GetCancelRemove(t *testing.T) {
	store := repotest.NewStore()
	svc := newPostService(store, nil)
	ctx := context.Background()
	store.PutPost(&models.ScheduledPost{ID: "p1", OwnerID: "u1", Status: models.PostStatusPending, ScheduledTime: fixedNow})
	store.PutPost(&models.ScheduledPost{ID: "p2", OwnerID: "u1", Status: models.PostStatusPublished, ScheduledTime: fixedNow})

	_, err := svc.Get(ctx, "u2", "p1")
	assert.ErrorIs(t, err, repository.ErrNotFound, "other owners' posts are invisible")

	post, err := svc.Get(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", post.ID)

	require.NoError(t, svc.Cancel(ctx, "u1", "p1"))
	assert.Equal(t, models.PostStatusCancelled, store.Post("p1").Status)
	assert.ErrorIs(t, svc.Cancel(ctx, "u1", "p1"), repository.ErrConflict)

	assert.ErrorIs(t, svc.Remove(ctx, "u1", "p2"), repository.ErrConflict)
	require.NoError(t, svc.Remove(ctx, "u1", "p1"))
	assert.Nil(t, store.Post("p1"))
	assert.ErrorIs(t, svc.Remove(ctx, "u1", "p1"), repository.ErrNotFound)
}

func TestPostService_List(t *testing.T) {
	store := repotest.NewStore()
	svc := newPostService(store, nil)
	for i, status := range []models.PostStatus{models.PostStatusPending, models.PostStatusFailed, models.PostStatusPending} {
		store.PutPost(&models.ScheduledPost{
			ID: string(rune('a' + i)), OwnerID: "u1", Status: status, ScheduledTime: fixedNow.Add(time.Duration(i) * time.Hour),
		})
	}

	posts, total, err := svc.List(context.Background(), "u1", repository.PostFilter{Status: models.PostStatusPending})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, posts, 2)
	assert.Equal(t, "c", posts[0].ID, "newest scheduled first")

	_, _, err = svc.List(context.Background(), "u1", repository.PostFilter{Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

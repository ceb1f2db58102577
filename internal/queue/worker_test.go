package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	ids []string
	err error
}

func (f *fakeDispatcher) Dispatch(context.Context, *models.ScheduledPost) (service.Outcome, error) {
	return service.Outcome{}, nil
}

func (f *fakeDispatcher) DispatchByID(_ context.Context, id string) (service.Outcome, error) {
	f.ids = append(f.ids, id)
	return service.Outcome{PostID: id, Claimed: f.err == nil}, f.err
}

func task(t *testing.T, payload any) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(TaskTypeSchedulePost, data)
}

func TestHandleSchedulePostTask(t *testing.T) {
	d := &fakeDispatcher{}
	q := NewQueue(d)

	require.NoError(t, q.HandleSchedulePostTask(context.Background(), task(t, SchedulePostPayload{PostID: "p1"})))
	assert.Equal(t, []string{"p1"}, d.ids)
}

func TestHandleSchedulePostTask_BadPayloadSkipsRetry(t *testing.T) {
	q := NewQueue(&fakeDispatcher{})

	err := q.HandleSchedulePostTask(context.Background(), asynq.NewTask(TaskTypeSchedulePost, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = q.HandleSchedulePostTask(context.Background(), task(t, SchedulePostPayload{}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSchedulePostTask_DispatchError(t *testing.T) {
	q := NewQueue(&fakeDispatcher{err: errors.New("store down")})

	err := q.HandleSchedulePostTask(context.Background(), task(t, SchedulePostPayload{PostID: "p1"}))
	assert.EqualError(t, err, "store down")
}

func TestRedisOpt(t *testing.T) {
	opt, err := RedisOpt("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, asynq.RedisClientOpt{Addr: "localhost:6379"}, opt)

	opt, err = RedisOpt("redis://:secret@cache:6380/2")
	require.NoError(t, err)
	client, ok := opt.(asynq.RedisClientOpt)
	require.True(t, ok)
	assert.Equal(t, "cache:6380", client.Addr)
	assert.Equal(t, "secret", client.Password)
	assert.Equal(t, 2, client.DB)
}

func TestMuxRoutesScheduleTask(t *testing.T) {
	d := &fakeDispatcher{}
	mux := NewQueue(d).Mux()

	require.NoError(t, mux.ProcessTask(context.Background(), task(t, SchedulePostPayload{PostID: "p9"})))
	assert.Equal(t, []string{"p9"}, d.ids)
}

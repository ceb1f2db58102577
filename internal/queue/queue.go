package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

func EnqueuePost(ctx context.Context, asynqClient *asynq.Client, payload SchedulePostPayload, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeSchedulePost, taskPayload)

	_, err = asynqClient.EnqueueContext(ctx, task,
		asynq.ProcessIn(delay),
		asynq.TaskID("post:"+payload.PostID),
		asynq.MaxRetry(0),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("task scheduled", "post_id", payload.PostID, "delay", delay)
	return nil
}

// Client enqueues dispatch tasks for newly created posts.
type Client struct {
	client *asynq.Client
}

func NewClient(client *asynq.Client) *Client {
	return &Client{client: client}
}

func (c *Client) EnqueuePost(ctx context.Context, postID string, delay time.Duration) error {
	return EnqueuePost(ctx, c.client, SchedulePostPayload{PostID: postID}, delay)
}

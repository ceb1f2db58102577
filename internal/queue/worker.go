package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// HandleSchedulePostTask dispatches the post named by the task. Posts that
// are no longer due or pending are left alone.
func (q *Queue) HandleSchedulePostTask(ctx context.Context, task *asynq.Task) error {
	var payload SchedulePostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	if payload.PostID == "" {
		return fmt.Errorf("%s payload without post id: %w", task.Type(), asynq.SkipRetry)
	}

	out, err := q.dispatcher.DispatchByID(ctx, payload.PostID)
	if err != nil {
		slog.Error("queued dispatch failed", "post_id", payload.PostID, "error", err)
		return err
	}
	slog.Info("queued dispatch finished", "post_id", payload.PostID, "claimed", out.Claimed, "status", out.Status)
	return nil
}

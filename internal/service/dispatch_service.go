package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/metrics"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
)

const (
	defaultPublishTimeout = 10 * time.Second
	queueGrace            = 2 * time.Second
	persistTimeout        = 10 * time.Second
)

// DueSelector lists the posts a publish pass should attempt.
type DueSelector interface {
	SelectDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error)
}

type dueSelector struct {
	posts repository.PostRepository
}

func NewDueSelector(posts repository.PostRepository) DueSelector {
	return &dueSelector{posts: posts}
}

func (s *dueSelector) SelectDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	posts, err := s.posts.ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("selecting due posts: %w", err)
	}
	return posts, nil
}

// Outcome describes what one Dispatch call did. Claimed is false when another
// worker owned the post, in which case nothing was written.
type Outcome struct {
	PostID  string
	Claimed bool
	Status  models.PostStatus
	Results []models.PublishResult
}

type Dispatcher interface {
	// Dispatch claims the post, publishes it to every target platform in
	// order and persists the aggregated status.
	Dispatch(ctx context.Context, post *models.ScheduledPost) (Outcome, error)
	// DispatchByID loads the post and dispatches it only if it is still due.
	DispatchByID(ctx context.Context, id string) (Outcome, error)
}

type DispatcherOption func(*dispatcher)

func WithPublishTimeout(d time.Duration) DispatcherOption {
	return func(ds *dispatcher) {
		if d > 0 {
			ds.timeout = d
		}
	}
}

func WithClock(now func() time.Time) DispatcherOption {
	return func(ds *dispatcher) { ds.now = now }
}

type dispatcher struct {
	posts    repository.PostRepository
	resolver AccountResolver
	registry *platform.Registry
	audit    AuditLogger
	timeout  time.Duration
	now      func() time.Time
}

func NewDispatcher(
	posts repository.PostRepository,
	resolver AccountResolver,
	registry *platform.Registry,
	audit AuditLogger,
	opts ...DispatcherOption) Dispatcher {
	d := &dispatcher{
		posts:    posts,
		resolver: resolver,
		registry: registry,
		audit:    audit,
		timeout:  defaultPublishTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *dispatcher) DispatchByID(ctx context.Context, id string) (Outcome, error) {
	post, err := d.posts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		slog.Info("dispatch skipped, post no longer exists", "post_id", id)
		return Outcome{PostID: id}, nil
	}
	if err != nil {
		return Outcome{PostID: id}, fmt.Errorf("loading post %s: %w", id, err)
	}
	// Queued tasks fire at whole-second resolution and may land just before
	// the scheduled time.
	if !post.IsDue(d.now().Add(queueGrace)) {
		slog.Info("dispatch skipped, post not due", "post_id", id, "status", post.Status)
		return Outcome{PostID: id}, nil
	}
	return d.Dispatch(ctx, post)
}

func (d *dispatcher) Dispatch(ctx context.Context, post *models.ScheduledPost) (Outcome, error) {
	out := Outcome{PostID: post.ID}

	claimed, err := d.posts.Claim(ctx, post.ID)
	if err != nil {
		return out, fmt.Errorf("claiming post %s: %w", post.ID, err)
	}
	if !claimed {
		metrics.ClaimsLost.Inc()
		slog.Debug("post already claimed", "post_id", post.ID)
		return out, nil
	}
	out.Claimed = true

	results := make([]models.PublishResult, 0, len(post.Platforms))
	for _, p := range post.Platforms {
		results = append(results, d.publishOne(ctx, post, p))
	}
	out.Results = results
	status := AggregateStatus(results)

	// The post is ours now: finish the write even if the pass is shutting down.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := d.posts.Complete(persistCtx, post.ID, status, results); err != nil {
		out.Status = models.PostStatusProcessing
		slog.Error("failed to persist publish outcome", "post_id", post.ID, "status", status, "error", err)
		d.audit.Record(persistCtx, &models.LogEntry{
			OwnerID:      post.OwnerID,
			Type:         models.LogTypeError,
			Action:       "publish_persist_failed",
			Status:       models.LogStatusFailure,
			Details:      map[string]any{"post_id": post.ID, "status": string(status)},
			ErrorMessage: err.Error(),
		})
		return out, fmt.Errorf("completing post %s: %w", post.ID, err)
	}
	out.Status = status
	metrics.PostsDispatched.WithLabelValues(string(status)).Inc()

	d.audit.Record(persistCtx, &models.LogEntry{
		OwnerID: post.OwnerID,
		Type:    models.LogTypePost,
		Action:  "published",
		Status:  AuditStatus(results),
		Details: map[string]any{
			"post_id": post.ID,
			"status":  string(status),
			"results": results,
		},
	})

	slog.Info("post dispatched", "post_id", post.ID, "status", status, "platforms", len(results))
	return out, nil
}

func (d *dispatcher) publishOne(ctx context.Context, post *models.ScheduledPost, p models.Platform) models.PublishResult {
	start := time.Now()
	result := d.attempt(ctx, post, p)

	outcome := "success"
	if !result.Success {
		outcome = result.Reason
	}
	metrics.PlatformAttempts.WithLabelValues(string(p), outcome).Inc()
	metrics.PlatformDuration.WithLabelValues(string(p)).Observe(time.Since(start).Seconds())
	return result
}

func (d *dispatcher) attempt(ctx context.Context, post *models.ScheduledPost, p models.Platform) models.PublishResult {
	acc, err := d.resolver.Resolve(ctx, post.OwnerID, p)
	if err != nil {
		return failedResult(p, err)
	}

	receipt, err := d.invoke(ctx, d.registry.Lookup(p), acc, post, p)
	if err != nil {
		slog.Warn("platform publish failed", "post_id", post.ID, "platform", p, "error", err)
		return failedResult(p, err)
	}
	if receipt == nil {
		return failedResult(p, platform.Fail(platform.ReasonNetworkOrTransient, "publisher returned no receipt"))
	}

	at := d.now().UTC()
	return models.PublishResult{
		Platform:      p,
		Success:       true,
		RemotePostID:  receipt.RemotePostID,
		RemotePostURL: receipt.RemotePostURL,
		PublishedAt:   &at,
	}
}

// invoke bounds a publisher call by the publish timeout and converts a panic
// into a failure.
func (d *dispatcher) invoke(
	ctx context.Context,
	pub platform.Publisher,
	acc *models.ConnectedAccount,
	post *models.ScheduledPost,
	p models.Platform) (*platform.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type reply struct {
		receipt *platform.Receipt
		err     error
	}
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				slog.Error("publisher panicked", "platform", p, "post_id", post.ID, "panic", v)
				ch <- reply{err: platform.Transient(fmt.Errorf("%s publisher panic: %v", p.DisplayName(), v))}
			}
		}()
		receipt, err := pub.Publish(ctx, acc, post)
		ch <- reply{receipt: receipt, err: err}
	}()

	select {
	case r := <-ch:
		return r.receipt, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, platform.Fail(platform.ReasonNetworkOrTransient,
				fmt.Sprintf("%s publish timed out after %s", p.DisplayName(), d.timeout))
		}
		return nil, platform.Transient(ctx.Err())
	}
}

func failedResult(p models.Platform, err error) models.PublishResult {
	pe := platform.AsPublishError(err)
	return models.PublishResult{
		Platform: p,
		Success:  false,
		Error:    pe.Message,
		Reason:   string(pe.Reason),
	}
}

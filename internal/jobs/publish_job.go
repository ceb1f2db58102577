package job

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/metrics"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
	"golang.org/x/sync/errgroup"
)

// StaleCounter reports posts that have been processing since before a cutoff.
type StaleCounter interface {
	CountStaleProcessing(ctx context.Context, before time.Time) (int64, error)
}

// PassReport summarises one publish pass.
type PassReport struct {
	Skipped   bool          `json:"skipped"`
	Due       int           `json:"due"`
	Claimed   int           `json:"claimed"`
	Published int           `json:"published"`
	Failed    int           `json:"failed"`
	Errors    int           `json:"errors"`
	Stale     int64         `json:"stale"`
	Duration  time.Duration `json:"duration"`
}

type PublishJob struct {
	selector    service.DueSelector
	dispatcher  service.Dispatcher
	stale       StaleCounter
	concurrency int
	staleAfter  time.Duration
	now         func() time.Time
	guard       runGuard
}

type PublishOption func(*PublishJob)

func WithConcurrency(n int) PublishOption {
	return func(j *PublishJob) {
		if n > 0 {
			j.concurrency = n
		}
	}
}

// WithStaleAfter enables the stale-processing check. stale may be nil to
// disable it.
func WithStaleAfter(stale StaleCounter, after time.Duration) PublishOption {
	return func(j *PublishJob) {
		j.stale = stale
		j.staleAfter = after
	}
}

func WithClock(now func() time.Time) PublishOption {
	return func(j *PublishJob) { j.now = now }
}

func NewPublishJob(selector service.DueSelector, dispatcher service.Dispatcher, opts ...PublishOption) *PublishJob {
	j := &PublishJob{
		selector:    selector,
		dispatcher:  dispatcher,
		concurrency: 1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run adapts RunOnePass to a scheduler Task.
func (j *PublishJob) Run(ctx context.Context) error {
	report, err := j.RunOnePass(ctx)
	if report.Skipped {
		return nil
	}
	return err
}

// RunOnePass selects every due post and dispatches it. A call made while
// another pass is in flight returns immediately with Skipped set.
func (j *PublishJob) RunOnePass(ctx context.Context) (report PassReport, err error) {
	if !j.guard.tryEnter() {
		metrics.PassesTotal.WithLabelValues("skipped").Inc()
		slog.Info("publish pass still running, skipping tick")
		return PassReport{Skipped: true}, nil
	}
	defer j.guard.leave()

	start := time.Now()
	now := j.now()
	defer func() {
		report.Duration = time.Since(start)
		metrics.PassDuration.Observe(report.Duration.Seconds())
	}()

	posts, err := j.selector.SelectDue(ctx, now)
	if err != nil {
		metrics.PassesTotal.WithLabelValues("error").Inc()
		slog.Error("publish pass could not select due posts", "error", err)
		return report, err
	}
	report.Due = len(posts)

	var (
		mu   sync.Mutex
		errs []error
	)
	record := func(out service.Outcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Errors++
			errs = append(errs, err)
			slog.Error("dispatch failed", "post_id", out.PostID, "error", err)
		}
		if !out.Claimed {
			return
		}
		report.Claimed++
		switch out.Status {
		case models.PostStatusPublished:
			report.Published++
		case models.PostStatusFailed:
			report.Failed++
		}
	}

	if j.concurrency <= 1 {
		for _, post := range posts {
			if ctx.Err() != nil {
				break
			}
			record(j.dispatcher.Dispatch(ctx, post))
		}
	} else {
		var g errgroup.Group
		g.SetLimit(j.concurrency)
		for _, post := range posts {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				record(j.dispatcher.Dispatch(ctx, post))
				return nil
			})
		}
		_ = g.Wait()
	}

	j.checkStale(ctx, now, &report)

	outcome := "completed"
	if len(errs) > 0 {
		outcome = "error"
	}
	metrics.PassesTotal.WithLabelValues(outcome).Inc()

	if report.Due > 0 {
		slog.Info("publish pass finished",
			"due", report.Due,
			"claimed", report.Claimed,
			"published", report.Published,
			"failed", report.Failed,
			"errors", report.Errors,
		)
	}
	return report, errors.Join(errs...)
}

func (j *PublishJob) checkStale(ctx context.Context, now time.Time, report *PassReport) {
	if j.stale == nil || j.staleAfter <= 0 {
		return
	}
	n, err := j.stale.CountStaleProcessing(ctx, now.Add(-j.staleAfter))
	if err != nil {
		slog.Warn("stale processing check failed", "error", err)
		return
	}
	report.Stale = n
	metrics.StaleProcessing.Set(float64(n))
	if n > 0 {
		slog.Warn("posts stuck in processing", "count", n, "older_than", j.staleAfter)
	}
}

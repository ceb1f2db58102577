package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/metrics"
	"github.com/robfig/cron/v3"
)

// Task is one scheduled unit of work.
type Task func(ctx context.Context) error

// Scheduler owns the cron timers. Tasks receive a context that is cancelled
// when Stop gives up waiting for them.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cronLogger{}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger))),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) Add(name, spec string, task Task) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := task(s.ctx); err != nil {
			metrics.JobRuns.WithLabelValues(name, "error").Inc()
			slog.Error("scheduled job failed", "job", name, "error", err, "duration", time.Since(start))
			return
		}
		metrics.JobRuns.WithLabelValues(name, "ok").Inc()
	})
	if err != nil {
		return fmt.Errorf("scheduling %s with %q: %w", name, spec, err)
	}
	slog.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new ticks and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	defer s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

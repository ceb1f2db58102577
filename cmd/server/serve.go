package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/api"
	job "github.com/maheshrc27/crosspost/internal/jobs"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	if err := b.migrate(ctx, cfg); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	c, err := newCore(cfg, b)
	if err != nil {
		return err
	}

	var (
		enqueuer    service.Enqueuer
		queueServer *asynq.Server
	)
	if cfg.RedisURI != "" {
		redisOpt, err := queue.RedisOpt(cfg.RedisURI)
		if err != nil {
			return fmt.Errorf("redis uri: %w", err)
		}
		client := asynq.NewClient(redisOpt)
		defer client.Close()
		enqueuer = queue.NewClient(client)

		queueServer = asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: 10,
			Logger:      asynqLogger{},
		})
		mux := queue.NewQueue(c.dispatcher).Mux()
		go func() {
			slog.Info("starting queue worker")
			if err := queueServer.Run(mux); err != nil {
				slog.Error("queue worker stopped", "error", err)
			}
		}()
	} else {
		slog.Info("REDIS_URI not set, posts are published by the polling scheduler only")
	}

	svc := api.Services{
		Posts:    service.NewPostService(b.store.Posts, b.store.Accounts, c.audit, enqueuer),
		Accounts: service.NewAccountService(b.store.Accounts, c.audit, c.cipher, cfg.FacebookAppSecret, cfg.FrontendURL),
		Logs:     service.NewLogService(b.store.Logs),
	}
	if cfg.R2.Configured() {
		r2, err := service.NewR2Client(ctx, cfg.R2)
		if err != nil {
			return fmt.Errorf("r2 client: %w", err)
		}
		svc.Media = service.NewMediaService(r2, cfg.R2.BucketName, cfg.R2.PublicURL)
	}

	scheduler, err := newScheduler(c)
	if err != nil {
		return err
	}
	scheduler.Start()

	app := api.NewApp(cfg, svc)
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(":" + cfg.Port)
	}()
	slog.Info("server is running", "port", cfg.Port, "driver", cfg.DatabaseDriver)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-listenErr:
		if err != nil {
			slog.Error("failed to start server", "error", err)
		}
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
	}
	if queueServer != nil {
		queueServer.Shutdown()
	}
	slog.Info("server shutdown complete")
	return errors.Join(errs...)
}

func newScheduler(c *core) (*job.Scheduler, error) {
	cfg := c.cfg
	store := c.backend.store

	publish := job.NewPublishJob(c.selector, c.dispatcher,
		job.WithConcurrency(cfg.DispatchConcurrency),
		job.WithStaleAfter(store.Posts, cfg.StaleProcessingAfter),
	)

	s := job.NewScheduler()
	if err := s.Add("publish", cfg.Schedules.Publish, publish.Run); err != nil {
		return nil, err
	}
	refresh := job.NewTokenRefreshJob(store.Accounts, nil, cfg.TokenRefreshWindow)
	if err := s.Add("token_refresh", cfg.Schedules.TokenRefresh, refresh.Run); err != nil {
		return nil, err
	}
	if cfg.SelfURL != "" {
		keepAlive := job.NewKeepAliveJob(cfg.SelfURL, nil)
		if err := s.Add("keep_alive", cfg.Schedules.KeepAlive, keepAlive.Run); err != nil {
			return nil, err
		}
	}
	if !c.backend.expiresLogs() {
		retention := job.NewLogRetentionJob(store.Logs, cfg.LogRetention)
		if err := s.Add("log_retention", cfg.Schedules.LogRetention, retention.Run); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// asynqLogger routes worker logs through slog.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { slog.Debug(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...interface{})  { slog.Info(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...interface{})  { slog.Warn(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...interface{}) { slog.Error(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...interface{}) {
	slog.Error(fmt.Sprint(args...))
	os.Exit(1)
}

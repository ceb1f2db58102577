package job

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/repository"
)

const keepAliveTimeout = 10 * time.Second

// KeepAliveJob pings the service's own health endpoint so hosted instances
// are not idled out.
type KeepAliveJob struct {
	url    string
	client *http.Client
	guard  runGuard
}

func NewKeepAliveJob(selfURL string, client *http.Client) *KeepAliveJob {
	if client == nil {
		client = &http.Client{Timeout: keepAliveTimeout}
	}
	return &KeepAliveJob{
		url:    strings.TrimRight(selfURL, "/") + "/health",
		client: client,
	}
}

func (j *KeepAliveJob) Run(ctx context.Context) error {
	if !j.guard.tryEnter() {
		return nil
	}
	defer j.guard.leave()

	ctx, cancel := context.WithTimeout(ctx, keepAliveTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return err
	}
	resp, err := j.client.Do(req)
	if err != nil {
		slog.Warn("keep-alive ping failed", "url", j.url, "error", err)
		return fmt.Errorf("keep-alive ping: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("keep-alive ping returned unexpected status", "url", j.url, "status", resp.StatusCode)
		return fmt.Errorf("keep-alive ping: status %d", resp.StatusCode)
	}
	slog.Debug("keep-alive ping ok", "url", j.url)
	return nil
}

// LogRetentionJob deletes audit entries older than the retention window.
type LogRetentionJob struct {
	logs      repository.LogRepository
	retention time.Duration
	now       func() time.Time
	guard     runGuard
}

func NewLogRetentionJob(logs repository.LogRepository, retention time.Duration) *LogRetentionJob {
	return &LogRetentionJob{logs: logs, retention: retention, now: time.Now}
}

func (j *LogRetentionJob) Run(ctx context.Context) error {
	if !j.guard.tryEnter() {
		return nil
	}
	defer j.guard.leave()

	n, err := j.logs.DeleteOlderThan(ctx, j.now().Add(-j.retention))
	if err != nil {
		return fmt.Errorf("deleting expired logs: %w", err)
	}
	if n > 0 {
		slog.Info("expired audit logs deleted", "count", n)
	}
	return nil
}

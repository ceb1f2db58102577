package job

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
)

const refreshConcurrency = 10

// TokenRefresher renews the credential of one connected account.
type TokenRefresher interface {
	Refresh(ctx context.Context, acc *models.ConnectedAccount) error
}

// LogOnlyRefresher is the default TokenRefresher. No platform refresh flow
// is implemented yet, so it only reports the account.
type LogOnlyRefresher struct{}

func (LogOnlyRefresher) Refresh(_ context.Context, acc *models.ConnectedAccount) error {
	slog.Info("token nearing expiry, refresh not available",
		"owner_id", acc.OwnerID,
		"platform", acc.Platform,
		"expires_at", acc.TokenExpiresAt,
	)
	return nil
}

type TokenRefreshJob struct {
	accounts  repository.SocialAccountRepository
	refresher TokenRefresher
	window    time.Duration
	now       func() time.Time
	guard     runGuard
}

func NewTokenRefreshJob(accounts repository.SocialAccountRepository, refresher TokenRefresher, window time.Duration) *TokenRefreshJob {
	if refresher == nil {
		refresher = LogOnlyRefresher{}
	}
	return &TokenRefreshJob{
		accounts:  accounts,
		refresher: refresher,
		window:    window,
		now:       time.Now,
	}
}

func (j *TokenRefreshJob) Run(ctx context.Context) error {
	if !j.guard.tryEnter() {
		slog.Info("token refresh still running, skipping tick")
		return nil
	}
	defer j.guard.leave()

	accounts, err := j.accounts.ListExpiring(ctx, j.now().Add(j.window))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)
	semaphore := make(chan struct{}, refreshConcurrency)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.ConnectedAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := j.refresher.Refresh(ctx, acc); err != nil {
				failed.Add(1)
				slog.Warn("unable to refresh token", "platform", acc.Platform, "owner_id", acc.OwnerID, "error", err)
			}
		}(acc)
	}
	wg.Wait()

	if len(accounts) > 0 {
		slog.Info("token refresh finished", "accounts", len(accounts), "failed", failed.Load())
	}
	return nil
}

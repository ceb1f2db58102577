package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"golang.org/x/oauth2"
)

const (
	twitterStatusURL   = "https://twitter.com/user/status/"
	maxTwitterBodySize = 1 << 20

	msgTwitterTokenExpired     = "Twitter access token expired. Please reconnect your account."
	msgTwitterPermissionDenied = "Twitter API access denied. Your app may not have write permissions or the account needs to be re-authorized."
)

type TwitterPublisher struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	breaker circuitbreaker.CircuitBreaker[*http.Response]
}

type TwitterOption func(*TwitterPublisher)

// WithHTTPClient sets the transport used underneath the oauth2 client.
func WithHTTPClient(c *http.Client) TwitterOption {
	return func(t *TwitterPublisher) { t.client = c }
}

func WithBreaker(cb circuitbreaker.CircuitBreaker[*http.Response]) TwitterOption {
	return func(t *TwitterPublisher) { t.breaker = cb }
}

func NewTwitterPublisher(baseURL string, timeout time.Duration, opts ...TwitterOption) *TwitterPublisher {
	t := &TwitterPublisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  http.DefaultClient,
		breaker: newTwitterBreaker(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func newTwitterBreaker() circuitbreaker.CircuitBreaker[*http.Response] {
	return circuitbreaker.NewBuilder[*http.Response]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode >= 500
		}).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			slog.Warn("twitter circuit breaker state changed", "from", event.OldState, "to", event.NewState)
		}).
		Build()
}

// Publish verifies the token against the identity endpoint, then creates a
// tweet with the post caption.
func (t *TwitterPublisher) Publish(ctx context.Context, account *models.ConnectedAccount, post *models.ScheduledPost) (*Receipt, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	client := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, t.client),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: account.AccessToken, TokenType: "Bearer"}),
	)

	var user transfer.TwitterUserResponse
	if err := t.call(ctx, client, http.MethodGet, "/2/users/me", nil, &user); err != nil {
		return nil, err
	}

	var tweet transfer.TweetResponse
	if err := t.call(ctx, client, http.MethodPost, "/2/tweets", transfer.TweetRequest{Text: post.Caption}, &tweet); err != nil {
		return nil, err
	}
	if tweet.Data.ID == "" {
		return nil, Fail(ReasonNetworkOrTransient, "Twitter response did not include a tweet id")
	}

	return &Receipt{
		RemotePostID:  tweet.Data.ID,
		RemotePostURL: twitterStatusURL + tweet.Data.ID,
	}, nil
}

func (t *TwitterPublisher) call(ctx context.Context, client *http.Client, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return Transient(err)
		}
	}

	resp, err := failsafe.With[*http.Response](t.breaker).WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return client.Do(req)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return Fail(ReasonNetworkOrTransient, "Twitter is temporarily unavailable. Please try again later.")
		}
		return Transient(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTwitterBodySize))
	if err != nil {
		return Transient(err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Fail(ReasonTokenExpired, msgTwitterTokenExpired)
	case resp.StatusCode == http.StatusForbidden:
		return Fail(ReasonPermissionDenied, msgTwitterPermissionDenied)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return Fail(ReasonNetworkOrTransient, twitterErrorMessage(resp.StatusCode, data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return Transient(fmt.Errorf("decode twitter response: %w", err))
	}
	return nil
}

func twitterErrorMessage(status int, body []byte) string {
	var apiErr transfer.TwitterErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Detail != "" {
			return fmt.Sprintf("Twitter API error (%d): %s", status, apiErr.Detail)
		}
		if apiErr.Title != "" {
			return fmt.Sprintf("Twitter API error (%d): %s", status, apiErr.Title)
		}
	}
	return fmt.Sprintf("Twitter API error (%d)", status)
}

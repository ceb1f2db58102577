// Package platform holds the per-platform publish adapters and the registry
// that maps a platform tag to its adapter.
package platform

import (
	"context"
	"errors"

	"github.com/maheshrc27/crosspost/internal/models"
)

// Reason classifies why a publish attempt failed.
type Reason string

const (
	ReasonAccountNotConnected Reason = "account_not_connected"
	ReasonTokenExpired        Reason = "token_expired"
	ReasonPermissionDenied    Reason = "permission_denied"
	ReasonPlatformUnsupported Reason = "platform_unsupported"
	ReasonNetworkOrTransient  Reason = "network_or_transient_error"
)

// PublishError is the typed failure every adapter returns.
type PublishError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *PublishError) Error() string {
	return e.Message
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

func Fail(reason Reason, message string) *PublishError {
	return &PublishError{Reason: reason, Message: message}
}

// Transient wraps a transport level error.
func Transient(err error) *PublishError {
	return &PublishError{Reason: ReasonNetworkOrTransient, Message: err.Error(), Err: err}
}

// AsPublishError classifies any error. Errors that are not a *PublishError
// are treated as transient.
func AsPublishError(err error) *PublishError {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe
	}
	return Transient(err)
}

// Receipt identifies the remote post created by a successful publish.
type Receipt struct {
	RemotePostID  string
	RemotePostURL string
}

// Publisher performs one remote publish attempt. Failures are reported as
// *PublishError.
type Publisher interface {
	Publish(ctx context.Context, account *models.ConnectedAccount, post *models.ScheduledPost) (*Receipt, error)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, account *models.ConnectedAccount, post *models.ScheduledPost) (*Receipt, error)

func (f PublisherFunc) Publish(ctx context.Context, account *models.ConnectedAccount, post *models.ScheduledPost) (*Receipt, error) {
	return f(ctx, account, post)
}

package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_TotalOverPlatforms(t *testing.T) {
	twitter := PublisherFunc(func(context.Context, *models.ConnectedAccount, *models.ScheduledPost) (*Receipt, error) {
		return &Receipt{RemotePostID: "1"}, nil
	})
	reg := DefaultRegistry(twitter)

	for _, p := range models.Platforms {
		pub := reg.Lookup(p)
		require.NotNil(t, pub, p)

		receipt, err := pub.Publish(context.Background(), nil, &models.ScheduledPost{})
		if p == models.PlatformTwitter {
			require.NoError(t, err)
			assert.Equal(t, "1", receipt.RemotePostID)
			continue
		}
		require.Error(t, err)
		assert.Equal(t, ReasonPlatformUnsupported, AsPublishError(err).Reason)
	}
}

func TestRegistry_StubMessages(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Lookup(models.PlatformLinkedIn).Publish(context.Background(), nil, nil)
	assert.Equal(t, "LinkedIn integration coming soon! Currently only Twitter is supported.", err.Error())

	_, err = reg.Lookup(models.Platform("myspace")).Publish(context.Background(), nil, nil)
	assert.Equal(t, "Platform myspace not supported. Currently only Twitter is available.", err.Error())
	assert.Equal(t, ReasonPlatformUnsupported, AsPublishError(err).Reason)
}

func TestAsPublishError_WrapsPlainErrors(t *testing.T) {
	pe := AsPublishError(errors.New("connection reset"))
	assert.Equal(t, ReasonNetworkOrTransient, pe.Reason)
	assert.Equal(t, "connection reset", pe.Message)

	typed := Fail(ReasonPermissionDenied, "nope")
	assert.Same(t, typed, AsPublishError(typed))
}

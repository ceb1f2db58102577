package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to PostStatus
		want     bool
	}{
		{PostStatusPending, PostStatusProcessing, true},
		{PostStatusPending, PostStatusCancelled, true},
		{PostStatusPending, PostStatusPublished, false},
		{PostStatusProcessing, PostStatusPublished, true},
		{PostStatusProcessing, PostStatusFailed, true},
		{PostStatusProcessing, PostStatusPending, false},
		{PostStatusProcessing, PostStatusCancelled, false},
		{PostStatusPublished, PostStatusFailed, false},
		{PostStatusFailed, PostStatusPending, false},
		{PostStatusCancelled, PostStatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPostStatusTerminal(t *testing.T) {
	assert.False(t, PostStatusPending.IsTerminal())
	assert.False(t, PostStatusProcessing.IsTerminal())
	assert.True(t, PostStatusPublished.IsTerminal())
	assert.True(t, PostStatusFailed.IsTerminal())
	assert.True(t, PostStatusCancelled.IsTerminal())
}

func TestScheduledPostIsDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p := &ScheduledPost{Status: PostStatusPending, ScheduledTime: now.Add(-10 * time.Second)}
	assert.True(t, p.IsDue(now))

	p.ScheduledTime = now
	assert.True(t, p.IsDue(now), "scheduled exactly at now is due")

	p.ScheduledTime = now.Add(time.Second)
	assert.False(t, p.IsDue(now))

	p.ScheduledTime = now.Add(-time.Hour)
	p.Status = PostStatusPublished
	assert.False(t, p.IsDue(now))
}

func TestPlatformValid(t *testing.T) {
	for _, p := range Platforms {
		assert.True(t, p.Valid(), string(p))
	}
	assert.False(t, Platform("myspace").Valid())
	assert.Equal(t, "LinkedIn", PlatformLinkedIn.DisplayName())
	assert.Equal(t, "myspace", Platform("myspace").DisplayName())
}

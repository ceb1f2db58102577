package service

import (
	"time"
)

// tokenExpiry prefers an absolute expiry and falls back to an OAuth
// expires_in value counted from now.
func tokenExpiry(at *time.Time, expiresIn int, now time.Time) *time.Time {
	if at != nil {
		t := at.UTC()
		return &t
	}
	if expiresIn <= 0 {
		return nil
	}
	t := now.Add(time.Duration(expiresIn) * time.Second)
	return &t
}

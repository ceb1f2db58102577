package service

import (
	"testing"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAggregateStatus(t *testing.T) {
	ok := models.PublishResult{Success: true}
	bad := models.PublishResult{Success: false}

	cases := []struct {
		name    string
		results []models.PublishResult
		status  models.PostStatus
		audit   models.LogStatus
	}{
		{"all succeeded", []models.PublishResult{ok, ok}, models.PostStatusPublished, models.LogStatusSuccess},
		{"mixed", []models.PublishResult{ok, bad}, models.PostStatusFailed, models.LogStatusPartialFailure},
		{"all failed", []models.PublishResult{bad, bad}, models.PostStatusFailed, models.LogStatusFailure},
		{"empty", nil, models.PostStatusFailed, models.LogStatusFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, AggregateStatus(tc.results))
			assert.Equal(t, tc.audit, AuditStatus(tc.results))
		})
	}
}

package service

import "github.com/maheshrc27/crosspost/internal/models"

// AggregateStatus folds per-platform results into the post's final status:
// published only when there is at least one result and every result
// succeeded.
func AggregateStatus(results []models.PublishResult) models.PostStatus {
	if len(results) == 0 {
		return models.PostStatusFailed
	}
	for _, r := range results {
		if !r.Success {
			return models.PostStatusFailed
		}
	}
	return models.PostStatusPublished
}

// AuditStatus distinguishes a mixed outcome from a total failure for the
// audit trail. It does not affect the post status.
func AuditStatus(results []models.PublishResult) models.LogStatus {
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	switch {
	case len(results) > 0 && succeeded == len(results):
		return models.LogStatusSuccess
	case succeeded > 0:
		return models.LogStatusPartialFailure
	default:
		return models.LogStatusFailure
	}
}

package models

import "time"

type LogType string

const (
	LogTypePost          LogType = "post"
	LogTypeAutomation    LogType = "automation"
	LogTypeAuth          LogType = "auth"
	LogTypeSocialConnect LogType = "social_connect"
	LogTypeAI            LogType = "ai"
	LogTypeError         LogType = "error"
	LogTypeSystem        LogType = "system"
)

type LogStatus string

const (
	LogStatusSuccess        LogStatus = "success"
	LogStatusFailure        LogStatus = "failure"
	LogStatusWarning        LogStatus = "warning"
	LogStatusInfo           LogStatus = "info"
	LogStatusPartialFailure LogStatus = "partial_failure"
)

// LogEntry is an append-only audit record. Entries are never updated.
type LogEntry struct {
	ID           string         `db:"id" json:"id" bson:"_id"`
	OwnerID      string         `db:"owner_id" json:"owner_id,omitempty" bson:"owner_id,omitempty"`
	Type         LogType        `db:"type" json:"type" bson:"type"`
	Action       string         `db:"action" json:"action" bson:"action"`
	Status       LogStatus      `db:"status" json:"status" bson:"status"`
	Platform     Platform       `db:"platform" json:"platform,omitempty" bson:"platform,omitempty"`
	Details      map[string]any `db:"details" json:"details,omitempty" bson:"details,omitempty"`
	ErrorMessage string         `db:"error_message" json:"error_message,omitempty" bson:"error_message,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at" bson:"created_at"`
}

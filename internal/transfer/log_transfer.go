package transfer

import "github.com/maheshrc27/crosspost/internal/models"

type LogListResponse struct {
	Logs       []*models.LogEntry `json:"logs"`
	Pagination Pagination         `json:"pagination"`
}

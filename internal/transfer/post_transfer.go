package transfer

import (
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

type MediaInput struct {
	URL  string `json:"url" validate:"required,url"`
	Type string `json:"type" validate:"required,oneof=image video"`
}

type CreatePostRequest struct {
	Platforms     []string       `json:"platforms" validate:"required,min=1,unique,dive,platform"`
	Caption       string         `json:"caption" validate:"required,max=5000"`
	Hashtags      []string       `json:"hashtags" validate:"omitempty,dive,required,max=100"`
	Media         []MediaInput   `json:"media" validate:"omitempty,max=10,dive"`
	Metadata      map[string]any `json:"metadata"`
	ScheduledTime time.Time      `json:"scheduled_time" validate:"required"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type PostListResponse struct {
	Posts      []*models.ScheduledPost `json:"posts"`
	Pagination Pagination              `json:"pagination"`
}

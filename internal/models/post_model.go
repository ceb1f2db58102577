package models

import "time"

type PostStatus string

const (
	PostStatusPending    PostStatus = "pending"
	PostStatusProcessing PostStatus = "processing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
	PostStatusCancelled  PostStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s PostStatus) IsTerminal() bool {
	return s == PostStatusPublished || s == PostStatusFailed || s == PostStatusCancelled
}

// CanTransitionTo encodes the post lifecycle:
// pending -> processing | cancelled, processing -> published | failed.
func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	switch s {
	case PostStatusPending:
		return next == PostStatusProcessing || next == PostStatusCancelled
	case PostStatusProcessing:
		return next == PostStatusPublished || next == PostStatusFailed
	}
	return false
}

func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusPending, PostStatusProcessing, PostStatusPublished, PostStatusFailed, PostStatusCancelled:
		return true
	}
	return false
}

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

type MediaRef struct {
	URL  string    `json:"url" bson:"url"`
	Type MediaType `json:"type" bson:"type"`
}

type ScheduledPost struct {
	ID             string          `db:"id" json:"id" bson:"_id"`
	OwnerID        string          `db:"owner_id" json:"owner_id" bson:"owner_id"`
	Platforms      []Platform      `db:"platforms" json:"platforms" bson:"platforms"`
	Caption        string          `db:"caption" json:"caption" bson:"caption"`
	Hashtags       []string        `db:"hashtags" json:"hashtags" bson:"hashtags"`
	MediaRefs      []MediaRef      `db:"media_refs" json:"media_refs" bson:"media_refs"`
	Metadata       map[string]any  `db:"metadata" json:"metadata,omitempty" bson:"metadata,omitempty"`
	ScheduledTime  time.Time       `db:"scheduled_time" json:"scheduled_time" bson:"scheduled_time"`
	Status         PostStatus      `db:"status" json:"status" bson:"status"`
	PublishResults []PublishResult `db:"publish_results" json:"publish_results" bson:"publish_results"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// IsDue reports whether the post is eligible for a publish pass at now.
func (p *ScheduledPost) IsDue(now time.Time) bool {
	return p.Status == PostStatusPending && !p.ScheduledTime.After(now)
}

type PublishResult struct {
	Platform      Platform   `json:"platform" bson:"platform"`
	Success       bool       `json:"success" bson:"success"`
	RemotePostID  string     `json:"remote_post_id,omitempty" bson:"remote_post_id,omitempty"`
	RemotePostURL string     `json:"remote_post_url,omitempty" bson:"remote_post_url,omitempty"`
	Error         string     `json:"error,omitempty" bson:"error,omitempty"`
	Reason        string     `json:"reason,omitempty" bson:"reason,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty" bson:"published_at,omitempty"`
}

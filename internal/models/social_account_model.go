package models

import (
	"time"
)

type ConnectedAccount struct {
	ID             string     `db:"id" json:"id" bson:"_id"`
	OwnerID        string     `db:"owner_id" json:"owner_id" bson:"owner_id"`
	Platform       Platform   `db:"platform" json:"platform" bson:"platform"`
	PlatformUserID string     `db:"platform_user_id" json:"platform_user_id" bson:"platform_user_id"`
	Username       string     `db:"username" json:"username" bson:"username"`
	AccessToken    string     `db:"access_token" json:"-" bson:"access_token"`
	RefreshToken   string     `db:"refresh_token" json:"-" bson:"refresh_token,omitempty"`
	TokenExpiresAt *time.Time `db:"token_expires_at" json:"token_expires_at,omitempty" bson:"token_expires_at,omitempty"`
	IsActive       bool       `db:"is_active" json:"is_active" bson:"is_active"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

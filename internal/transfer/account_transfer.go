package transfer

import "time"

// ConnectAccountRequest stores a credential obtained by an external OAuth flow.
type ConnectAccountRequest struct {
	Platform       string     `json:"platform" validate:"required,platform"`
	PlatformUserID string     `json:"platform_user_id" validate:"required"`
	Username       string     `json:"username"`
	AccessToken    string     `json:"access_token" validate:"required"`
	RefreshToken   string     `json:"refresh_token"`
	TokenExpiresAt *time.Time `json:"token_expires_at"`
	ExpiresIn      int        `json:"expires_in" validate:"omitempty,min=1"`
}

// SignedRequest is the decoded payload of a Facebook signed_request.
type SignedRequest struct {
	UserID    string `json:"user_id"`
	Algorithm string `json:"algorithm"`
	IssuedAt  int64  `json:"issued_at"`
	Expires   int64  `json:"expires"`
}

type DataDeletionResponse struct {
	URL              string `json:"url"`
	ConfirmationCode string `json:"confirmation_code"`
}

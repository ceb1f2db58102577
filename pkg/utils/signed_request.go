package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/maheshrc27/crosspost/internal/transfer"
)

var ErrBadSignedRequest = errors.New("invalid signed request")

// ParseSignedRequest verifies a Facebook signed_request ("<sig>.<payload>",
// both base64url) against the app secret and decodes its payload.
func ParseSignedRequest(signedRequest, appSecret string) (*transfer.SignedRequest, error) {
	encodedSig, payload, ok := strings.Cut(signedRequest, ".")
	if !ok || encodedSig == "" || payload == "" || appSecret == "" {
		return nil, ErrBadSignedRequest
	}

	sig, err := decodeBase64URL(encodedSig)
	if err != nil {
		return nil, ErrBadSignedRequest
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(payload))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil, ErrBadSignedRequest
	}

	data, err := decodeBase64URL(payload)
	if err != nil {
		return nil, ErrBadSignedRequest
	}
	var req transfer.SignedRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, ErrBadSignedRequest
	}
	if req.UserID == "" {
		return nil, ErrBadSignedRequest
	}
	return &req, nil
}

func decodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

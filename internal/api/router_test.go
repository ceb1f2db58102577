package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository/repotest"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	store *repotest.Store
	cfg   *config.Config
	token string
	app   *fiber.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		SecretKey:         testSecret,
		CookieName:        "session",
		FrontendURL:       "https://app.example.com",
		FacebookAppSecret: "fb-secret",
	}
	store := repotest.NewStore()
	repos := store.Repositories()
	audit := service.NewAuditLogger(repos.Logs)
	cipher, err := utils.NewTokenCipher(cfg.SecretKey)
	require.NoError(t, err)

	app := NewApp(cfg, Services{
		Posts:    service.NewPostService(repos.Posts, repos.Accounts, audit, nil),
		Accounts: service.NewAccountService(repos.Accounts, audit, cipher, cfg.FacebookAppSecret, cfg.FrontendURL),
		Logs:     service.NewLogService(repos.Logs),
	})

	token, err := utils.GenerateToken(cfg.SecretKey, "u1", time.Hour)
	require.NoError(t, err)
	return &testServer{store: store, cfg: cfg, token: token, app: app}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestAPIRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/api/posts/scheduled", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/posts/scheduled", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err = s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/posts/scheduled", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: s.token})
	resp, err = s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPostLifecycle(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/api/posts/schedule", transfer.CreatePostRequest{
		Platforms: []string{"twitter"}, Caption: "hi", ScheduledTime: time.Now().Add(time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "twitter is not connected yet")
	assert.Contains(t, body["error"], "not all selected platforms are connected")

	resp, _ = s.do(t, http.MethodPost, "/api/social/accounts", transfer.ConnectAccountRequest{
		Platform: "twitter", PlatformUserID: "tw-1", Username: "alice", AccessToken: "secret-token",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/api/posts/schedule", transfer.CreatePostRequest{
		Platforms: []string{"twitter"}, Caption: "hi", ScheduledTime: time.Now().Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := body["post"].(map[string]any)
	id := post["id"].(string)
	assert.Equal(t, "pending", post["status"])

	resp, body = s.do(t, http.MethodGet, "/api/posts/scheduled?status=pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["posts"], 1)
	assert.EqualValues(t, 1, body["pagination"].(map[string]any)["total"])

	resp, _ = s.do(t, http.MethodGet, "/api/posts/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/posts/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = s.do(t, http.MethodPost, "/api/posts/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Only pending posts can be cancelled", body["error"])

	resp, _ = s.do(t, http.MethodDelete, "/api/posts/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, "/api/posts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeletePublishedPostIsRefused(t *testing.T) {
	s := newTestServer(t)
	s.store.PutPost(&models.ScheduledPost{ID: "p1", OwnerID: "u1", Status: models.PostStatusPublished})

	resp, body := s.do(t, http.MethodDelete, "/api/posts/p1", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Cannot delete a published or processing post", body["error"])
}

func TestAccountsNeverExposeTokens(t *testing.T) {
	s := newTestServer(t)
	s.store.PutAccount(&models.ConnectedAccount{ID: "a1", OwnerID: "u1", Platform: models.PlatformTwitter, AccessToken: "secret-token", IsActive: true})

	req := httptest.NewRequest(http.MethodGet, "/api/social/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(raw), "secret-token")

	resp, _ = s.do(t, http.MethodDelete, "/api/social/accounts/twitter", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, s.store.Account("u1", models.PlatformTwitter).IsActive)

	resp, _ = s.do(t, http.MethodDelete, "/api/social/accounts/linkedin", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogsFilterByType(t *testing.T) {
	s := newTestServer(t)
	logs := s.store.Repositories().Logs
	for i, typ := range []models.LogType{models.LogTypePost, models.LogTypeSocialConnect, models.LogTypePost} {
		require.NoError(t, logs.Create(t.Context(), &models.LogEntry{
			ID: string(rune('a' + i)), OwnerID: "u1", Type: typ, Action: "x", Status: models.LogStatusInfo,
		}))
	}

	resp, body := s.do(t, http.MethodGet, "/api/logs?type=post", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["logs"], 2)

	resp, _ = s.do(t, http.MethodGet, "/api/logs?type=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFacebookDataDeletion(t *testing.T) {
	s := newTestServer(t)
	s.store.PutAccount(&models.ConnectedAccount{OwnerID: "u1", Platform: models.PlatformFacebook, PlatformUserID: "fb-1", AccessToken: "t", IsActive: true})

	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"user_id":"fb-1","algorithm":"HMAC-SHA256"}`))
	mac := hmac.New(sha256.New, []byte("fb-secret"))
	mac.Write([]byte(payload))
	signed := base64.RawURLEncoding.EncodeToString(mac.Sum(nil)) + "." + payload

	form := url.Values{"signed_request": {signed}}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/facebook/data-deletion", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body transfer.DataDeletionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.ConfirmationCode)
	assert.True(t, strings.HasPrefix(body.URL, "https://app.example.com/data-deletion/status/"))
	assert.False(t, s.store.Account("u1", models.PlatformFacebook).IsActive)

	form = url.Values{"signed_request": {"bad.request"}}
	req = httptest.NewRequest(http.MethodPost, "/webhooks/facebook/data-deletion", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err = s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

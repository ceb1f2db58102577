package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/maheshrc27/crosspost/pkg/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const msgAccountNotConnected = "Account not connected or inactive"

// AccountResolver finds the active credential an owner holds for a platform.
type AccountResolver interface {
	// Resolve returns a *platform.PublishError with ReasonAccountNotConnected
	// when there is no active account.
	Resolve(ctx context.Context, ownerID string, p models.Platform) (*models.ConnectedAccount, error)
}

type accountResolver struct {
	accounts repository.SocialAccountRepository
	cipher   *utils.TokenCipher
}

func NewAccountResolver(accounts repository.SocialAccountRepository, cipher *utils.TokenCipher) AccountResolver {
	return &accountResolver{accounts: accounts, cipher: cipher}
}

func (r *accountResolver) Resolve(ctx context.Context, ownerID string, p models.Platform) (*models.ConnectedAccount, error) {
	acc, err := r.accounts.GetActive(ctx, ownerID, p)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, platform.Fail(platform.ReasonAccountNotConnected, msgAccountNotConnected)
	}
	if err != nil {
		return nil, platform.Transient(fmt.Errorf("resolving %s account: %w", p, err))
	}
	if !acc.IsActive || acc.AccessToken == "" {
		return nil, platform.Fail(platform.ReasonAccountNotConnected, msgAccountNotConnected)
	}

	resolved := *acc
	if resolved.AccessToken, err = r.cipher.Open(acc.AccessToken); err != nil {
		return nil, platform.Fail(platform.ReasonTokenExpired, "Stored access token could not be read. Please reconnect your account.")
	}
	if resolved.RefreshToken, err = r.cipher.Open(acc.RefreshToken); err != nil {
		resolved.RefreshToken = ""
	}
	return &resolved, nil
}

type AccountService interface {
	List(ctx context.Context, ownerID string) ([]*models.ConnectedAccount, error)
	Connect(ctx context.Context, ownerID string, req *transfer.ConnectAccountRequest) (*models.ConnectedAccount, error)
	Disconnect(ctx context.Context, ownerID string, p models.Platform) error
	// HandleDataDeletion processes a Facebook data-deletion callback.
	HandleDataDeletion(ctx context.Context, signedRequest string) (*transfer.DataDeletionResponse, error)
}

type accountService struct {
	accounts    repository.SocialAccountRepository
	audit       AuditLogger
	cipher      *utils.TokenCipher
	appSecret   string
	frontendURL string
	now         func() time.Time
}

func NewAccountService(
	accounts repository.SocialAccountRepository,
	audit AuditLogger,
	cipher *utils.TokenCipher,
	facebookAppSecret, frontendURL string) AccountService {
	return &accountService{
		accounts:    accounts,
		audit:       audit,
		cipher:      cipher,
		appSecret:   facebookAppSecret,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

func (s *accountService) List(ctx context.Context, ownerID string) ([]*models.ConnectedAccount, error) {
	accounts, err := s.accounts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accounts, nil
}

func (s *accountService) Connect(ctx context.Context, ownerID string, req *transfer.ConnectAccountRequest) (*models.ConnectedAccount, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	access, err := s.cipher.Seal(req.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("sealing access token: %w", err)
	}
	refresh, err := s.cipher.Seal(req.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("sealing refresh token: %w", err)
	}

	now := s.now().UTC()
	acc := &models.ConnectedAccount{
		ID:             id,
		OwnerID:        ownerID,
		Platform:       models.Platform(req.Platform),
		PlatformUserID: req.PlatformUserID,
		Username:       req.Username,
		AccessToken:    access,
		RefreshToken:   refresh,
		TokenExpiresAt: tokenExpiry(req.TokenExpiresAt, req.ExpiresIn, now),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.accounts.Upsert(ctx, acc); err != nil {
		return nil, fmt.Errorf("saving account: %w", err)
	}

	s.audit.Record(ctx, &models.LogEntry{
		OwnerID:  ownerID,
		Type:     models.LogTypeSocialConnect,
		Action:   "connected",
		Status:   models.LogStatusSuccess,
		Platform: acc.Platform,
		Details:  map[string]any{"username": acc.Username},
	})
	return acc, nil
}

func (s *accountService) Disconnect(ctx context.Context, ownerID string, p models.Platform) error {
	if !p.Valid() {
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, p)
	}
	if err := s.accounts.Deactivate(ctx, ownerID, p); err != nil {
		return fmt.Errorf("disconnecting %s: %w", p, err)
	}

	s.audit.Record(ctx, &models.LogEntry{
		OwnerID:  ownerID,
		Type:     models.LogTypeSocialConnect,
		Action:   "disconnected",
		Status:   models.LogStatusSuccess,
		Platform: p,
	})
	return nil
}

func (s *accountService) HandleDataDeletion(ctx context.Context, signedRequest string) (*transfer.DataDeletionResponse, error) {
	data, err := utils.ParseSignedRequest(signedRequest, s.appSecret)
	if err != nil {
		slog.Warn("rejected data deletion request", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	n, err := s.accounts.DeactivateByPlatformUser(ctx,
		[]models.Platform{models.PlatformFacebook, models.PlatformInstagram}, data.UserID)
	if err != nil {
		return nil, fmt.Errorf("deactivating accounts: %w", err)
	}

	code, err := gonanoid.Generate("0123456789abcdef", 32)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &models.LogEntry{
		Type:   models.LogTypeSystem,
		Action: "facebook_data_deletion_request",
		Status: models.LogStatusSuccess,
		Details: map[string]any{
			"facebook_user_id":     data.UserID,
			"confirmation_code":    code,
			"deactivated_accounts": n,
		},
	})

	return &transfer.DataDeletionResponse{
		URL:              fmt.Sprintf("%s/data-deletion/status/%s", s.frontendURL, code),
		ConfirmationCode: code,
	}, nil
}

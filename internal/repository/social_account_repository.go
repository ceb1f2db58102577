package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/maheshrc27/crosspost/internal/models"
)

type SocialAccountRepository interface {
	// Upsert stores the credential for (owner, platform), replacing any previous one.
	Upsert(ctx context.Context, acc *models.ConnectedAccount) error
	// GetActive returns ErrNotFound when the account is missing or inactive.
	GetActive(ctx context.Context, ownerID string, platform models.Platform) (*models.ConnectedAccount, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.ConnectedAccount, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.ConnectedAccount, error)
	Deactivate(ctx context.Context, ownerID string, platform models.Platform) error
	DeactivateByPlatformUser(ctx context.Context, platforms []models.Platform, platformUserID string) (int64, error)
}

const accountColumns = "id, owner_id, platform, platform_user_id, username, access_token, refresh_token, token_expires_at, is_active, created_at, updated_at"

type socialAccountRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db, sb: statementBuilder()}
}

func (r *socialAccountRepository) Upsert(ctx context.Context, acc *models.ConnectedAccount) error {
	query := `
		INSERT INTO connected_accounts (id, owner_id, platform, platform_user_id, username, access_token, refresh_token, token_expires_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (owner_id, platform) DO UPDATE SET
			platform_user_id = EXCLUDED.platform_user_id,
			username = EXCLUDED.username,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		acc.ID,
		acc.OwnerID,
		acc.Platform,
		acc.PlatformUserID,
		acc.Username,
		acc.AccessToken,
		acc.RefreshToken,
		acc.TokenExpiresAt,
		acc.IsActive,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) GetActive(ctx context.Context, ownerID string, platform models.Platform) (*models.ConnectedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM connected_accounts WHERE owner_id = $1 AND platform = $2 AND is_active = TRUE`
	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, ownerID, platform))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}
	return acc, nil
}

func (r *socialAccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.ConnectedAccount, error) {
	query, args, err := r.sb.Select(accountColumns).
		From("connected_accounts").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("platform ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build account list: %w", err)
	}
	return r.queryAccounts(ctx, query, args...)
}

func (r *socialAccountRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.ConnectedAccount, error) {
	query, args, err := r.sb.Select(accountColumns).
		From("connected_accounts").
		Where(sq.Eq{"is_active": true}).
		Where(sq.NotEq{"token_expires_at": nil}).
		Where(sq.LtOrEq{"token_expires_at": before}).
		OrderBy("token_expires_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build expiring account select: %w", err)
	}
	return r.queryAccounts(ctx, query, args...)
}

func (r *socialAccountRepository) Deactivate(ctx context.Context, ownerID string, platform models.Platform) error {
	query := `
		UPDATE connected_accounts
		SET is_active = FALSE,
			access_token = '',
			refresh_token = '',
			token_expires_at = NULL,
			updated_at = $1
		WHERE owner_id = $2 AND platform = $3 AND is_active = TRUE
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), ownerID, platform)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *socialAccountRepository) DeactivateByPlatformUser(ctx context.Context, platforms []models.Platform, platformUserID string) (int64, error) {
	query := `
		UPDATE connected_accounts
		SET is_active = FALSE,
			access_token = '',
			refresh_token = '',
			token_expires_at = NULL,
			updated_at = $1
		WHERE platform = ANY($2) AND platform_user_id = $3 AND is_active = TRUE
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), pq.Array(platformStrings(platforms)), platformUserID)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return affected, nil
}

func (r *socialAccountRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]*models.ConnectedAccount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.ConnectedAccount
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return accounts, nil
}

func scanAccount(row scanner) (*models.ConnectedAccount, error) {
	var (
		acc       models.ConnectedAccount
		refresh   sql.NullString
		expiresAt sql.NullTime
	)
	err := row.Scan(&acc.ID, &acc.OwnerID, &acc.Platform, &acc.PlatformUserID, &acc.Username,
		&acc.AccessToken, &refresh, &expiresAt, &acc.IsActive, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	acc.RefreshToken = refresh.String
	if expiresAt.Valid {
		t := expiresAt.Time
		acc.TokenExpiresAt = &t
	}
	return &acc, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scheduled_posts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		platforms TEXT[] NOT NULL,
		caption TEXT NOT NULL,
		hashtags TEXT[] NOT NULL DEFAULT '{}',
		media_refs JSONB NOT NULL DEFAULT '[]',
		metadata JSONB,
		scheduled_time TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		publish_results JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS scheduled_posts_due_idx ON scheduled_posts (status, scheduled_time)`,
	`CREATE INDEX IF NOT EXISTS scheduled_posts_owner_idx ON scheduled_posts (owner_id, status)`,
	`CREATE TABLE IF NOT EXISTS connected_accounts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		platform_user_id TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL DEFAULT '',
		refresh_token TEXT,
		token_expires_at TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (owner_id, platform)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		action TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'info',
		platform TEXT NOT NULL DEFAULT '',
		details JSONB,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_owner_idx ON audit_logs (owner_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_type_idx ON audit_logs (type, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_created_idx ON audit_logs (created_at)`,
}

// Migrate creates the tables and indexes when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return tx.Commit()
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/maheshrc27/crosspost/internal/models"
)

type LogFilter struct {
	Type models.LogType
	Page
}

type LogRepository interface {
	Create(ctx context.Context, entry *models.LogEntry) error
	ListByOwner(ctx context.Context, ownerID string, filter LogFilter) ([]*models.LogEntry, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

const logColumns = "id, owner_id, type, action, status, platform, details, error_message, created_at"

type logRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func NewLogRepository(db *sql.DB) LogRepository {
	return &logRepository{db: db, sb: statementBuilder()}
}

func (r *logRepository) Create(ctx context.Context, entry *models.LogEntry) error {
	details, err := marshalNullable(entry.Details)
	if err != nil {
		return fmt.Errorf("encode log details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (id, owner_id, type, action, status, platform, details, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.OwnerID,
		entry.Type,
		entry.Action,
		entry.Status,
		entry.Platform,
		details,
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *logRepository) ListByOwner(ctx context.Context, ownerID string, filter LogFilter) ([]*models.LogEntry, int64, error) {
	where := sq.Eq{"owner_id": ownerID}
	if filter.Type != "" {
		where["type"] = filter.Type
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("audit_logs").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build log count: %w", err)
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}

	query, args, err := r.sb.Select(logColumns).
		From("audit_logs").
		Where(where).
		OrderBy("created_at DESC").
		Limit(filter.limit()).
		Offset(filter.offset()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build log list: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*models.LogEntry
	for rows.Next() {
		var (
			entry   models.LogEntry
			details []byte
		)
		err := rows.Scan(&entry.ID, &entry.OwnerID, &entry.Type, &entry.Action, &entry.Status,
			&entry.Platform, &details, &entry.ErrorMessage, &entry.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, 0, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, 0, fmt.Errorf("decode log details: %w", err)
			}
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *logRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
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

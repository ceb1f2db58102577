package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const auditTimeout = 5 * time.Second

// AuditLogger appends audit entries. Record never fails the caller: write
// errors are logged and dropped.
type AuditLogger interface {
	Record(ctx context.Context, entry *models.LogEntry)
}

type auditLogger struct {
	logs repository.LogRepository
	now  func() time.Time
}

func NewAuditLogger(logs repository.LogRepository) AuditLogger {
	return &auditLogger{logs: logs, now: time.Now}
}

func (a *auditLogger) Record(ctx context.Context, entry *models.LogEntry) {
	if entry.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			slog.Error("audit id generation failed", "error", err)
			return
		}
		entry.ID = id
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := a.logs.Create(ctx, entry); err != nil {
		slog.Error("audit write failed",
			"error", err,
			"type", entry.Type,
			"action", entry.Action,
			"owner_id", entry.OwnerID,
		)
	}
}

type LogService interface {
	List(ctx context.Context, ownerID string, filter repository.LogFilter) ([]*models.LogEntry, int64, error)
}

type logService struct {
	logs repository.LogRepository
}

func NewLogService(logs repository.LogRepository) LogService {
	return &logService{logs: logs}
}

func (s *logService) List(ctx context.Context, ownerID string, filter repository.LogFilter) ([]*models.LogEntry, int64, error) {
	if filter.Type != "" && !validLogType(filter.Type) {
		return nil, 0, fmt.Errorf("%w: unknown log type %q", ErrInvalidInput, filter.Type)
	}
	logs, total, err := s.logs.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("listing logs: %w", err)
	}
	return logs, total, nil
}

func validLogType(t models.LogType) bool {
	switch t {
	case models.LogTypePost, models.LogTypeAutomation, models.LogTypeAuth, models.LogTypeSocialConnect,
		models.LogTypeAI, models.LogTypeError, models.LogTypeSystem:
		return true
	}
	return false
}

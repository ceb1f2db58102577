package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/maheshrc27/crosspost/internal/models"
)

type PostFilter struct {
	Status models.PostStatus
	Page
}

type PostRepository interface {
	Create(ctx context.Context, post *models.ScheduledPost) error
	GetByID(ctx context.Context, id string) (*models.ScheduledPost, error)
	ListByOwner(ctx context.Context, ownerID string, filter PostFilter) ([]*models.ScheduledPost, int64, error)
	// ListDue returns pending posts scheduled at or before now, oldest first.
	ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error)
	// Claim moves a post from pending to processing. It reports false when the
	// post was no longer pending.
	Claim(ctx context.Context, id string) (bool, error)
	// Complete writes the final status and results of a processing post.
	Complete(ctx context.Context, id string, status models.PostStatus, results []models.PublishResult) error
	Cancel(ctx context.Context, ownerID, id string) error
	Remove(ctx context.Context, ownerID, id string) error
	CountStaleProcessing(ctx context.Context, before time.Time) (int64, error)
}

const postColumns = "id, owner_id, platforms, caption, hashtags, media_refs, metadata, scheduled_time, status, publish_results, created_at, updated_at"

type postRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db, sb: statementBuilder()}
}

func (r *postRepository) Create(ctx context.Context, post *models.ScheduledPost) error {
	mediaRefs, err := json.Marshal(nonNil(post.MediaRefs))
	if err != nil {
		return fmt.Errorf("encode media refs: %w", err)
	}
	metadata, err := marshalNullable(post.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	results, err := json.Marshal(nonNil(post.PublishResults))
	if err != nil {
		return fmt.Errorf("encode publish results: %w", err)
	}

	query := `
		INSERT INTO scheduled_posts (id, owner_id, platforms, caption, hashtags, media_refs, metadata, scheduled_time, status, publish_results, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.ExecContext(ctx, query,
		post.ID,
		post.OwnerID,
		pq.Array(platformStrings(post.Platforms)),
		post.Caption,
		pq.Array(nonNil(post.Hashtags)),
		mediaRefs,
		metadata,
		post.ScheduledTime,
		post.Status,
		results,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByOwner(ctx context.Context, ownerID string, filter PostFilter) ([]*models.ScheduledPost, int64, error) {
	where := sq.Eq{"owner_id": ownerID}
	if filter.Status != "" {
		where["status"] = filter.Status
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("scheduled_posts").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build post count: %w", err)
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}

	listSQL, args, err := r.sb.Select(postColumns).
		From("scheduled_posts").
		Where(where).
		OrderBy("scheduled_time DESC").
		Limit(filter.limit()).
		Offset(filter.offset()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build post list: %w", err)
	}

	posts, err := r.queryPosts(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	query, args, err := r.sb.Select(postColumns).
		From("scheduled_posts").
		Where(sq.Eq{"status": models.PostStatusPending}).
		Where(sq.LtOrEq{"scheduled_time": now}).
		OrderBy("scheduled_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build due post select: %w", err)
	}
	return r.queryPosts(ctx, query, args...)
}

func (r *postRepository) Claim(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusProcessing, time.Now(), id, models.PostStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) Complete(ctx context.Context, id string, status models.PostStatus, results []models.PublishResult) error {
	if !models.PostStatusProcessing.CanTransitionTo(status) {
		return fmt.Errorf("cannot complete post with status %q", status)
	}
	encoded, err := json.Marshal(nonNil(results))
	if err != nil {
		return fmt.Errorf("encode publish results: %w", err)
	}

	query := `
		UPDATE scheduled_posts
		SET status = $1,
			publish_results = $2,
			updated_at = $3
		WHERE id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, status, encoded, time.Now(), id, models.PostStatusProcessing)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		return ErrConflict
	}
	return nil
}

func (r *postRepository) Cancel(ctx context.Context, ownerID, id string) error {
	query := `
		UPDATE scheduled_posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND owner_id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusCancelled, time.Now(), id, ownerID, models.PostStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return r.explainNoop(ctx, result, ownerID, id)
}

func (r *postRepository) Remove(ctx context.Context, ownerID, id string) error {
	query := `DELETE FROM scheduled_posts WHERE id = $1 AND owner_id = $2 AND status NOT IN ($3, $4)`
	result, err := r.db.ExecContext(ctx, query, id, ownerID, models.PostStatusPublished, models.PostStatusProcessing)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return r.explainNoop(ctx, result, ownerID, id)
}

func (r *postRepository) CountStaleProcessing(ctx context.Context, before time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM scheduled_posts WHERE status = $1 AND updated_at < $2`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, models.PostStatusProcessing, before).Scan(&n); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}

// explainNoop turns a conditional write that touched no rows into
// ErrNotFound or ErrConflict.
func (r *postRepository) explainNoop(ctx context.Context, result sql.Result, ownerID, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected == 1 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM scheduled_posts WHERE id = $1 AND owner_id = $2`, id, ownerID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		slog.Info(err.Error())
		return err
	}
	return ErrConflict
}

func (r *postRepository) queryPosts(ctx context.Context, query string, args ...any) ([]*models.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func scanPost(row scanner) (*models.ScheduledPost, error) {
	var (
		post      models.ScheduledPost
		platforms pq.StringArray
		hashtags  pq.StringArray
		mediaRefs []byte
		metadata  []byte
		results   []byte
	)
	err := row.Scan(&post.ID, &post.OwnerID, &platforms, &post.Caption, &hashtags, &mediaRefs,
		&metadata, &post.ScheduledTime, &post.Status, &results, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.Platforms = make([]models.Platform, len(platforms))
	for i, p := range platforms {
		post.Platforms[i] = models.Platform(p)
	}
	post.Hashtags = []string(hashtags)

	if len(mediaRefs) > 0 {
		if err := json.Unmarshal(mediaRefs, &post.MediaRefs); err != nil {
			return nil, fmt.Errorf("decode media refs: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &post.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &post.PublishResults); err != nil {
			return nil, fmt.Errorf("decode publish results: %w", err)
		}
	}
	return &post, nil
}

func platformStrings(platforms []models.Platform) []string {
	out := make([]string, len(platforms))
	for i, p := range platforms {
		out[i] = string(p)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func marshalNullable(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

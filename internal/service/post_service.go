package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Enqueuer schedules a one-off dispatch of a post at its scheduled time.
type Enqueuer interface {
	EnqueuePost(ctx context.Context, postID string, delay time.Duration) error
}

type PostService interface {
	Create(ctx context.Context, ownerID string, req *transfer.CreatePostRequest) (*models.ScheduledPost, error)
	List(ctx context.Context, ownerID string, filter repository.PostFilter) ([]*models.ScheduledPost, int64, error)
	Get(ctx context.Context, ownerID, postID string) (*models.ScheduledPost, error)
	Cancel(ctx context.Context, ownerID, postID string) error
	Remove(ctx context.Context, ownerID, postID string) error
}

type postService struct {
	posts    repository.PostRepository
	accounts repository.SocialAccountRepository
	audit    AuditLogger
	enqueuer Enqueuer
	now      func() time.Time
}

// NewPostService wires the post API. enqueuer may be nil, in which case due
// posts are picked up by the periodic publish pass only.
func NewPostService(
	posts repository.PostRepository,
	accounts repository.SocialAccountRepository,
	audit AuditLogger,
	enqueuer Enqueuer) PostService {
	return &postService{
		posts:    posts,
		accounts: accounts,
		audit:    audit,
		enqueuer: enqueuer,
		now:      time.Now,
	}
}

func (s *postService) Create(ctx context.Context, ownerID string, req *transfer.CreatePostRequest) (*models.ScheduledPost, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: post creation data is nil", ErrInvalidInput)
	}
	if err := validateStruct(req); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	platforms := make([]models.Platform, len(req.Platforms))
	var missing []string
	for i, name := range req.Platforms {
		p := models.Platform(name)
		platforms[i] = p
		_, err := s.accounts.GetActive(ctx, ownerID, p)
		if errors.Is(err, repository.ErrNotFound) {
			missing = append(missing, p.DisplayName())
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("checking %s account: %w", p, err)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: not all selected platforms are connected (%s)",
			ErrAccountNotConnected, strings.Join(missing, ", "))
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	media := make([]models.MediaRef, len(req.Media))
	for i, m := range req.Media {
		media[i] = models.MediaRef{URL: m.URL, Type: models.MediaType(m.Type)}
	}

	now := s.now().UTC()
	post := &models.ScheduledPost{
		ID:            id,
		OwnerID:       ownerID,
		Platforms:     platforms,
		Caption:       req.Caption,
		Hashtags:      req.Hashtags,
		MediaRefs:     media,
		Metadata:      req.Metadata,
		ScheduledTime: req.ScheduledTime.UTC(),
		Status:        models.PostStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	s.audit.Record(ctx, &models.LogEntry{
		OwnerID: ownerID,
		Type:    models.LogTypePost,
		Action:  "scheduled",
		Status:  models.LogStatusSuccess,
		Details: map[string]any{"post_id": post.ID, "platforms": req.Platforms},
	})

	if s.enqueuer != nil {
		delay := post.ScheduledTime.Sub(now)
		if delay < 0 {
			delay = 0
		}
		if err := s.enqueuer.EnqueuePost(ctx, post.ID, delay); err != nil {
			slog.Warn("enqueue failed, post left to the periodic pass", "post_id", post.ID, "error", err)
		}
	}

	return post, nil
}

func (s *postService) List(ctx context.Context, ownerID string, filter repository.PostFilter) ([]*models.ScheduledPost, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	posts, total, err := s.posts.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("listing posts: %w", err)
	}
	return posts, total, nil
}

func (s *postService) Get(ctx context.Context, ownerID, postID string) (*models.ScheduledPost, error) {
	if postID == "" {
		return nil, fmt.Errorf("%w: post id is required", ErrInvalidInput)
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return post, nil
}

func (s *postService) Cancel(ctx context.Context, ownerID, postID string) error {
	if err := s.posts.Cancel(ctx, ownerID, postID); err != nil {
		return fmt.Errorf("cancelling post %s: %w", postID, err)
	}
	s.audit.Record(ctx, &models.LogEntry{
		OwnerID: ownerID,
		Type:    models.LogTypePost,
		Action:  "cancelled",
		Status:  models.LogStatusInfo,
		Details: map[string]any{"post_id": postID},
	})
	return nil
}

func (s *postService) Remove(ctx context.Context, ownerID, postID string) error {
	if err := s.posts.Remove(ctx, ownerID, postID); err != nil {
		return fmt.Errorf("removing post %s: %w", postID, err)
	}
	return nil
}

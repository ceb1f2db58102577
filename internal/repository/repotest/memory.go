// Package repotest provides in-memory repositories for tests. They honour
// the same conditional-update rules as the database implementations.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
)

type Store struct {
	mu       sync.Mutex
	posts    map[string]*models.ScheduledPost
	accounts map[string]*models.ConnectedAccount
	logs     []*models.LogEntry

	postWrites int

	// CompleteErr, when set, is returned by every Complete call.
	CompleteErr error
	// LogErr, when set, is returned by every log Create call.
	LogErr error
	// OnClaim runs before a claim is evaluated, outside the lock.
	OnClaim func(id string)
}

func NewStore() *Store {
	return &Store{
		posts:    make(map[string]*models.ScheduledPost),
		accounts: make(map[string]*models.ConnectedAccount),
	}
}

// Repositories returns the store wired as a repository.Store.
func (s *Store) Repositories() *repository.Store {
	return &repository.Store{
		Posts:    &PostRepo{s: s},
		Accounts: &AccountRepo{s: s},
		Logs:     &LogRepo{s: s},
	}
}

func (s *Store) PutPost(p *models.ScheduledPost) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.ID] = clonePost(p)
}

func (s *Store) Post(id string) *models.ScheduledPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil
	}
	return clonePost(p)
}

func (s *Store) PutAccount(a *models.ConnectedAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[accountKey(a.OwnerID, a.Platform)] = &cp
}

func (s *Store) Account(ownerID string, p models.Platform) *models.ConnectedAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountKey(ownerID, p)]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

func (s *Store) Logs() []*models.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// PostWrites counts every mutation applied to posts.
func (s *Store) PostWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.postWrites
}

func accountKey(ownerID string, p models.Platform) string {
	return ownerID + "|" + string(p)
}

func clonePost(p *models.ScheduledPost) *models.ScheduledPost {
	cp := *p
	cp.Platforms = append([]models.Platform(nil), p.Platforms...)
	cp.Hashtags = append([]string(nil), p.Hashtags...)
	cp.MediaRefs = append([]models.MediaRef(nil), p.MediaRefs...)
	cp.PublishResults = append([]models.PublishResult(nil), p.PublishResults...)
	return &cp
}

func paginate[T any](items []T, page repository.Page) []T {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = 10
	}
	start := (page.Page - 1) * page.Limit
	if start >= len(items) {
		return nil
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type PostRepo struct{ s *Store }

func (r *PostRepo) Create(_ context.Context, post *models.ScheduledPost) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.posts[post.ID] = clonePost(post)
	r.s.postWrites++
	return nil
}

func (r *PostRepo) GetByID(_ context.Context, id string) (*models.ScheduledPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePost(p), nil
}

func (r *PostRepo) ListByOwner(_ context.Context, ownerID string, filter repository.PostFilter) ([]*models.ScheduledPost, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*models.ScheduledPost
	for _, p := range r.s.posts {
		if p.OwnerID != ownerID || (filter.Status != "" && p.Status != filter.Status) {
			continue
		}
		matched = append(matched, clonePost(p))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ScheduledTime.After(matched[j].ScheduledTime)
	})
	return paginate(matched, filter.Page), int64(len(matched)), nil
}

func (r *PostRepo) ListDue(_ context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var due []*models.ScheduledPost
	for _, p := range r.s.posts {
		if p.IsDue(now) {
			due = append(due, clonePost(p))
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledTime.Before(due[j].ScheduledTime)
	})
	return due, nil
}

func (r *PostRepo) Claim(_ context.Context, id string) (bool, error) {
	if r.s.OnClaim != nil {
		r.s.OnClaim(id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok || p.Status != models.PostStatusPending {
		return false, nil
	}
	p.Status = models.PostStatusProcessing
	p.UpdatedAt = time.Now()
	r.s.postWrites++
	return true, nil
}

func (r *PostRepo) Complete(_ context.Context, id string, status models.PostStatus, results []models.PublishResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.CompleteErr != nil {
		return r.s.CompleteErr
	}
	p, ok := r.s.posts[id]
	if !ok || p.Status != models.PostStatusProcessing || !p.Status.CanTransitionTo(status) {
		return repository.ErrConflict
	}
	p.Status = status
	p.PublishResults = append([]models.PublishResult(nil), results...)
	p.UpdatedAt = time.Now()
	r.s.postWrites++
	return nil
}

func (r *PostRepo) Cancel(_ context.Context, ownerID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok || p.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	if p.Status != models.PostStatusPending {
		return repository.ErrConflict
	}
	p.Status = models.PostStatusCancelled
	p.UpdatedAt = time.Now()
	r.s.postWrites++
	return nil
}

func (r *PostRepo) Remove(_ context.Context, ownerID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok || p.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	if p.Status == models.PostStatusPublished || p.Status == models.PostStatusProcessing {
		return repository.ErrConflict
	}
	delete(r.s.posts, id)
	r.s.postWrites++
	return nil
}

func (r *PostRepo) CountStaleProcessing(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.posts {
		if p.Status == models.PostStatusProcessing && p.UpdatedAt.Before(before) {
			n++
		}
	}
	return n, nil
}

type AccountRepo struct{ s *Store }

func (r *AccountRepo) Upsert(_ context.Context, acc *models.ConnectedAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *acc
	r.s.accounts[accountKey(acc.OwnerID, acc.Platform)] = &cp
	return nil
}

func (r *AccountRepo) GetActive(_ context.Context, ownerID string, p models.Platform) (*models.ConnectedAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[accountKey(ownerID, p)]
	if !ok || !a.IsActive {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AccountRepo) ListByOwner(_ context.Context, ownerID string) ([]*models.ConnectedAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ConnectedAccount
	for _, a := range r.s.accounts {
		if a.OwnerID == ownerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (r *AccountRepo) ListExpiring(_ context.Context, before time.Time) ([]*models.ConnectedAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ConnectedAccount
	for _, a := range r.s.accounts {
		if a.IsActive && a.TokenExpiresAt != nil && !a.TokenExpiresAt.After(before) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenExpiresAt.Before(*out[j].TokenExpiresAt) })
	return out, nil
}

func (r *AccountRepo) Deactivate(_ context.Context, ownerID string, p models.Platform) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[accountKey(ownerID, p)]
	if !ok {
		return repository.ErrNotFound
	}
	deactivate(a)
	return nil
}

func (r *AccountRepo) DeactivateByPlatformUser(_ context.Context, platforms []models.Platform, platformUserID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.accounts {
		if a.PlatformUserID != platformUserID {
			continue
		}
		for _, p := range platforms {
			if a.Platform == p {
				deactivate(a)
				n++
				break
			}
		}
	}
	return n, nil
}

func deactivate(a *models.ConnectedAccount) {
	a.IsActive = false
	a.AccessToken = ""
	a.RefreshToken = ""
	a.TokenExpiresAt = nil
	a.UpdatedAt = time.Now()
}

type LogRepo struct{ s *Store }

func (r *LogRepo) Create(_ context.Context, entry *models.LogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.LogErr != nil {
		return r.s.LogErr
	}
	cp := *entry
	r.s.logs = append(r.s.logs, &cp)
	return nil
}

func (r *LogRepo) ListByOwner(_ context.Context, ownerID string, filter repository.LogFilter) ([]*models.LogEntry, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*models.LogEntry
	for i := len(r.s.logs) - 1; i >= 0; i-- {
		l := r.s.logs[i]
		if l.OwnerID != ownerID || (filter.Type != "" && l.Type != filter.Type) {
			continue
		}
		cp := *l
		matched = append(matched, &cp)
	}
	return paginate(matched, filter.Page), int64(len(matched)), nil
}

func (r *LogRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.logs[:0]
	var n int64
	for _, l := range r.s.logs {
		if l.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	r.s.logs = kept
	return n, nil
}

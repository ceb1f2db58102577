package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/maheshrc27/crosspost/internal/models"
)

// Registry maps a platform tag to its Publisher. Lookups never return nil:
// tags without an implementation resolve to a publisher that reports
// ReasonPlatformUnsupported.
type Registry struct {
	mu         sync.RWMutex
	publishers map[models.Platform]Publisher
}

func NewRegistry() *Registry {
	return &Registry{publishers: make(map[models.Platform]Publisher)}
}

// DefaultRegistry registers twitter and a coming-soon stub for every other
// known platform.
func DefaultRegistry(twitter Publisher) *Registry {
	r := NewRegistry()
	for _, p := range models.Platforms {
		r.Register(p, ComingSoon(p))
	}
	r.Register(models.PlatformTwitter, twitter)
	return r
}

func (r *Registry) Register(p models.Platform, pub Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers[p] = pub
}

func (r *Registry) Lookup(p models.Platform) Publisher {
	r.mu.RLock()
	pub, ok := r.publishers[p]
	r.mu.RUnlock()
	if ok && pub != nil {
		return pub
	}
	if p.Valid() {
		return ComingSoon(p)
	}
	return Unsupported(p)
}

type stubPublisher struct {
	message string
}

func (s stubPublisher) Publish(context.Context, *models.ConnectedAccount, *models.ScheduledPost) (*Receipt, error) {
	return nil, Fail(ReasonPlatformUnsupported, s.message)
}

// ComingSoon is the placeholder adapter for a known platform that has no
// implementation yet.
func ComingSoon(p models.Platform) Publisher {
	return stubPublisher{
		message: fmt.Sprintf("%s integration coming soon! Currently only Twitter is supported.", p.DisplayName()),
	}
}

// Unsupported is the adapter for a tag outside the platform enum.
func Unsupported(p models.Platform) Publisher {
	return stubPublisher{
		message: fmt.Sprintf("Platform %s not supported. Currently only Twitter is available.", p),
	}
}

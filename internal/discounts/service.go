package discounts

import (
	"context"
	"errors"
	"time"
)

// RepositoryPort defines data access for the policy singleton.
type RepositoryPort interface {
	Get(ctx context.Context) (Policy, error)
	Update(ctx context.Context, input PolicyInput) (Policy, error)
}

// Service handles discount policy business logic.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Current returns the active policy configuration, served from cache when
// possible.
func (s *Service) Current(ctx context.Context) (Policy, error) {
	return s.cache.Fetch(ctx, s.repo.Get)
}

// Update replaces the configuration. Percentage is clamped to [0,100] here,
// at configuration time, so the pricing engine can trust its input.
func (s *Service) Update(ctx context.Context, input PolicyInput) (Policy, error) {
	if input.Percent < 0 {
		input.Percent = 0
	}
	if input.Percent > 100 {
		input.Percent = 100
	}
	policy, err := s.repo.Update(ctx, input)
	if err != nil {
		return Policy{}, err
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// WithinWindow reports discount-window state at asOf using the current
// configuration.
func (s *Service) WithinWindow(ctx context.Context, asOf time.Time) (bool, error) {
	policy, err := s.Current(ctx)
	if err != nil {
		return false, err
	}
	return policy.WithinWindow(asOf), nil
}

// Warm primes the cache, used by the background worker after invalidation.
func (s *Service) Warm(ctx context.Context) error {
	if s == nil {
		return errors.New("discounts: service not configured")
	}
	_, err := s.Current(ctx)
	return err
}

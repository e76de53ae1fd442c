package token

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-push-relay/internal/domain"
)

type configStore interface {
	Get(ctx context.Context) (*domain.DeliveryConfig, error)
	Put(ctx context.Context, c *domain.DeliveryConfig) error
	UpdateToken(ctx context.Context, token string) error
}

type tokenFetcher interface {
	FetchToken(ctx context.Context) (string, error)
}

// Store owns the delivery-service auth token lifecycle: it serves the cached
// token, lazily creates the single delivery config row (fetching a fresh
// token upstream when none is stored), applies Update-Client-Auth pushes and
// drops the cache after an auth failure.
//
// The mutex guards the cache and makes the lazy config load single-flight.
// Callers resolve the token first and perform the delivery POST afterwards,
// so the lock is never held across a send.
type Store struct {
	repo            configStore
	auth            tokenFetcher
	defaultEndpoint string

	mu             sync.Mutex
	cachedToken    string
	cachedEndpoint string
}

func NewStore(repo configStore, auth tokenFetcher, defaultEndpoint string) *Store {
	return &Store{repo: repo, auth: auth, defaultEndpoint: defaultEndpoint}
}

// GetToken returns the cached token, loading the delivery config from the
// store first when the cache is empty. A config row with no token triggers an
// upstream fetch; failure of that fetch surfaces domain.ErrAuthUnavailable.
func (s *Store) GetToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cachedToken != "" {
		return s.cachedToken, nil
	}
	cfg, err := s.loadConfigLocked(ctx)
	if err != nil {
		return "", err
	}
	s.cachedToken = cfg.AuthToken
	s.cachedEndpoint = cfg.Endpoint
	return s.cachedToken, nil
}

// Endpoint returns the delivery service URL from the same config row.
func (s *Store) Endpoint(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cachedEndpoint != "" {
		return s.cachedEndpoint, nil
	}
	cfg, err := s.loadConfigLocked(ctx)
	if err != nil {
		return "", err
	}
	s.cachedEndpoint = cfg.Endpoint
	return s.cachedEndpoint, nil
}

// UpdateToken persists a replacement token signalled by the delivery service
// and updates the cache. No-op for an empty token.
func (s *Store) UpdateToken(ctx context.Context, newToken string) error {
	if newToken == "" {
		return nil
	}
	if err := s.repo.UpdateToken(ctx, newToken); err != nil {
		return fmt.Errorf("persist updated token: %w", err)
	}
	s.mu.Lock()
	s.cachedToken = newToken
	s.mu.Unlock()
	return nil
}

// InvalidateCachedToken drops the in-memory copy after an auth failure. The
// next GetToken reloads from the store, which another process may have
// refreshed in the meantime.
func (s *Store) InvalidateCachedToken() {
	s.mu.Lock()
	s.cachedToken = ""
	s.mu.Unlock()
}

func (s *Store) loadConfigLocked(ctx context.Context) (*domain.DeliveryConfig, error) {
	cfg, err := s.repo.Get(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cfg = &domain.DeliveryConfig{Endpoint: s.defaultEndpoint}
	case err != nil:
		return nil, fmt.Errorf("load delivery config: %w", err)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = s.defaultEndpoint
	}
	if cfg.AuthToken == "" {
		tok, fetchErr := s.auth.FetchToken(ctx)
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch fresh token: %v: %w", fetchErr, domain.ErrAuthUnavailable)
		}
		cfg.AuthToken = tok
		if err := s.repo.Put(ctx, cfg); err != nil {
			return nil, fmt.Errorf("persist delivery config: %w", err)
		}
	}
	return cfg, nil
}

package token

import (
	"context"
	"errors"
	"testing"

	"github.com/go-push-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockConfigStore struct{ mock.Mock }

func (m *mockConfigStore) Get(ctx context.Context) (*domain.DeliveryConfig, error) {
	args := m.Called(ctx)
	if c, _ := args.Get(0).(*domain.DeliveryConfig); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockConfigStore) Put(ctx context.Context, c *domain.DeliveryConfig) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockConfigStore) UpdateToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) FetchToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

const endpoint = "https://delivery.example.com/send"

func storedConfig(tok string) *domain.DeliveryConfig {
	return &domain.DeliveryConfig{ConfigID: domain.DeliveryConfigID, AuthToken: tok, Endpoint: endpoint}
}

// --- tests ---

func TestGetToken_LoadsFromStoreOnce(t *testing.T) {
	repo, fetcher := &mockConfigStore{}, &mockFetcher{}
	repo.On("Get", mock.Anything).Return(storedConfig("tok-1"), nil).Once()

	s := NewStore(repo, fetcher, endpoint)

	tok, err := s.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	// Second call served from cache — no further store reads.
	tok, err = s.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	repo.AssertNumberOfCalls(t, "Get", 1)
	fetcher.AssertNotCalled(t, "FetchToken", mock.Anything)
}

func TestGetToken_FetchesFreshWhenConfigAbsent(t *testing.T) {
	repo, fetcher := &mockConfigStore{}, &mockFetcher{}
	repo.On("Get", mock.Anything).Return(nil, domain.ErrNotFound)
	fetcher.On("FetchToken", mock.Anything).Return("fresh", nil)
	repo.On("Put", mock.Anything, mock.MatchedBy(func(c *domain.DeliveryConfig) bool {
		return c.AuthToken == "fresh" && c.Endpoint == endpoint
	})).Return(nil)

	s := NewStore(repo, fetcher, endpoint)

	tok, err := s.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
	repo.AssertCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestGetToken_FetchesFreshWhenStoredTokenEmpty(t *testing.T) {
	repo, fetcher := &mockConfigStore{}, &mockFetcher{}
	repo.On("Get", mock.Anything).Return(storedConfig(""), nil)
	fetcher.On("FetchToken", mock.Anything).Return("fresh", nil)
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)

	s := NewStore(repo, fetcher, endpoint)

	tok, err := s.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
}

func TestGetToken_AuthUnavailable(t *testing.T) {
	repo, fetcher := &mockConfigStore{}, &mockFetcher{}
	repo.On("Get", mock.Anything).Return(nil, domain.ErrNotFound)
	fetcher.On("FetchToken", mock.Anything).Return("", errors.New("upstream down"))

	s := NewStore(repo, fetcher, endpoint)

	_, err := s.GetToken(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAuthUnavailable))
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestUpdateToken_PersistsAndCaches(t *testing.T) {
	repo, fetcher := &mockConfigStore{}, &mockFetcher{}
	repo.On("UpdateToken", mock.Anything, "tok-2").Return(nil)

	s := NewStore(repo, fetcher, endpoint)
	require.NoError(t, s.UpdateToken(context.Background(), "tok-2"))

	// Cache was primed by the update; GetToken must not touch the store.
	tok, err := s.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	repo.AssertNotCalled(t, "Get", mock.Anything)
}

func TestUpdateToken_EmptyIsNoOp(t *testing.T) {
	repo, fetcher := &mockConfigStore{}, &mockFetcher{}

	s := NewStore(repo, fetcher, endpoint)
	require.NoError(t, s.UpdateToken(context.Background(), ""))
	repo.AssertNotCalled(t, "UpdateToken", mock.Anything, mock.Anything)
}

func TestInvalidateCachedToken_ForcesStoreReload(t *testing.T) {
	repo, fetcher := &mockConfigStore{}, &mockFetcher{}
	repo.On("Get", mock.Anything).Return(storedConfig("tok-1"), nil).Once()
	// A concurrent process refreshed the stored token in the meantime.
	repo.On("Get", mock.Anything).Return(storedConfig("tok-2"), nil).Once()

	s := NewStore(repo, fetcher, endpoint)

	tok, err := s.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	s.InvalidateCachedToken()

	tok, err = s.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	repo.AssertNumberOfCalls(t, "Get", 2)
}

func TestEndpoint_DefaultsWhenUnset(t *testing.T) {
	repo, fetcher := &mockConfigStore{}, &mockFetcher{}
	repo.On("Get", mock.Anything).Return(&domain.DeliveryConfig{AuthToken: "tok-1"}, nil)

	s := NewStore(repo, fetcher, endpoint)

	got, err := s.Endpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, endpoint, got)
}

package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sellerhub/backend/internal/domain/account"
	"github.com/sellerhub/backend/internal/domain/credential"
	"github.com/sellerhub/backend/internal/pkg/errors"
	"github.com/sellerhub/backend/internal/pkg/logger"
)

// NewTestLogger returns a quiet logger for tests
func NewTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

// MemBlobStore is an in-memory storage.BlobStore
type MemBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	GetError error
	PutError error
}

func NewMemBlobStore() *MemBlobStore {
	return &MemBlobStore{blobs: make(map[string][]byte)}
}

func (m *MemBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[key]
	if !ok {
		return nil, nil
	}
	copied := make([]byte, len(blob))
	copy(copied, blob)
	return copied, nil
}

func (m *MemBlobStore) Put(ctx context.Context, key string, value []byte) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]byte, len(value))
	copy(copied, value)
	m.blobs[key] = copied
	return nil
}

func (m *MemBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *MemBlobStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemBlobStore) Close() error { return nil }

// Len reports the number of stored blobs
func (m *MemBlobStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// MockTokenBackend is a configurable credential.TokenBackend that
// counts calls
type MockTokenBackend struct {
	ExchangeGrant *credential.TokenGrant
	ExchangeError error
	RefreshGrant  *credential.TokenGrant
	RefreshError  error

	exchangeCalls int64
	refreshCalls  int64
}

func (m *MockTokenBackend) ExchangeCode(ctx context.Context, code string) (*credential.TokenGrant, error) {
	atomic.AddInt64(&m.exchangeCalls, 1)
	if m.ExchangeError != nil {
		return nil, m.ExchangeError
	}
	return m.ExchangeGrant, nil
}

func (m *MockTokenBackend) RefreshToken(ctx context.Context, accountID, refreshToken string) (*credential.TokenGrant, error) {
	atomic.AddInt64(&m.refreshCalls, 1)
	if m.RefreshError != nil {
		return nil, m.RefreshError
	}
	return m.RefreshGrant, nil
}

func (m *MockTokenBackend) ExchangeCalls() int { return int(atomic.LoadInt64(&m.exchangeCalls)) }
func (m *MockTokenBackend) RefreshCalls() int  { return int(atomic.LoadInt64(&m.refreshCalls)) }

// MockTokenSource is a fixed-token services.TokenSource
type MockTokenSource struct {
	Token      string
	TokenError error
	URL        string

	Errors map[string]error // per-account overrides
}

func (m *MockTokenSource) AuthorizationURL(state string) (string, string, error) {
	if state == "" {
		state = "generated-state"
	}
	return m.URL + "?state=" + state, state, nil
}

func (m *MockTokenSource) ValidToken(ctx context.Context, accountID string) (string, error) {
	if err, ok := m.Errors[accountID]; ok {
		return "", err
	}
	if m.TokenError != nil {
		return "", m.TokenError
	}
	return m.Token, nil
}

// MockMarketClient is a marketplace client test double with per-fetch
// error injection
type MockMarketClient struct {
	ProfileResult    *account.Profile
	SummaryResult    *account.Summary
	ListingsResult   []account.Listing
	OrdersResult     []account.Order
	ReputationResult *account.Reputation

	ProfileError    error
	SummaryError    error
	ListingsError   error
	OrdersError     error
	ReputationError error

	// ReputationGate, when set, blocks the reputation fetch until the
	// channel is closed
	ReputationGate chan struct{}

	calls int64
}

func (m *MockMarketClient) Profile(ctx context.Context) (*account.Profile, error) {
	atomic.AddInt64(&m.calls, 1)
	if m.ProfileError != nil {
		return nil, m.ProfileError
	}
	if m.ProfileResult != nil {
		return m.ProfileResult, nil
	}
	return &account.Profile{ID: "seller", Nickname: "SELLER"}, nil
}

func (m *MockMarketClient) Summary(ctx context.Context) (*account.Summary, error) {
	atomic.AddInt64(&m.calls, 1)
	if m.SummaryError != nil {
		return nil, m.SummaryError
	}
	if m.SummaryResult != nil {
		return m.SummaryResult, nil
	}
	return &account.Summary{}, nil
}

func (m *MockMarketClient) Listings(ctx context.Context) ([]account.Listing, error) {
	atomic.AddInt64(&m.calls, 1)
	if m.ListingsError != nil {
		return nil, m.ListingsError
	}
	return m.ListingsResult, nil
}

func (m *MockMarketClient) RecentOrders(ctx context.Context) ([]account.Order, error) {
	atomic.AddInt64(&m.calls, 1)
	if m.OrdersError != nil {
		return nil, m.OrdersError
	}
	return m.OrdersResult, nil
}

func (m *MockMarketClient) Reputation(ctx context.Context) (*account.Reputation, error) {
	atomic.AddInt64(&m.calls, 1)
	if m.ReputationGate != nil {
		<-m.ReputationGate
	}
	if m.ReputationError != nil {
		return nil, m.ReputationError
	}
	if m.ReputationResult != nil {
		return m.ReputationResult, nil
	}
	return &account.Reputation{Level: "green"}, nil
}

func (m *MockMarketClient) Calls() int { return int(atomic.LoadInt64(&m.calls)) }

// RefreshInvalidError builds the error the backend returns for a
// rejected refresh token
func RefreshInvalidError() error {
	return errors.RefreshInvalid("refresh token rejected", nil)
}

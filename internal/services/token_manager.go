package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	stderrors "errors"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/sellerhub/backend/internal/domain/credential"
	"github.com/sellerhub/backend/internal/pkg/errors"
	"github.com/sellerhub/backend/internal/pkg/logger"
	"github.com/sellerhub/backend/internal/pkg/metrics"
)

// stateTTL bounds how long an issued CSRF state stays redeemable
const stateTTL = 10 * time.Minute

// TokenManager keeps each account's access token usable. It never
// handles the client secret; code exchanges and refreshes are delegated
// to the trusted token backend.
type TokenManager struct {
	store   credential.Store
	backend credential.TokenBackend
	oauth   *oauth2.Config
	logger  *logger.Logger
	now     func() time.Time

	group singleflight.Group

	mu     sync.Mutex
	states map[string]time.Time
}

// TokenManagerOptions configures a TokenManager
type TokenManagerOptions struct {
	Store       credential.Store
	Backend     credential.TokenBackend
	ClientID    string
	AuthURL     string
	RedirectURL string
	Logger      *logger.Logger
}

// NewTokenManager creates a token lifecycle manager
func NewTokenManager(opts TokenManagerOptions) *TokenManager {
	return &TokenManager{
		store:   opts.Store,
		backend: opts.Backend,
		oauth: &oauth2.Config{
			ClientID:    opts.ClientID,
			RedirectURL: opts.RedirectURL,
			Endpoint:    oauth2.Endpoint{AuthURL: opts.AuthURL},
		},
		logger: opts.Logger,
		now:    time.Now,
		states: make(map[string]time.Time),
	}
}

// AuthorizationURL builds the external authorization URL. When state is
// empty a cryptographically random one is generated. The state is
// recorded for later verification in HandleCallback.
func (m *TokenManager) AuthorizationURL(state string) (url, usedState string, err error) {
	if state == "" {
		state, err = randomState()
		if err != nil {
			return "", "", errors.Internal("failed to generate state token", err)
		}
	}

	m.mu.Lock()
	m.pruneStatesLocked()
	m.states[state] = m.now()
	m.mu.Unlock()

	return m.oauth.AuthCodeURL(state), state, nil
}

// HandleCallback verifies the CSRF state, exchanges the authorization
// code through the token backend and persists the linked account. The
// authorization code is never logged.
func (m *TokenManager) HandleCallback(ctx context.Context, code, state string) (*credential.AccountCredential, error) {
	if code == "" {
		return nil, errors.Validation("authorization code is required", nil)
	}
	if !m.consumeState(state) {
		return nil, errors.Csrf("authorization state mismatch")
	}

	grant, err := m.backend.ExchangeCode(ctx, code)
	if err != nil {
		m.logger.ErrorWithErr(err, "Code exchange failed")
		// A transient backend outage is not an auth failure; keep the
		// backend's own classification when it has one
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeUnauthorized, "code exchange failed", 401)
	}
	if grant.Account == nil || grant.Account.ID == "" {
		return nil, errors.Internal("token backend returned no account identity", nil)
	}

	cred := &credential.AccountCredential{
		AccountID:    grant.Account.ID,
		Nickname:     grant.Account.Nickname,
		Email:        grant.Account.Email,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    m.expiryFrom(grant),
		Active:       true,
	}

	stored, err := m.store.Save(ctx, cred)
	if err != nil {
		return nil, err
	}

	m.logger.WithFields(map[string]interface{}{
		"account_id": stored.AccountID,
		"nickname":   stored.Nickname,
	}).Info("Account linked")

	return stored, nil
}

// Refresh exchanges the stored refresh token for a new grant. When the
// backend reports the refresh token itself is invalid, the account is
// deactivated instead of retried.
func (m *TokenManager) Refresh(ctx context.Context, accountID string) (string, error) {
	cred, err := m.store.Get(ctx, accountID)
	if err != nil {
		// An undecryptable credential can never refresh; deactivate it
		// so the account stops being retried every run
		if errors.IsDecryption(err) {
			m.logger.With("account_id", accountID).Warn("Stored credential cannot be decrypted, deactivating account")
			if deactivateErr := m.store.SetActive(ctx, accountID, false); deactivateErr != nil {
				m.logger.ErrorWithErr(deactivateErr, "Failed to deactivate account")
			}
		}
		return "", err
	}
	if cred == nil {
		return "", errors.NotFound("credential")
	}

	grant, err := m.backend.RefreshToken(ctx, accountID, cred.RefreshToken)
	if err != nil {
		if errors.IsRefreshInvalid(err) {
			m.logger.With("account_id", accountID).Warn("Refresh token rejected, deactivating account")
			if deactivateErr := m.store.SetActive(ctx, accountID, false); deactivateErr != nil {
				m.logger.ErrorWithErr(deactivateErr, "Failed to deactivate account")
			}
		}
		metrics.RecordTokenRefresh("error")
		return "", err
	}

	refreshToken := grant.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.RefreshToken
	}
	if err := m.store.UpdateTokens(ctx, accountID, grant.AccessToken, refreshToken, m.expiryFrom(grant)); err != nil {
		return "", err
	}

	metrics.RecordTokenRefresh("success")
	m.logger.With("account_id", accountID).Info("Access token refreshed")
	return grant.AccessToken, nil
}

// ValidToken is the single entry point for callers needing a live
// access token. Concurrent callers for the same account share one
// in-flight refresh; at most one refresh call reaches the backend.
func (m *TokenManager) ValidToken(ctx context.Context, accountID string) (string, error) {
	if !m.store.IsExpired(ctx, accountID) {
		cred, err := m.store.Get(ctx, accountID)
		if err != nil {
			return "", err
		}
		if cred == nil {
			return "", errors.NotFound("credential")
		}
		return cred.AccessToken, nil
	}

	token, err, _ := m.group.Do(accountID, func() (interface{}, error) {
		// Re-check under the flight: a sibling caller may have just
		// finished refreshing this account.
		if !m.store.IsExpired(ctx, accountID) {
			cred, err := m.store.Get(ctx, accountID)
			if err != nil {
				return "", err
			}
			if cred == nil {
				return "", errors.NotFound("credential")
			}
			return cred.AccessToken, nil
		}
		return m.Refresh(ctx, accountID)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// consumeState matches the presented state against the recorded ones
// using constant-time comparison and removes it on success
func (m *TokenManager) consumeState(state string) bool {
	if state == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneStatesLocked()

	for recorded := range m.states {
		if subtle.ConstantTimeCompare([]byte(recorded), []byte(state)) == 1 {
			delete(m.states, recorded)
			return true
		}
	}
	return false
}

func (m *TokenManager) pruneStatesLocked() {
	cutoff := m.now().Add(-stateTTL)
	for state, issued := range m.states {
		if issued.Before(cutoff) {
			delete(m.states, state)
		}
	}
}

// expiryFrom derives the absolute expiry from the grant's stated
// lifetime; it is never guessed
func (m *TokenManager) expiryFrom(grant *credential.TokenGrant) time.Time {
	return m.now().Add(time.Duration(grant.ExpiresIn) * time.Second)
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

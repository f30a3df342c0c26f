package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sellerhub/backend/internal/crypto"
	"github.com/sellerhub/backend/internal/domain/credential"
	"github.com/sellerhub/backend/internal/pkg/errors"
	"github.com/sellerhub/backend/internal/pkg/logger"
	"github.com/sellerhub/backend/internal/storage"
)

// credentialsKey is the well-known blob key holding the full collection
const credentialsKey = "accounts"

// CredentialStore implements credential.Store over the blob store.
// The collection is one JSON blob; every mutation is a read-modify-write
// against the latest persisted version, serialized by a mutex so
// concurrent refreshes never lose updates.
type CredentialStore struct {
	blobs  storage.BlobStore
	sealer *crypto.Sealer
	logger *logger.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewCredentialStore creates a credential store
func NewCredentialStore(blobs storage.BlobStore, sealer *crypto.Sealer, log *logger.Logger) credential.Store {
	return &CredentialStore{
		blobs:  blobs,
		sealer: sealer,
		logger: log,
		now:    time.Now,
	}
}

// Save validates, encrypts and persists a credential
func (s *CredentialStore) Save(ctx context.Context, cred *credential.AccountCredential) (*credential.AccountCredential, error) {
	if cred == nil || cred.AccountID == "" {
		return nil, errors.Validation("account id is required", nil)
	}
	if cred.AccessToken == "" {
		return nil, errors.Validation("access token is required", nil)
	}

	sealed := *cred
	var err error
	sealed.EncryptedAccessToken, err = s.sealer.Seal(cred.AccessToken)
	if err != nil {
		return nil, errors.Internal("failed to encrypt access token", err)
	}
	if cred.RefreshToken != "" {
		sealed.EncryptedRefreshToken, err = s.sealer.Seal(cred.RefreshToken)
		if err != nil {
			return nil, errors.Internal("failed to encrypt refresh token", err)
		}
	}
	if sealed.CreatedAt.IsZero() {
		sealed.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	replaced := false
	for i, r := range records {
		if r.AccountID == sealed.AccountID {
			sealed.CreatedAt = r.CreatedAt
			records[i] = &sealed
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, &sealed)
	}

	if err := s.persist(ctx, records); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"account_id": sealed.AccountID,
		"replaced":   replaced,
	}).Info("Credential saved")

	stored := sealed
	stored.AccessToken = cred.AccessToken
	stored.RefreshToken = cred.RefreshToken
	return &stored, nil
}

// Get retrieves and decrypts the credential for an account
func (s *CredentialStore) Get(ctx context.Context, accountID string) (*credential.AccountCredential, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		if r.AccountID != accountID {
			continue
		}
		cred := *r
		cred.AccessToken, err = s.sealer.Open(r.EncryptedAccessToken)
		if err != nil {
			return nil, err
		}
		if r.EncryptedRefreshToken != "" {
			cred.RefreshToken, err = s.sealer.Open(r.EncryptedRefreshToken)
			if err != nil {
				return nil, err
			}
		}
		return &cred, nil
	}
	return nil, nil
}

// List returns all records without decrypting tokens
func (s *CredentialStore) List(ctx context.Context) ([]*credential.AccountCredential, error) {
	return s.load(ctx)
}

// UpdateTokens re-encrypts and replaces only the token fields
func (s *CredentialStore) UpdateTokens(ctx context.Context, accountID, accessToken, refreshToken string, expiresAt time.Time) error {
	if accessToken == "" {
		return errors.Validation("access token is required", nil)
	}

	encAccess, err := s.sealer.Seal(accessToken)
	if err != nil {
		return errors.Internal("failed to encrypt access token", err)
	}
	encRefresh := ""
	if refreshToken != "" {
		encRefresh, err = s.sealer.Seal(refreshToken)
		if err != nil {
			return errors.Internal("failed to encrypt refresh token", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}

	for _, r := range records {
		if r.AccountID != accountID {
			continue
		}
		r.EncryptedAccessToken = encAccess
		if encRefresh != "" {
			r.EncryptedRefreshToken = encRefresh
		}
		r.ExpiresAt = expiresAt
		return s.persist(ctx, records)
	}
	return errors.NotFound("credential")
}

// SetActive soft-enables or soft-disables an account
func (s *CredentialStore) SetActive(ctx context.Context, accountID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}

	for _, r := range records {
		if r.AccountID != accountID {
			continue
		}
		r.Active = active
		return s.persist(ctx, records)
	}
	return errors.NotFound("credential")
}

// Remove deletes the record for an account. Removing an absent account
// is a no-op so disconnects stay idempotent.
func (s *CredentialStore) Remove(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := records[:0]
	for _, r := range records {
		if r.AccountID != accountID {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	return s.persist(ctx, kept)
}

// IsExpired reports whether the stored token has passed its expiry.
// A missing record, or a store read failure, is treated as expired.
func (s *CredentialStore) IsExpired(ctx context.Context, accountID string) bool {
	records, err := s.load(ctx)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to read credentials for expiry check")
		return true
	}

	for _, r := range records {
		if r.AccountID == accountID {
			return !s.now().Before(r.ExpiresAt)
		}
	}
	return true
}

func (s *CredentialStore) load(ctx context.Context) ([]*credential.AccountCredential, error) {
	blob, err := s.blobs.Get(ctx, credentialsKey)
	if err != nil {
		return nil, errors.Storage("failed to read credential collection", err)
	}
	if blob == nil {
		return nil, nil
	}

	var records []*credential.AccountCredential
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, errors.Storage("credential collection is corrupted", err)
	}
	return records, nil
}

func (s *CredentialStore) persist(ctx context.Context, records []*credential.AccountCredential) error {
	blob, err := json.Marshal(records)
	if err != nil {
		return errors.Internal("failed to encode credential collection", err)
	}
	if err := s.blobs.Put(ctx, credentialsKey, blob); err != nil {
		return errors.Storage("failed to write credential collection", err)
	}
	return nil
}

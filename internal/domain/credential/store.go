package credential

import (
	"context"
	"time"
)

// Store defines encrypted persistence of account credentials
type Store interface {
	// Save validates, encrypts and persists a credential, replacing any
	// existing record for the same account. Returns the stored record
	// with decrypted tokens.
	Save(ctx context.Context, cred *AccountCredential) (*AccountCredential, error)

	// Get retrieves and decrypts the credential for an account, or
	// nil if absent. Decryption failures surface as DecryptionError.
	Get(ctx context.Context, accountID string) (*AccountCredential, error)

	// List returns all records with tokens left encrypted (metadata only)
	List(ctx context.Context) ([]*AccountCredential, error)

	// UpdateTokens re-encrypts and replaces only the token fields,
	// preserving other metadata
	UpdateTokens(ctx context.Context, accountID, accessToken, refreshToken string, expiresAt time.Time) error

	// SetActive soft-enables or soft-disables an account without deletion
	SetActive(ctx context.Context, accountID string, active bool) error

	// Remove deletes the record for an account
	Remove(ctx context.Context, accountID string) error

	// IsExpired compares the stored expiry against the current time.
	// A missing record is treated as expired.
	IsExpired(ctx context.Context, accountID string) bool
}

// TokenBackend is the trusted collaborator that performs the actual
// code-for-token exchange and refresh calls. The core never holds the
// client secret; it only forwards an authorization code or an opaque
// refresh reference.
type TokenBackend interface {
	ExchangeCode(ctx context.Context, code string) (*TokenGrant, error)
	RefreshToken(ctx context.Context, accountID, refreshToken string) (*TokenGrant, error)
}

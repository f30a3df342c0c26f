package credential

import "time"

// AccountCredential represents the stored credentials for one linked
// marketplace account. The plaintext token fields are populated only on
// reads through the store; they are never persisted.
type AccountCredential struct {
	AccountID string `json:"account_id"`
	Nickname  string `json:"nickname,omitempty"`
	Email     string `json:"email,omitempty"`

	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`

	EncryptedAccessToken  string `json:"encrypted_access_token"`
	EncryptedRefreshToken string `json:"encrypted_refresh_token,omitempty"`

	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// LinkedAccount identifies the marketplace account returned by the
// token backend on a successful code exchange
type LinkedAccount struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

// TokenGrant is the result of a code exchange or token refresh.
// ExpiresIn is the token lifetime in seconds as stated by the
// marketplace; expiry is always derived from it, never guessed.
type TokenGrant struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int            `json:"expires_in"`
	Account      *LinkedAccount `json:"account,omitempty"`
}

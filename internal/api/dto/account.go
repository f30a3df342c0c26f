package dto

import (
	"time"

	"github.com/sellerhub/backend/internal/domain/account"
	"github.com/sellerhub/backend/internal/domain/credential"
)

// AccountDTO is the credential view exposed over the API. Token
// material, encrypted or not, never appears here.
type AccountDTO struct {
	AccountID string    `json:"account_id"`
	Nickname  string    `json:"nickname,omitempty"`
	Email     string    `json:"email,omitempty"`
	Active    bool      `json:"active"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAccountDTO strips a stored credential down to its public metadata
func NewAccountDTO(cred *credential.AccountCredential) AccountDTO {
	return AccountDTO{
		AccountID: cred.AccountID,
		Nickname:  cred.Nickname,
		Email:     cred.Email,
		Active:    cred.Active,
		ExpiresAt: cred.ExpiresAt,
		CreatedAt: cred.CreatedAt,
	}
}

// ConnectResponse starts the account link flow
type ConnectResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// CallbackRequest completes the account link flow
type CallbackRequest struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state" validate:"required"`
}

// SyncStateDTO mirrors the in-memory sync state of one account
type SyncStateDTO struct {
	AccountID  string     `json:"account_id"`
	Status     string     `json:"status"`
	Progress   int        `json:"progress"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// NewSyncStateDTO converts a sync state for the API
func NewSyncStateDTO(state *account.SyncState) SyncStateDTO {
	return SyncStateDTO{
		AccountID:  state.AccountID,
		Status:     string(state.Status),
		Progress:   state.Progress,
		LastSyncAt: state.LastSyncAt,
		LastError:  state.LastError,
	}
}

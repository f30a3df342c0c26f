package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// AccountService manages linked marketplace accounts
type AccountService struct {
	client *Client
}

// Accounts returns the account management service
func (c *Client) Accounts() *AccountService {
	return &AccountService{client: c}
}

// List returns all linked accounts
func (s *AccountService) List(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/accounts/", nil, &accounts)
	return accounts, err
}

// Connect starts the OAuth link flow
func (s *AccountService) Connect(ctx context.Context) (*ConnectResponse, error) {
	var resp ConnectResponse
	err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/accounts/connect", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Callback completes the OAuth link flow with the code from the browser
func (s *AccountService) Callback(ctx context.Context, code, state string) (*Account, error) {
	var account Account
	err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/accounts/callback",
		map[string]string{"code": code, "state": state}, &account)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Disconnect unlinks an account and removes its stored data
func (s *AccountService) Disconnect(ctx context.Context, accountID string) error {
	path := fmt.Sprintf("/api/v1/accounts/%s", url.PathEscape(accountID))
	return s.client.doRequest(ctx, http.MethodDelete, path, nil, nil)
}

// Sync triggers a sync run for one account
func (s *AccountService) Sync(ctx context.Context, accountID string) (*SyncState, error) {
	var state SyncState
	path := fmt.Sprintf("/api/v1/accounts/%s/sync", url.PathEscape(accountID))
	err := s.client.doRequest(ctx, http.MethodPost, path, nil, &state)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// SyncAll triggers a sync run for every account
func (s *AccountService) SyncAll(ctx context.Context) (map[string]SyncState, error) {
	var states map[string]SyncState
	err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/accounts/sync", nil, &states)
	return states, err
}

// Status returns the sync state of one account
func (s *AccountService) Status(ctx context.Context, accountID string) (*SyncState, error) {
	var state SyncState
	path := fmt.Sprintf("/api/v1/accounts/%s/status", url.PathEscape(accountID))
	err := s.client.doRequest(ctx, http.MethodGet, path, nil, &state)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Statuses returns the sync state of every account
func (s *AccountService) Statuses(ctx context.Context) (map[string]SyncState, error) {
	var states map[string]SyncState
	err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/accounts/status", nil, &states)
	return states, err
}

// Data returns the last persisted snapshot for an account
func (s *AccountService) Data(ctx context.Context, accountID string) (*Snapshot, error) {
	var snap Snapshot
	path := fmt.Sprintf("/api/v1/accounts/%s/data", url.PathEscape(accountID))
	err := s.client.doRequest(ctx, http.MethodGet, path, nil, &snap)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

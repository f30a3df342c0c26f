package client

import "time"

// Account is the public metadata of a linked marketplace account
type Account struct {
	AccountID string    `json:"account_id"`
	Nickname  string    `json:"nickname,omitempty"`
	Email     string    `json:"email,omitempty"`
	Active    bool      `json:"active"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ConnectResponse starts the account link flow
type ConnectResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// SyncState is the sync progress of one account
type SyncState struct {
	AccountID  string     `json:"account_id"`
	Status     string     `json:"status"`
	Progress   int        `json:"progress"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// Metrics are per-account figures
type Metrics struct {
	ListingCount int     `json:"listing_count"`
	OrderCount   int     `json:"order_count"`
	Revenue      float64 `json:"revenue"`
}

// AccountMetrics is one row of the aggregated breakdown
type AccountMetrics struct {
	AccountID  string     `json:"account_id"`
	Nickname   string     `json:"nickname,omitempty"`
	Metrics    Metrics    `json:"metrics"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

// AggregatedMetrics are totals across all accounts
type AggregatedMetrics struct {
	Accounts     int              `json:"accounts"`
	ListingCount int              `json:"listing_count"`
	OrderCount   int              `json:"order_count"`
	Revenue      float64          `json:"revenue"`
	Breakdown    []AccountMetrics `json:"breakdown"`
}

// Snapshot is the last fetched data for one account
type Snapshot struct {
	AccountID  string      `json:"account_id"`
	TakenAt    time.Time   `json:"taken_at"`
	Profile    interface{} `json:"profile,omitempty"`
	Summary    interface{} `json:"summary,omitempty"`
	Listings   interface{} `json:"listings,omitempty"`
	Orders     interface{} `json:"orders,omitempty"`
	Reputation interface{} `json:"reputation,omitempty"`
	Metrics    Metrics     `json:"metrics"`
}

// LoginResponse carries the issued session token
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

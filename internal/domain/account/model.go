package account

import "time"

// Status is the sync state of one account
type Status string

const (
	StatusReady   Status = "ready"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// SyncState tracks the progress of one account's sync runs. It is held
// in memory only and re-entered on every scheduled tick.
type SyncState struct {
	AccountID  string     `json:"account_id"`
	Status     Status     `json:"status"`
	Progress   int        `json:"progress"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// Profile is the marketplace account profile
type Profile struct {
	ID           string    `json:"id"`
	Nickname     string    `json:"nickname"`
	Email        string    `json:"email"`
	CountryID    string    `json:"country_id"`
	Points       int       `json:"points"`
	RegisteredAt time.Time `json:"registration_date"`
}

// Summary is the marketplace account summary
type Summary struct {
	ListingCount int     `json:"listing_count"`
	OrderCount   int     `json:"order_count"`
	Revenue      float64 `json:"revenue"`
	Currency     string  `json:"currency"`
}

// Listing is one published item
type Listing struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency_id"`
	Quantity  int     `json:"available_quantity"`
	Status    string  `json:"status"`
	Permalink string  `json:"permalink,omitempty"`
}

// Order is one transactional record
type Order struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Total     float64   `json:"total_amount"`
	Currency  string    `json:"currency_id"`
	CreatedAt time.Time `json:"date_created"`
	Buyer     string    `json:"buyer_nickname,omitempty"`
}

// Reputation is the seller reputation summary
type Reputation struct {
	Level          string  `json:"level_id"`
	Score          float64 `json:"score"`
	CompletedSales int     `json:"completed_sales"`
	CanceledSales  int     `json:"canceled_sales"`
}

// Metrics are the per-account figures derived from a snapshot
type Metrics struct {
	ListingCount int     `json:"listing_count"`
	OrderCount   int     `json:"order_count"`
	Revenue      float64 `json:"revenue"`
}

// Snapshot is the full sync result for one account. It is overwritten
// wholesale on every run; a partially failed run still produces a
// snapshot with the failed fields left empty.
type Snapshot struct {
	AccountID  string      `json:"account_id"`
	TakenAt    time.Time   `json:"taken_at"`
	Profile    *Profile    `json:"profile,omitempty"`
	Summary    *Summary    `json:"summary,omitempty"`
	Listings   []Listing   `json:"listings,omitempty"`
	Orders     []Order     `json:"orders,omitempty"`
	Reputation *Reputation `json:"reputation,omitempty"`
	Metrics    Metrics     `json:"metrics"`
}

// AccountMetrics is one row of the aggregated breakdown
type AccountMetrics struct {
	AccountID  string     `json:"account_id"`
	Nickname   string     `json:"nickname,omitempty"`
	Metrics    Metrics    `json:"metrics"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

// AggregatedMetrics reduces all persisted snapshots into totals.
// Accounts with no snapshot yet contribute zero.
type AggregatedMetrics struct {
	Accounts     int              `json:"accounts"`
	ListingCount int              `json:"listing_count"`
	OrderCount   int              `json:"order_count"`
	Revenue      float64          `json:"revenue"`
	Breakdown    []AccountMetrics `json:"breakdown"`
}

// EventType identifies a sync lifecycle event
type EventType string

const (
	EventSyncStarted   EventType = "sync_started"
	EventSyncProgress  EventType = "sync_progress"
	EventSyncCompleted EventType = "sync_completed"
	EventSyncFailed    EventType = "sync_failed"
)

// Event is one entry of the orchestrator's event stream
type Event struct {
	RunID     string    `json:"run_id"`
	AccountID string    `json:"account_id"`
	Type      EventType `json:"type"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

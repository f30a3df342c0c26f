package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/sellerhub/backend/internal/domain/account"
	"github.com/sellerhub/backend/internal/domain/credential"
	"github.com/sellerhub/backend/internal/pkg/errors"
	"github.com/sellerhub/backend/internal/pkg/logger"
	"github.com/sellerhub/backend/internal/pkg/metrics"
)

// MarketClient is the account-scoped view of the marketplace client
// the orchestrator drives during a sync run
type MarketClient interface {
	Profile(ctx context.Context) (*account.Profile, error)
	Summary(ctx context.Context) (*account.Summary, error)
	Listings(ctx context.Context) ([]account.Listing, error)
	RecentOrders(ctx context.Context) ([]account.Order, error)
	Reputation(ctx context.Context) (*account.Reputation, error)
}

// TokenSource supplies live access tokens and authorization URLs
type TokenSource interface {
	AuthorizationURL(state string) (url, usedState string, err error)
	ValidToken(ctx context.Context, accountID string) (string, error)
}

// ClientFactory builds a marketplace client from a live access token
type ClientFactory func(token string) MarketClient

// eventBuffer bounds the orchestrator's event stream; events beyond it
// are dropped rather than blocking a sync run
const eventBuffer = 64

// Orchestrator turns stored credentials into live sync activity across
// all linked accounts, with per-account fault isolation.
//
// A partially failed run is reported as StatusError while its partial
// snapshot is still persisted. This is intentional: downstream
// consumers can distinguish degraded data from no data.
type Orchestrator struct {
	creds     credential.Store
	tokens    TokenSource
	snapshots account.SnapshotStore
	newClient ClientFactory
	logger    *logger.Logger
	workers   int
	now       func() time.Time

	mu       sync.Mutex
	clients  map[string]MarketClient
	states   map[string]*account.SyncState
	inFlight map[string]bool

	cron    *cron.Cron
	entryID cron.EntryID

	events chan account.Event
}

// OrchestratorOptions configures an Orchestrator
type OrchestratorOptions struct {
	Credentials credential.Store
	Tokens      TokenSource
	Snapshots   account.SnapshotStore
	NewClient   ClientFactory
	Workers     int
	Logger      *logger.Logger
}

// NewOrchestrator creates a sync orchestrator
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	workers := opts.Workers
	if workers < 1 {
		workers = 3
	}
	return &Orchestrator{
		creds:     opts.Credentials,
		tokens:    opts.Tokens,
		snapshots: opts.Snapshots,
		newClient: opts.NewClient,
		logger:    opts.Logger,
		workers:   workers,
		now:       time.Now,
		clients:   make(map[string]MarketClient),
		states:    make(map[string]*account.SyncState),
		inFlight:  make(map[string]bool),
		events:    make(chan account.Event, eventBuffer),
	}
}

// Initialize builds the active client set from stored credentials.
// An account whose token cannot be made valid is recorded in Error
// state and excluded; it never aborts the other accounts.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	records, err := o.creds.List(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if !rec.Active {
			continue
		}
		if err := o.RegisterAccount(ctx, rec.AccountID); err != nil {
			o.logger.WithFields(map[string]interface{}{
				"account_id": rec.AccountID,
			}).ErrorWithErr(err, "Account excluded from client set")
		}
	}

	o.mu.Lock()
	metrics.SetActiveAccounts(len(o.clients))
	o.mu.Unlock()
	return nil
}

// RegisterAccount ensures the account has a valid token, builds its
// client and sets its state to Ready
func (o *Orchestrator) RegisterAccount(ctx context.Context, accountID string) error {
	token, err := o.tokens.ValidToken(ctx, accountID)
	if err != nil {
		o.mu.Lock()
		o.states[accountID] = &account.SyncState{
			AccountID: accountID,
			Status:    account.StatusError,
			LastError: err.Error(),
		}
		o.mu.Unlock()
		return err
	}

	o.mu.Lock()
	o.clients[accountID] = o.newClient(token)
	o.states[accountID] = &account.SyncState{
		AccountID: accountID,
		Status:    account.StatusReady,
	}
	metrics.SetActiveAccounts(len(o.clients))
	o.mu.Unlock()
	return nil
}

// SyncAccount runs the five sub-fetches for one account. Each fetch is
// individually fault-isolated: a failure leaves its snapshot field
// empty and the run continues. The assembled snapshot is persisted even
// when partial.
func (o *Orchestrator) SyncAccount(ctx context.Context, accountID string) error {
	o.mu.Lock()
	if o.inFlight[accountID] {
		o.mu.Unlock()
		o.logger.With("account_id", accountID).Debug("Sync already in progress, skipping")
		return nil
	}
	if _, known := o.states[accountID]; !known {
		o.mu.Unlock()
		return errors.NotFound("account")
	}
	o.inFlight[accountID] = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.inFlight, accountID)
		o.mu.Unlock()
	}()

	runID := uuid.New().String()
	started := o.now()
	log := o.logger.WithFields(map[string]interface{}{
		"account_id": accountID,
		"run_id":     runID,
	})

	// A panic in one account's run must not kill the scheduler
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("sync panicked: %v", r)
			log.Error(msg)
			o.setError(accountID, msg)
			o.emit(account.Event{RunID: runID, AccountID: accountID, Type: account.EventSyncFailed, Error: msg, At: o.now()})
		}
	}()

	o.setState(accountID, account.StatusSyncing, 0, "")
	o.emit(account.Event{RunID: runID, AccountID: accountID, Type: account.EventSyncStarted, At: started})

	// Tokens may have expired since the last run; rebuild the client
	// from a freshly validated token.
	token, err := o.tokens.ValidToken(ctx, accountID)
	if err != nil {
		log.ErrorWithErr(err, "Token validation failed")
		o.setError(accountID, err.Error())
		o.emit(account.Event{RunID: runID, AccountID: accountID, Type: account.EventSyncFailed, Error: err.Error(), At: o.now()})
		metrics.RecordSyncRun("error", o.now().Sub(started))
		return err
	}
	client := o.newClient(token)
	o.mu.Lock()
	if _, known := o.states[accountID]; known {
		o.clients[accountID] = client
	}
	o.mu.Unlock()

	o.setProgress(accountID, 10)
	o.emit(account.Event{RunID: runID, AccountID: accountID, Type: account.EventSyncProgress, Progress: 10, At: o.now()})

	snap := &account.Snapshot{AccountID: accountID, TakenAt: started}
	var firstErr error
	record := func(step string, progress int, err error) {
		if err != nil {
			log.WithFields(map[string]interface{}{"step": step}).ErrorWithErr(err, "Sub-fetch failed")
			if firstErr == nil {
				firstErr = err
			}
		}
		o.setProgress(accountID, progress)
		o.emit(account.Event{RunID: runID, AccountID: accountID, Type: account.EventSyncProgress, Progress: progress, At: o.now()})
	}

	profile, err := client.Profile(ctx)
	if err == nil {
		snap.Profile = profile
	}
	record("profile", 30, err)

	summary, err := client.Summary(ctx)
	if err == nil {
		snap.Summary = summary
	}
	record("summary", 50, err)

	listings, err := client.Listings(ctx)
	if err == nil {
		snap.Listings = listings
	}
	record("listings", 70, err)

	orders, err := client.RecentOrders(ctx)
	if err == nil {
		snap.Orders = orders
	}
	record("orders", 85, err)

	reputation, err := client.Reputation(ctx)
	if err == nil {
		snap.Reputation = reputation
	}
	record("reputation", 100, err)

	snap.Metrics = deriveMetrics(snap)

	// A disconnect that raced this run already removed the account;
	// persisting now would leave an orphan snapshot behind it
	o.mu.Lock()
	_, known := o.states[accountID]
	o.mu.Unlock()
	if !known {
		log.Info("Account disconnected during sync, discarding run")
		return nil
	}

	// Persist regardless of sub-fetch outcomes
	if err := o.snapshots.Save(ctx, snap); err != nil {
		log.ErrorWithErr(err, "Failed to persist snapshot")
		if firstErr == nil {
			firstErr = err
		}
	}

	duration := o.now().Sub(started)
	if firstErr != nil {
		o.setError(accountID, firstErr.Error())
		o.emit(account.Event{RunID: runID, AccountID: accountID, Type: account.EventSyncFailed, Progress: 100, Error: firstErr.Error(), At: o.now()})
		metrics.RecordSyncRun("error", duration)
		log.WithError(firstErr).Warn("Sync completed with errors")
		return firstErr
	}

	o.setSuccess(accountID)
	o.emit(account.Event{RunID: runID, AccountID: accountID, Type: account.EventSyncCompleted, Progress: 100, At: o.now()})
	metrics.RecordSyncRun("success", duration)
	log.Info("Sync completed")
	return nil
}

// SyncAll runs SyncAccount for every account in the client set,
// bounded by the worker limit. A failure in one account never prevents
// the others from being attempted.
func (o *Orchestrator) SyncAll(ctx context.Context) {
	o.mu.Lock()
	ids := make([]string, 0, len(o.clients))
	for id := range o.clients {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(accountID string) {
			defer wg.Done()
			defer func() { <-sem }()
			// errors are reflected in the account's own SyncState
			_ = o.SyncAccount(ctx, accountID)
		}(id)
	}
	wg.Wait()
}

// EnableAutoSync starts the recurring scheduler. Overlapping runs for
// an account are skipped by SyncAccount, never queued.
func (o *Orchestrator) EnableAutoSync(interval time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cron != nil {
		return errors.BadRequest("auto sync is already enabled")
	}
	if interval <= 0 {
		return errors.BadRequest("sync interval must be positive")
	}

	c := cron.New()
	entryID, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		o.SyncAll(context.Background())
	})
	if err != nil {
		return errors.Internal("failed to schedule auto sync", err)
	}
	c.Start()

	o.cron = c
	o.entryID = entryID
	o.logger.With("interval", interval.String()).Info("Auto sync enabled")
	return nil
}

// DisableAutoSync stops the recurring scheduler
func (o *Orchestrator) DisableAutoSync() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cron == nil {
		return
	}
	o.cron.Stop()
	o.cron = nil
	o.logger.Info("Auto sync disabled")
}

// ConnectAccount returns the authorization URL starting a new link flow
func (o *Orchestrator) ConnectAccount(state string) (url, usedState string, err error) {
	return o.tokens.AuthorizationURL(state)
}

// DisconnectAccount removes the credential, the live client, the
// snapshot and the sync state as one logical unit
func (o *Orchestrator) DisconnectAccount(ctx context.Context, accountID string) error {
	// In-memory state goes first so a run still in flight sees the
	// account as removed before the persisted rows disappear
	o.mu.Lock()
	delete(o.clients, accountID)
	delete(o.states, accountID)
	metrics.SetActiveAccounts(len(o.clients))
	o.mu.Unlock()

	var firstErr error
	if err := o.creds.Remove(ctx, accountID); err != nil {
		firstErr = err
	}
	if err := o.snapshots.Delete(ctx, accountID); err != nil && firstErr == nil {
		firstErr = err
	}

	if firstErr != nil {
		return firstErr
	}
	o.logger.With("account_id", accountID).Info("Account disconnected")
	return nil
}

// SyncStatus returns the sync state for one account
func (o *Orchestrator) SyncStatus(accountID string) (*account.SyncState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	state, ok := o.states[accountID]
	if !ok {
		return nil, errors.NotFound("account")
	}
	copied := *state
	return &copied, nil
}

// SyncStatuses returns the sync state of every known account
func (o *Orchestrator) SyncStatuses() map[string]*account.SyncState {
	o.mu.Lock()
	defer o.mu.Unlock()

	statuses := make(map[string]*account.SyncState, len(o.states))
	for id, state := range o.states {
		copied := *state
		statuses[id] = &copied
	}
	return statuses
}

// AccountData returns the last persisted snapshot for an account, or
// nil when the account has never completed a run. Snapshots persist
// independently of sync state, so "last successful sync" data remains
// available while the most recent run is in Error.
func (o *Orchestrator) AccountData(ctx context.Context, accountID string) (*account.Snapshot, error) {
	return o.snapshots.Get(ctx, accountID)
}

// AggregatedMetrics reduces all persisted snapshots into totals and a
// per-account breakdown. Accounts with no snapshot contribute zero.
func (o *Orchestrator) AggregatedMetrics(ctx context.Context) (*account.AggregatedMetrics, error) {
	snaps, err := o.snapshots.List(ctx)
	if err != nil {
		return nil, err
	}

	byAccount := make(map[string]*account.Snapshot, len(snaps))
	for _, snap := range snaps {
		byAccount[snap.AccountID] = snap
	}

	o.mu.Lock()
	ids := make([]string, 0, len(o.states))
	for id := range o.states {
		ids = append(ids, id)
	}
	lastSyncs := make(map[string]*time.Time, len(o.states))
	for id, state := range o.states {
		lastSyncs[id] = state.LastSyncAt
	}
	o.mu.Unlock()

	// Include snapshots of accounts no longer in the state map
	for id := range byAccount {
		if _, known := lastSyncs[id]; !known {
			ids = append(ids, id)
		}
	}

	agg := &account.AggregatedMetrics{Accounts: len(ids)}
	for _, id := range ids {
		row := account.AccountMetrics{AccountID: id, LastSyncAt: lastSyncs[id]}
		if snap, ok := byAccount[id]; ok {
			row.Metrics = snap.Metrics
			if snap.Profile != nil {
				row.Nickname = snap.Profile.Nickname
			}
			agg.ListingCount += snap.Metrics.ListingCount
			agg.OrderCount += snap.Metrics.OrderCount
			agg.Revenue += snap.Metrics.Revenue
		}
		agg.Breakdown = append(agg.Breakdown, row)
	}
	return agg, nil
}

// Events exposes the sync lifecycle event stream. Listener failures or
// absence never interrupt the orchestrator: events beyond the buffer
// are dropped.
func (o *Orchestrator) Events() <-chan account.Event {
	return o.events
}

func (o *Orchestrator) emit(ev account.Event) {
	select {
	case o.events <- ev:
	default:
	}
}

func (o *Orchestrator) setState(accountID string, status account.Status, progress int, lastError string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	state, ok := o.states[accountID]
	if !ok {
		return
	}
	state.Status = status
	state.Progress = progress
	state.LastError = lastError
}

func (o *Orchestrator) setProgress(accountID string, progress int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if state, ok := o.states[accountID]; ok && progress > state.Progress {
		state.Progress = progress
	}
}

func (o *Orchestrator) setSuccess(accountID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if state, ok := o.states[accountID]; ok {
		now := o.now()
		state.Status = account.StatusSuccess
		state.Progress = 100
		state.LastSyncAt = &now
		state.LastError = ""
	}
}

func (o *Orchestrator) setError(accountID string, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Update-only: a disconnected account must not be resurrected by a
	// run that was still in flight when it was removed
	state, ok := o.states[accountID]
	if !ok {
		return
	}
	now := o.now()
	state.Status = account.StatusError
	state.LastSyncAt = &now
	state.LastError = msg
}

// deriveMetrics computes per-account figures from the fetched data,
// preferring the summary when present
func deriveMetrics(snap *account.Snapshot) account.Metrics {
	m := account.Metrics{
		ListingCount: len(snap.Listings),
		OrderCount:   len(snap.Orders),
	}
	for _, order := range snap.Orders {
		m.Revenue += order.Total
	}
	if snap.Summary != nil {
		if snap.Summary.ListingCount > m.ListingCount {
			m.ListingCount = snap.Summary.ListingCount
		}
		if snap.Summary.OrderCount > m.OrderCount {
			m.OrderCount = snap.Summary.OrderCount
		}
		if snap.Summary.Revenue > m.Revenue {
			m.Revenue = snap.Summary.Revenue
		}
	}
	return m
}

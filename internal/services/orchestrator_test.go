package services

import (
	"context"
	"testing"
	"time"

	"github.com/sellerhub/backend/internal/domain/account"
	"github.com/sellerhub/backend/internal/pkg/errors"
	"github.com/sellerhub/backend/internal/testutil"
)

// tokenSourcePerAccount returns the account id itself as the token so
// the client factory can route to per-account mocks
type tokenSourcePerAccount struct {
	errors map[string]error
}

func (s *tokenSourcePerAccount) AuthorizationURL(state string) (string, string, error) {
	if state == "" {
		state = "generated"
	}
	return "https://auth.example.com/authorization?state=" + state, state, nil
}

func (s *tokenSourcePerAccount) ValidToken(ctx context.Context, accountID string) (string, error) {
	if err, ok := s.errors[accountID]; ok {
		return "", err
	}
	return accountID, nil
}

func newOrchestrator(t *testing.T, clients map[string]*testutil.MockMarketClient, tokenErrors map[string]error) (*Orchestrator, *testutil.MemBlobStore) {
	t.Helper()

	blobs := testutil.NewMemBlobStore()
	store, _ := newTestCredentialStore(t)

	ctx := context.Background()
	for id := range clients {
		if _, err := store.Save(ctx, testCredential(id)); err != nil {
			t.Fatalf("seeding credential %s: %v", id, err)
		}
	}
	for id := range tokenErrors {
		if _, err := store.Save(ctx, testCredential(id)); err != nil {
			t.Fatalf("seeding credential %s: %v", id, err)
		}
	}

	orch := NewOrchestrator(OrchestratorOptions{
		Credentials: store,
		Tokens:      &tokenSourcePerAccount{errors: tokenErrors},
		Snapshots:   NewSnapshotStore(blobs),
		NewClient: func(token string) MarketClient {
			if c, ok := clients[token]; ok {
				return c
			}
			return &testutil.MockMarketClient{}
		},
		Workers: 2,
		Logger:  testutil.NewTestLogger(),
	})
	return orch, blobs
}

func TestOrchestrator_Initialize(t *testing.T) {
	clients := map[string]*testutil.MockMarketClient{
		"a": {},
		"b": {},
	}
	orch, _ := newOrchestrator(t, clients, map[string]error{
		"broken": testutil.RefreshInvalidError(),
	})

	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	statuses := orch.SyncStatuses()
	if len(statuses) != 3 {
		t.Fatalf("got %d states, want 3", len(statuses))
	}
	for _, id := range []string{"a", "b"} {
		if statuses[id].Status != account.StatusReady {
			t.Errorf("account %s status = %s, want ready", id, statuses[id].Status)
		}
	}
	// The failing account is recorded but excluded; it never aborts others
	if statuses["broken"].Status != account.StatusError {
		t.Errorf("broken account status = %s, want error", statuses["broken"].Status)
	}
	if statuses["broken"].LastError == "" {
		t.Error("broken account has no recorded error")
	}
}

func TestOrchestrator_SyncAccountSuccess(t *testing.T) {
	client := &testutil.MockMarketClient{
		SummaryResult:  &account.Summary{ListingCount: 4, OrderCount: 2, Revenue: 150},
		ListingsResult: []account.Listing{{ID: "L1"}, {ID: "L2"}},
		OrdersResult:   []account.Order{{ID: "O1", Total: 100}, {ID: "O2", Total: 50}},
	}
	orch, _ := newOrchestrator(t, map[string]*testutil.MockMarketClient{"a": client}, nil)
	ctx := context.Background()

	if err := orch.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := orch.SyncAccount(ctx, "a"); err != nil {
		t.Fatalf("SyncAccount() error = %v", err)
	}

	state, err := orch.SyncStatus("a")
	if err != nil {
		t.Fatalf("SyncStatus() error = %v", err)
	}
	if state.Status != account.StatusSuccess {
		t.Errorf("status = %s, want success", state.Status)
	}
	if state.Progress != 100 {
		t.Errorf("progress = %d, want 100", state.Progress)
	}
	if state.LastSyncAt == nil {
		t.Error("LastSyncAt not set")
	}

	snap, err := orch.AccountData(ctx, "a")
	if err != nil {
		t.Fatalf("AccountData() error = %v", err)
	}
	if snap == nil {
		t.Fatal("no snapshot persisted")
	}
	if snap.Profile == nil || snap.Summary == nil || snap.Reputation == nil {
		t.Error("snapshot is missing fetched fields")
	}
	if len(snap.Listings) != 2 || len(snap.Orders) != 2 {
		t.Errorf("snapshot listings/orders = %d/%d", len(snap.Listings), len(snap.Orders))
	}
	if snap.Metrics.Revenue != 150 {
		t.Errorf("derived revenue = %v, want 150", snap.Metrics.Revenue)
	}
}

func TestOrchestrator_PartialFailurePersistsSnapshot(t *testing.T) {
	// Exactly one of the five sub-fetches fails
	client := &testutil.MockMarketClient{
		ListingsError: errors.Transient("GET /users/me/items returned 503", nil),
		OrdersResult:  []account.Order{{ID: "O1", Total: 75}},
	}
	orch, _ := newOrchestrator(t, map[string]*testutil.MockMarketClient{"a": client}, nil)
	ctx := context.Background()

	if err := orch.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	err := orch.SyncAccount(ctx, "a")
	if err == nil {
		t.Fatal("SyncAccount() succeeded despite a failed sub-fetch")
	}

	// Degraded data, not no data: the partial snapshot is persisted
	snap, _ := orch.AccountData(ctx, "a")
	if snap == nil {
		t.Fatal("partial snapshot was not persisted")
	}
	if snap.Profile == nil || snap.Summary == nil || snap.Reputation == nil {
		t.Error("successful sub-fetches missing from partial snapshot")
	}
	if snap.Listings != nil {
		t.Error("failed sub-fetch left non-empty data")
	}
	if len(snap.Orders) != 1 {
		t.Errorf("orders = %d, want 1", len(snap.Orders))
	}

	state, _ := orch.SyncStatus("a")
	if state.Status != account.StatusError {
		t.Errorf("status = %s, want error", state.Status)
	}
	if state.LastError == "" {
		t.Error("LastError not recorded")
	}
	if state.Progress != 100 {
		t.Errorf("progress = %d, want 100 (run completed)", state.Progress)
	}
}

func TestOrchestrator_SyncAllFaultIsolation(t *testing.T) {
	clients := map[string]*testutil.MockMarketClient{
		"ok":   {},
		"bad":  {ProfileError: errors.Transient("boom", nil), SummaryError: errors.Transient("boom", nil)},
		"ok2":  {},
		"bad2": {ReputationError: errors.AuthExpired("token expired")},
	}
	orch, _ := newOrchestrator(t, clients, nil)
	ctx := context.Background()

	if err := orch.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	orch.SyncAll(ctx)

	statuses := orch.SyncStatuses()
	for _, id := range []string{"ok", "ok2"} {
		if statuses[id].Status != account.StatusSuccess {
			t.Errorf("account %s status = %s, want success", id, statuses[id].Status)
		}
	}
	for _, id := range []string{"bad", "bad2"} {
		if statuses[id].Status != account.StatusError {
			t.Errorf("account %s status = %s, want error", id, statuses[id].Status)
		}
	}

	// Each account keeps its own independent snapshot
	for id := range clients {
		snap, err := orch.AccountData(ctx, id)
		if err != nil {
			t.Fatalf("AccountData(%s) error = %v", id, err)
		}
		if snap == nil {
			t.Errorf("account %s has no snapshot", id)
		}
	}
}

func TestOrchestrator_OverlappingRunSkipped(t *testing.T) {
	client := &testutil.MockMarketClient{}
	orch, _ := newOrchestrator(t, map[string]*testutil.MockMarketClient{"a": client}, nil)
	ctx := context.Background()

	if err := orch.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	// Simulate a run already in progress
	orch.mu.Lock()
	orch.inFlight["a"] = true
	orch.mu.Unlock()

	if err := orch.SyncAccount(ctx, "a"); err != nil {
		t.Fatalf("SyncAccount() error = %v", err)
	}
	if client.Calls() != 0 {
		t.Errorf("overlapping run performed %d fetches, want 0", client.Calls())
	}

	orch.mu.Lock()
	delete(orch.inFlight, "a")
	orch.mu.Unlock()

	if err := orch.SyncAccount(ctx, "a"); err != nil {
		t.Fatalf("SyncAccount() after clearing error = %v", err)
	}
	if client.Calls() != 5 {
		t.Errorf("fetches = %d, want 5", client.Calls())
	}
}

func TestOrchestrator_SyncUnknownAccount(t *testing.T) {
	orch, _ := newOrchestrator(t, nil, nil)

	err := orch.SyncAccount(context.Background(), "missing")
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("SyncAccount(missing) error = %v, want not found", err)
	}
}

func TestOrchestrator_DisconnectLeavesNoTraces(t *testing.T) {
	clients := map[string]*testutil.MockMarketClient{"a": {}, "b": {}}
	orch, _ := newOrchestrator(t, clients, nil)
	ctx := context.Background()

	if err := orch.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	orch.SyncAll(ctx)

	if err := orch.DisconnectAccount(ctx, "a"); err != nil {
		t.Fatalf("DisconnectAccount() error = %v", err)
	}

	// Credential gone
	creds, err := orch.creds.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for _, c := range creds {
		if c.AccountID == "a" {
			t.Error("credential still present after disconnect")
		}
	}
	// Snapshot gone
	snap, _ := orch.AccountData(ctx, "a")
	if snap != nil {
		t.Error("snapshot still present after disconnect")
	}
	// Sync state gone
	if _, err := orch.SyncStatus("a"); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("SyncStatus() error = %v, want not found", err)
	}

	// The other account is untouched
	if _, err := orch.SyncStatus("b"); err != nil {
		t.Errorf("account b state lost: %v", err)
	}
}

func TestOrchestrator_DisconnectDuringSyncLeavesNoTraces(t *testing.T) {
	gate := make(chan struct{})
	client := &testutil.MockMarketClient{ReputationGate: gate}
	orch, _ := newOrchestrator(t, map[string]*testutil.MockMarketClient{"a": client}, nil)
	ctx := context.Background()

	if err := orch.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- orch.SyncAccount(ctx, "a") }()

	// Wait until the run is parked on its final fetch
	deadline := time.After(2 * time.Second)
	for client.Calls() < 5 {
		select {
		case <-deadline:
			t.Fatal("sync never reached the final fetch")
		case <-time.After(time.Millisecond):
		}
	}

	if err := orch.DisconnectAccount(ctx, "a"); err != nil {
		t.Fatalf("DisconnectAccount() error = %v", err)
	}
	close(gate)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sync did not finish")
	}

	// The finished run must not re-persist the snapshot
	snap, err := orch.AccountData(ctx, "a")
	if err != nil {
		t.Fatalf("AccountData() error = %v", err)
	}
	if snap != nil {
		t.Errorf("snapshot persisted after disconnect: %+v", snap)
	}
	// Nor re-create the sync state
	if _, err := orch.SyncStatus("a"); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("SyncStatus() error = %v, want not found", err)
	}
	creds, err := orch.creds.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(creds) != 0 {
		t.Errorf("got %d credentials after disconnect, want 0", len(creds))
	}
}

func TestOrchestrator_AggregatedMetrics(t *testing.T) {
	clients := map[string]*testutil.MockMarketClient{
		"a": {
			SummaryResult: &account.Summary{ListingCount: 3, OrderCount: 2, Revenue: 300},
			OrdersResult:  []account.Order{{ID: "O1", Total: 200}, {ID: "O2", Total: 100}},
		},
		"b": {
			OrdersResult: []account.Order{{ID: "O3", Total: 50}},
		},
	}
	orch, _ := newOrchestrator(t, clients, nil)
	ctx := context.Background()

	if err := orch.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	// Before any sync: every account contributes zero, no error
	agg, err := orch.AggregatedMetrics(ctx)
	if err != nil {
		t.Fatalf("AggregatedMetrics() error = %v", err)
	}
	if agg.Revenue != 0 || agg.OrderCount != 0 {
		t.Errorf("pre-sync aggregate = %+v, want zeros", agg)
	}
	if agg.Accounts != 2 {
		t.Errorf("accounts = %d, want 2", agg.Accounts)
	}

	orch.SyncAll(ctx)

	agg, err = orch.AggregatedMetrics(ctx)
	if err != nil {
		t.Fatalf("AggregatedMetrics() error = %v", err)
	}
	if agg.Revenue != 350 {
		t.Errorf("revenue = %v, want 350", agg.Revenue)
	}
	if agg.OrderCount != 3 {
		t.Errorf("order count = %d, want 3", agg.OrderCount)
	}
	if agg.ListingCount != 3 {
		t.Errorf("listing count = %d, want 3", agg.ListingCount)
	}
	if len(agg.Breakdown) != 2 {
		t.Errorf("breakdown rows = %d, want 2", len(agg.Breakdown))
	}
}

func TestOrchestrator_Events(t *testing.T) {
	client := &testutil.MockMarketClient{}
	orch, _ := newOrchestrator(t, map[string]*testutil.MockMarketClient{"a": client}, nil)
	ctx := context.Background()

	if err := orch.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := orch.SyncAccount(ctx, "a"); err != nil {
		t.Fatalf("SyncAccount() error = %v", err)
	}

	var types []account.EventType
	deadline := time.After(time.Second)
collect:
	for {
		select {
		case ev := <-orch.Events():
			types = append(types, ev.Type)
			if ev.Type == account.EventSyncCompleted || ev.Type == account.EventSyncFailed {
				break collect
			}
		case <-deadline:
			break collect
		}
	}

	if len(types) == 0 || types[0] != account.EventSyncStarted {
		t.Fatalf("event stream = %v, want it to open with sync_started", types)
	}
	if types[len(types)-1] != account.EventSyncCompleted {
		t.Errorf("event stream = %v, want it to close with sync_completed", types)
	}
}

func TestOrchestrator_EnableAutoSync(t *testing.T) {
	orch, _ := newOrchestrator(t, nil, nil)

	if err := orch.EnableAutoSync(0); err == nil {
		t.Error("EnableAutoSync(0) did not fail")
	}
	if err := orch.EnableAutoSync(time.Minute); err != nil {
		t.Fatalf("EnableAutoSync() error = %v", err)
	}
	if err := orch.EnableAutoSync(time.Minute); err == nil {
		t.Error("second EnableAutoSync() did not fail")
	}
	orch.DisableAutoSync()
	// Disabling twice is harmless
	orch.DisableAutoSync()
	if err := orch.EnableAutoSync(time.Minute); err != nil {
		t.Errorf("re-enabling after disable error = %v", err)
	}
	orch.DisableAutoSync()
}

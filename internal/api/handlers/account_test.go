package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sellerhub/backend/internal/crypto"
	"github.com/sellerhub/backend/internal/domain/credential"
	"github.com/sellerhub/backend/internal/pkg/logger"
	"github.com/sellerhub/backend/internal/pkg/validator"
	"github.com/sellerhub/backend/internal/services"
	"github.com/sellerhub/backend/internal/testutil"
)

type accountFixture struct {
	handler *AccountHandler
	creds   credential.Store
	backend *testutil.MockTokenBackend
	router  chi.Router
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Format: "json"})
	sealer, err := crypto.NewSealer("handler-test-master-secret")
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	blobs := testutil.NewMemBlobStore()
	creds := services.NewCredentialStore(blobs, sealer, log)
	backend := &testutil.MockTokenBackend{
		ExchangeGrant: &credential.TokenGrant{
			AccessToken:  "fresh-access-token",
			RefreshToken: "fresh-refresh-token",
			ExpiresIn:    21600,
			Account:      &credential.LinkedAccount{ID: "123", Nickname: "SHOP_ONE"},
		},
		RefreshGrant: &credential.TokenGrant{
			AccessToken: "refreshed-access-token",
			ExpiresIn:   21600,
		},
	}

	tokens := services.NewTokenManager(services.TokenManagerOptions{
		Store:       creds,
		Backend:     backend,
		ClientID:    "client-id",
		AuthURL:     "https://auth.example.com/authorization",
		RedirectURL: "http://localhost:8080/api/v1/accounts/callback",
		Logger:      log,
	})
	orch := services.NewOrchestrator(services.OrchestratorOptions{
		Credentials: creds,
		Tokens:      tokens,
		Snapshots:   services.NewSnapshotStore(blobs),
		NewClient: func(token string) services.MarketClient {
			return &testutil.MockMarketClient{}
		},
		Workers: 1,
		Logger:  log,
	})

	handler := NewAccountHandler(creds, tokens, orch, log, validator.New())

	r := chi.NewRouter()
	r.Route("/api/v1/accounts", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/connect", handler.Connect)
		r.Post("/callback", handler.Callback)
		r.Post("/sync", handler.SyncAll)
		r.Get("/status", handler.Statuses)
		r.Delete("/{id}", handler.Disconnect)
		r.Post("/{id}/sync", handler.Sync)
		r.Get("/{id}/status", handler.Status)
		r.Get("/{id}/data", handler.Data)
	})

	return &accountFixture{handler: handler, creds: creds, backend: backend, router: r}
}

func (f *accountFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *accountFixture) linkAccount(t *testing.T) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/v1/accounts/connect", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("connect status = %d: %s", rec.Code, rec.Body.String())
	}
	var connect struct {
		Data struct {
			State string `json:"state"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &connect); err != nil {
		t.Fatalf("decode connect response: %v", err)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/accounts/callback", map[string]string{
		"code":  "auth-code",
		"state": connect.Data.State,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("callback status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAccountHandler_LinkFlow(t *testing.T) {
	f := newAccountFixture(t)
	f.linkAccount(t)

	if f.backend.ExchangeCalls() != 1 {
		t.Errorf("exchange calls = %d, want 1", f.backend.ExchangeCalls())
	}

	cred, err := f.creds.Get(context.Background(), "123")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if cred == nil || !cred.Active {
		t.Fatal("linked account not stored as active")
	}
}

func TestAccountHandler_CallbackStateMismatch(t *testing.T) {
	f := newAccountFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/accounts/callback", map[string]string{
		"code":  "auth-code",
		"state": "forged-state",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if f.backend.ExchangeCalls() != 0 {
		t.Errorf("exchange calls = %d, want 0", f.backend.ExchangeCalls())
	}
}

func TestAccountHandler_ListHidesTokens(t *testing.T) {
	f := newAccountFixture(t)
	f.linkAccount(t)

	rec := f.do(t, http.MethodGet, "/api/v1/accounts/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := rec.Body.String()
	for _, secret := range []string{"fresh-access-token", "fresh-refresh-token", "encrypted_"} {
		if strings.Contains(body, secret) {
			t.Errorf("response leaks %q", secret)
		}
	}
	if !strings.Contains(body, "SHOP_ONE") {
		t.Error("response is missing account metadata")
	}
}

func TestAccountHandler_SyncAndData(t *testing.T) {
	f := newAccountFixture(t)
	f.linkAccount(t)

	rec := f.do(t, http.MethodPost, "/api/v1/accounts/123/sync", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sync status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/v1/accounts/123/data", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("data status = %d: %s", rec.Code, rec.Body.String())
	}
	var snap struct {
		Data struct {
			AccountID string    `json:"account_id"`
			TakenAt   time.Time `json:"taken_at"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode data response: %v", err)
	}
	if snap.Data.AccountID != "123" {
		t.Errorf("snapshot account = %q, want 123", snap.Data.AccountID)
	}
	if snap.Data.TakenAt.IsZero() {
		t.Error("snapshot taken_at not set")
	}
}

func TestAccountHandler_SyncUnknownAccount(t *testing.T) {
	f := newAccountFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/accounts/nope/sync", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAccountHandler_Disconnect(t *testing.T) {
	f := newAccountFixture(t)
	f.linkAccount(t)

	rec := f.do(t, http.MethodDelete, "/api/v1/accounts/123", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("disconnect status = %d: %s", rec.Code, rec.Body.String())
	}

	cred, err := f.creds.Get(context.Background(), "123")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if cred != nil {
		t.Error("credential still stored after disconnect")
	}

	rec = f.do(t, http.MethodGet, "/api/v1/accounts/123/data", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("data status = %d after disconnect, want 404", rec.Code)
	}
}

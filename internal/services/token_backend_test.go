package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sellerhub/backend/internal/pkg/errors"
)

func TestHTTPTokenBackend_ExchangeCode(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "at",
			"refresh_token": "rt",
			"expires_in":    21600,
			"account":       map[string]string{"id": "123", "nickname": "SHOP"},
		})
	}))
	defer srv.Close()

	backend := NewHTTPTokenBackend(srv.URL, nil)
	grant, err := backend.ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if gotPath != "/oauth/exchange" {
		t.Errorf("path = %q", gotPath)
	}
	if gotPayload["code"] != "auth-code" {
		t.Errorf("payload = %v", gotPayload)
	}
	if grant.AccessToken != "at" || grant.ExpiresIn != 21600 {
		t.Errorf("grant = %+v", grant)
	}
	if grant.Account == nil || grant.Account.ID != "123" {
		t.Errorf("account = %+v", grant.Account)
	}
}

func TestHTTPTokenBackend_RefreshRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	backend := NewHTTPTokenBackend(srv.URL, nil)
	_, err := backend.RefreshToken(context.Background(), "123", "stale-refresh")
	if !errors.IsRefreshInvalid(err) {
		t.Errorf("error = %v, want refresh invalid", err)
	}
}

func TestHTTPTokenBackend_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	backend := NewHTTPTokenBackend(srv.URL, nil)
	_, err := backend.RefreshToken(context.Background(), "123", "rt")
	if !errors.IsTransient(err) {
		t.Errorf("error = %v, want transient", err)
	}
}

func TestHTTPTokenBackend_EmptyAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"expires_in": 3600})
	}))
	defer srv.Close()

	backend := NewHTTPTokenBackend(srv.URL, nil)
	if _, err := backend.ExchangeCode(context.Background(), "code"); err == nil {
		t.Error("ExchangeCode() accepted a grant with no access token")
	}
}

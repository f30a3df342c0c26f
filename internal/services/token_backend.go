package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sellerhub/backend/internal/domain/credential"
	"github.com/sellerhub/backend/internal/pkg/errors"
)

// HTTPTokenBackend talks to the trusted backend that holds the
// marketplace client secret and performs the actual code exchange and
// refresh calls on our behalf.
type HTTPTokenBackend struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPTokenBackend creates a token backend client
func NewHTTPTokenBackend(baseURL string, httpClient *http.Client) *HTTPTokenBackend {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPTokenBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ExchangeCode trades an authorization code for a token grant
func (b *HTTPTokenBackend) ExchangeCode(ctx context.Context, code string) (*credential.TokenGrant, error) {
	return b.post(ctx, "/oauth/exchange", map[string]string{"code": code})
}

// RefreshToken trades a refresh token for a new grant. A 401 from the
// backend means the refresh token itself was rejected.
func (b *HTTPTokenBackend) RefreshToken(ctx context.Context, accountID, refreshToken string) (*credential.TokenGrant, error) {
	grant, err := b.post(ctx, "/oauth/refresh", map[string]string{
		"account_id":    accountID,
		"refresh_token": refreshToken,
	})
	if err != nil && errors.HasCode(err, errors.ErrCodeUnauthorized) {
		return nil, errors.RefreshInvalid("refresh token rejected by backend", err)
	}
	return grant, err
}

func (b *HTTPTokenBackend) post(ctx context.Context, path string, payload map[string]string) (*credential.TokenGrant, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Internal("failed to encode backend request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Internal("failed to build backend request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, errors.Transient("token backend unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Transient("failed to read backend response", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errors.Unauthorized("token backend rejected the request")
	case resp.StatusCode >= 500:
		return nil, errors.Transient(fmt.Sprintf("token backend returned %d", resp.StatusCode), nil)
	default:
		return nil, errors.New(errors.ErrCodeBadRequest,
			fmt.Sprintf("token backend returned %d", resp.StatusCode), resp.StatusCode)
	}

	var grant credential.TokenGrant
	if err := json.Unmarshal(respBody, &grant); err != nil {
		return nil, errors.Internal("failed to decode backend response", err)
	}
	if grant.AccessToken == "" {
		return nil, errors.Internal("token backend returned an empty access token", nil)
	}
	return &grant, nil
}

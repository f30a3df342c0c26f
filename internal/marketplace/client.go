// Package marketplace implements the resilient HTTP client for the
// external marketplace API. One client is built per linked account per
// sync run from a live access token; it holds no credential logic.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sellerhub/backend/internal/pkg/errors"
	"github.com/sellerhub/backend/internal/pkg/logger"
	"github.com/sellerhub/backend/internal/pkg/metrics"
)

// RetryPolicy is the explicit retry configuration for a client
type RetryPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	NoRetryStatuses map[int]struct{}
}

// DefaultRetryPolicy returns the standard policy: up to 3 attempts,
// exponential backoff from 1s, no retry on 401/403/404/429
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		NoRetryStatuses: map[int]struct{}{
			http.StatusUnauthorized:    {},
			http.StatusForbidden:       {},
			http.StatusNotFound:        {},
			http.StatusTooManyRequests: {},
		},
	}
}

func (p RetryPolicy) retryable(status int) bool {
	_, blocked := p.NoRetryStatuses[status]
	return !blocked
}

// Options configures a marketplace client
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Retry      RetryPolicy
	Timeout    time.Duration // per-request hard timeout
	CacheTTL   time.Duration
	Limiter    *rate.Limiter // shared outbound limiter, may be nil
	Logger     *logger.Logger

	// Sleep is the backoff wait; overridable for deterministic tests
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client executes marketplace calls with caching, retries and backoff
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      RetryPolicy
	timeout    time.Duration
	cache      *responseCache
	limiter    *rate.Limiter
	logger     *logger.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a marketplace client bound to one account's access token
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = waitFor
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		httpClient: httpClient,
		retry:      retry,
		timeout:    timeout,
		cache:      newResponseCache(opts.CacheTTL),
		limiter:    opts.Limiter,
		logger:     opts.Logger,
		sleep:      sleep,
	}
}

// Request performs one marketplace call under the client's resilience
// policy and returns the raw response payload
func (c *Client) Request(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	cacheKey := method + " " + path
	if method == http.MethodGet {
		if payload, ok := c.cache.get(cacheKey); ok {
			metrics.RecordCache("hit")
			return payload, nil
		}
		metrics.RecordCache("miss")
	}

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Internal("failed to encode request body", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retry.BaseDelay * (1 << (attempt - 1))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, errors.Transient("request cancelled during backoff", err)
			}
		}

		payload, err := c.attempt(ctx, method, path, bodyBytes)
		if err == nil {
			if method == http.MethodGet {
				c.cache.set(cacheKey, payload)
			} else {
				// conservative invalidation after any successful mutation
				c.cache.clear()
			}
			metrics.RecordMarketplaceRequest(method, "success")
			return payload, nil
		}

		if !errors.IsTransient(err) {
			metrics.RecordMarketplaceRequest(method, errors.CodeOf(err))
			return nil, err
		}

		metrics.RecordMarketplaceRequest(method, "transient")
		lastErr = err
		if c.logger != nil {
			c.logger.WithFields(map[string]interface{}{
				"method":  method,
				"path":    path,
				"attempt": attempt + 1,
			}).WithError(err).Warn("Marketplace request failed, will retry")
		}
	}

	return nil, lastErr
}

// attempt performs a single bounded HTTP call and classifies the outcome
func (c *Client) attempt(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Transient("rate limiter wait cancelled", err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Internal("failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// covers timeouts and network failures
		return nil, errors.Transient("marketplace request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Transient("failed to read response body", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return payload, nil
	}
	return nil, c.classify(resp.StatusCode, method, path)
}

// classify maps an error status to the failure taxonomy
func (c *Client) classify(status int, method, path string) error {
	switch {
	case status == http.StatusUnauthorized:
		return errors.AuthExpired(fmt.Sprintf("%s %s returned 401", method, path))
	case status == http.StatusTooManyRequests:
		return errors.RateLimited(fmt.Sprintf("%s %s returned 429", method, path))
	case !c.retry.retryable(status):
		return errors.New(errors.ErrCodeBadRequest,
			fmt.Sprintf("%s %s returned %d", method, path, status), status)
	default:
		return errors.Transient(fmt.Sprintf("%s %s returned %d", method, path, status), nil)
	}
}

// CacheSize reports the number of live cache entries
func (c *Client) CacheSize() int { return c.cache.len() }

func waitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

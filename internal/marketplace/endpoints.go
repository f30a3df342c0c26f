package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sellerhub/backend/internal/domain/account"
	"github.com/sellerhub/backend/internal/pkg/errors"
)

// Account-scoped operations. These are thin call-sites over Request;
// their resilience behavior is entirely governed by the client policy.

const (
	defaultListingLimit = 50
	defaultOrderDays    = 30
	defaultOrderLimit   = 50
)

type paging struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type listingPage struct {
	Paging  paging            `json:"paging"`
	Results []account.Listing `json:"results"`
}

type orderPage struct {
	Paging  paging          `json:"paging"`
	Results []account.Order `json:"results"`
}

// Profile fetches the seller profile
func (c *Client) Profile(ctx context.Context) (*account.Profile, error) {
	payload, err := c.Request(ctx, http.MethodGet, "/users/me", nil)
	if err != nil {
		return nil, err
	}
	var profile account.Profile
	if err := json.Unmarshal(payload, &profile); err != nil {
		return nil, errors.Internal("failed to decode profile", err)
	}
	return &profile, nil
}

// Summary fetches the account summary
func (c *Client) Summary(ctx context.Context) (*account.Summary, error) {
	payload, err := c.Request(ctx, http.MethodGet, "/users/me/summary", nil)
	if err != nil {
		return nil, err
	}
	var summary account.Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, errors.Internal("failed to decode summary", err)
	}
	return &summary, nil
}

// Listings fetches one bounded page of published items
func (c *Client) Listings(ctx context.Context) ([]account.Listing, error) {
	path := fmt.Sprintf("/users/me/items?limit=%d", defaultListingLimit)
	payload, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var page listingPage
	if err := json.Unmarshal(payload, &page); err != nil {
		return nil, errors.Internal("failed to decode listings", err)
	}
	return page.Results, nil
}

// RecentOrders fetches orders within a bounded time window
func (c *Client) RecentOrders(ctx context.Context) ([]account.Order, error) {
	path := fmt.Sprintf("/orders/search/recent?days=%d&limit=%d", defaultOrderDays, defaultOrderLimit)
	payload, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var page orderPage
	if err := json.Unmarshal(payload, &page); err != nil {
		return nil, errors.Internal("failed to decode orders", err)
	}
	return page.Results, nil
}

// Reputation fetches the seller reputation metrics
func (c *Client) Reputation(ctx context.Context) (*account.Reputation, error) {
	payload, err := c.Request(ctx, http.MethodGet, "/users/me/reputation", nil)
	if err != nil {
		return nil, err
	}
	var rep account.Reputation
	if err := json.Unmarshal(payload, &rep); err != nil {
		return nil, errors.Internal("failed to decode reputation", err)
	}
	return &rep, nil
}

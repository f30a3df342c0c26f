package client

import (
	"context"
	"net/http"
)

// DashboardService serves cross-account aggregates
type DashboardService struct {
	client *Client
}

// Dashboard returns the dashboard service
func (c *Client) Dashboard() *DashboardService {
	return &DashboardService{client: c}
}

// Metrics returns totals across all accounts
func (s *DashboardService) Metrics(ctx context.Context) (*AggregatedMetrics, error) {
	var agg AggregatedMetrics
	err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/dashboard/metrics", nil, &agg)
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// Health checks the API liveness endpoint
func (c *Client) Health(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/health", nil, nil)
}

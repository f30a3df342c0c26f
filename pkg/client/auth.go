package client

import (
	"context"
	"net/http"
)

// Login authenticates with the dashboard password and stores the
// session token on the client
func (c *Client) Login(ctx context.Context, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"password": password}, &resp)
	if err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Logout clears the server-side session cookie
func (c *Client) Logout(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
}

package client

import (
	"context"
	"net/http"

	"github.com/tukey-analytics/tukey/internal/types"
)

// CheckHealth returns the API health status
func (c *Client) CheckHealth(ctx context.Context) (*types.Health, error) {
	var health types.Health
	err := c.do(ctx, apiRequest{
		op:     "health",
		method: http.MethodGet,
		path:   "/health",
	}, &health)
	if err != nil {
		return nil, err
	}
	return &health, nil
}

package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/tukey-analytics/tukey/internal/types"
)

// ListDashboards returns the dashboards available to the user
func (c *Client) ListDashboards(ctx context.Context) ([]types.Dashboard, error) {
	var dashboards []types.Dashboard
	err := c.do(ctx, apiRequest{
		op:     "list dashboards",
		method: http.MethodGet,
		path:   "/dashboards/",
	}, &dashboards)
	if err != nil {
		return nil, err
	}
	return dashboards, nil
}

// GetDashboardEmbedToken returns the token used by the dashboard widget to render the dashboard
func (c *Client) GetDashboardEmbedToken(ctx context.Context, dashboardID string) (*types.EmbedToken, error) {
	if dashboardID == "" {
		return nil, NewClientInternalError(errors.New("dashboard id is required"), "requesting embed token")
	}

	var token types.EmbedToken
	err := c.do(ctx, apiRequest{
		op:     "get embed token",
		method: http.MethodGet,
		path:   "/dashboards/" + url.PathEscape(dashboardID) + "/embed-token",
	}, &token)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

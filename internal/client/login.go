package client

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tukey-analytics/tukey/internal/types"
)

// development credentials accepted without calling the API when the bypass is enabled
const (
	DevLoginEmail    = "admin@example.org"
	DevLoginPassword = "test"
)

// Login authenticates a user with the analytics API.
// The credentials are sent as query parameters, which is what the API expects.
func (c *Client) Login(ctx context.Context, email, password string) (*types.LoginResponse, error) {
	if c.devLoginBypass && email == DevLoginEmail && password == DevLoginPassword {
		c.logger.Warn("development login bypass used - do not enable in production",
			slog.String("component", "client"),
			slog.String("email", email),
		)
		return devLoginResponse(), nil
	}

	var loginRes types.LoginResponse
	err := c.do(ctx, apiRequest{
		op:     "login",
		method: http.MethodPost,
		path:   "/auth/login",
		query: url.Values{
			"email":    {email},
			"password": {password},
		},
	}, &loginRes)
	if err != nil {
		return nil, err
	}

	return &loginRes, nil
}

func devLoginResponse() *types.LoginResponse {
	return &types.LoginResponse{
		AccessToken: "<sample_access_token>",
		TokenType:   "Bearer",
		User: &types.LoginUser{
			Email:        DevLoginEmail,
			Name:         "Admin User",
			Role:         string(types.RoleAdmin),
			Organization: "Example Org",
			Region:       "Global",
		},
	}
}

package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries a per-request id so calls can be matched with API logs
const RequestIDHeader = "X-Request-ID"

// RequestIDHook sets a random request id on requests that do not already have one
func RequestIDHook() RequestHook {
	return func(req *http.Request) error {
		if req.Header.Get(RequestIDHeader) == "" {
			req.Header.Set(RequestIDHeader, uuid.NewString())
		}
		return nil
	}
}

// BearerTokenHook adds an Authorization header when token returns a non-empty value
func BearerTokenHook(token func(ctx context.Context) string) RequestHook {
	return func(req *http.Request) error {
		if t := token(req.Context()); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
		return nil
	}
}

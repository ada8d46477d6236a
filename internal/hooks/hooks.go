// Package hooks binds each API operation to a query or mutation with a fixed policy.
//
// Reads (dashboards, health) are cached queries with automatic retries. Writes (login, upload,
// embed token, AI decision) are mutations: they run once per call and report through callbacks.
package hooks

import (
	"context"

	"github.com/tukey-analytics/tukey/internal/apperrors"
	"github.com/tukey-analytics/tukey/internal/client"
	"github.com/tukey-analytics/tukey/internal/query"
)

// retryDelay is the first backoff interval for the read hooks
var retryDelay = query.DefaultRetryDelay

// retryable skips retries once the API has rejected the session or the permission,
// a repeat of the same call cannot succeed
func retryable(err error) bool {
	switch client.ErrorKind(err) {
	case apperrors.KindAuthentication, apperrors.KindAuthorization:
		return false
	default:
		return true
	}
}

// Callbacks are the optional success and error callbacks of a mutation hook
type Callbacks[D any] struct {
	OnSuccess func(data D)
	OnError   func(err error)
}

func mutationOptions[V, D any](fn func(ctx context.Context, vars V) (D, error), cb Callbacks[D]) query.MutationOptions[V, D] {
	opts := query.MutationOptions[V, D]{MutationFn: fn}
	if cb.OnSuccess != nil {
		opts.OnSuccess = func(data D, _ V) { cb.OnSuccess(data) }
	}
	if cb.OnError != nil {
		opts.OnError = func(err error, _ V) { cb.OnError(err) }
	}
	return opts
}

package session

import (
	"context"

	"github.com/tukey-analytics/tukey/internal/types"
)

// Common context keys - use a struct to prevent conflicts
type contextKey struct {
	name string
}

var sessionKey = contextKey{"session"}

func ContextWithSession(ctx context.Context, sess types.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

func ContextSession(ctx context.Context) (types.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(types.Session)
	return sess, ok
}

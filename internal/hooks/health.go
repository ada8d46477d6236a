package hooks

import (
	"context"
	"time"

	"github.com/tukey-analytics/tukey/internal/query"
	"github.com/tukey-analytics/tukey/internal/types"
)

const (
	HealthKey             = "health"
	HealthRefetchInterval = time.Minute
	HealthRetry           = 1
)

type HealthChecker interface {
	CheckHealth(ctx context.Context) (*types.Health, error)
}

// Health polls the API health endpoint every minute while enabled
func Health(cache *query.Cache, api HealthChecker, enabled bool) *query.Query[*types.Health] {
	return query.New(cache, query.Options[*types.Health]{
		Key:             HealthKey,
		QueryFn:         api.CheckHealth,
		RefetchInterval: HealthRefetchInterval,
		Retry:           HealthRetry,
		RetryDelay:      retryDelay,
		ShouldRetry:     retryable,
		Enabled:         func() bool { return enabled },
	})
}

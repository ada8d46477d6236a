package hooks

import (
	"context"
	"time"

	"github.com/tukey-analytics/tukey/internal/query"
	"github.com/tukey-analytics/tukey/internal/types"
)

const (
	DashboardsKey       = "dashboards"
	DashboardsStaleTime = 5 * time.Minute
	DashboardsRetry     = 2
)

type DashboardLister interface {
	ListDashboards(ctx context.Context) ([]types.Dashboard, error)
}

type EmbedTokenFetcher interface {
	GetDashboardEmbedToken(ctx context.Context, dashboardID string) (*types.EmbedToken, error)
}

// Dashboards lists the dashboards; a successful result is reused for five minutes
func Dashboards(cache *query.Cache, api DashboardLister) *query.Query[[]types.Dashboard] {
	return query.New(cache, query.Options[[]types.Dashboard]{
		Key:         DashboardsKey,
		QueryFn:     api.ListDashboards,
		StaleTime:   DashboardsStaleTime,
		Retry:       DashboardsRetry,
		RetryDelay:  retryDelay,
		ShouldRetry: retryable,
	})
}

// DashboardEmbedToken fetches an embed token; the mutation variable is the dashboard id
func DashboardEmbedToken(api EmbedTokenFetcher, cb Callbacks[*types.EmbedToken]) *query.Mutation[string, *types.EmbedToken] {
	return query.NewMutation(mutationOptions(api.GetDashboardEmbedToken, cb))
}

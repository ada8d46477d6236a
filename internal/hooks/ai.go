package hooks

import (
	"context"

	"github.com/tukey-analytics/tukey/internal/query"
	"github.com/tukey-analytics/tukey/internal/types"
)

type DecisionMaker interface {
	GetAIDecision(ctx context.Context, q types.AIQuery) (*types.AIDecision, error)
}

// AIDecisionCallbacks differ from Callbacks in that the success callback also receives the submitted query
type AIDecisionCallbacks struct {
	OnSuccess func(data *types.AIDecision, q types.AIQuery)
	OnError   func(err error)
}

func AIDecision(api DecisionMaker, cb AIDecisionCallbacks) *query.Mutation[types.AIQuery, *types.AIDecision] {
	opts := query.MutationOptions[types.AIQuery, *types.AIDecision]{
		MutationFn: api.GetAIDecision,
		OnSuccess:  cb.OnSuccess,
	}
	if cb.OnError != nil {
		opts.OnError = func(err error, _ types.AIQuery) { cb.OnError(err) }
	}
	return query.NewMutation(opts)
}

package client

import (
	"context"
	"net/http"

	"github.com/tukey-analytics/tukey/internal/types"
)

// GetAIDecision asks the API for a decision based on the structured query
func (c *Client) GetAIDecision(ctx context.Context, query types.AIQuery) (*types.AIDecision, error) {
	body, err := jsonBody(query)
	if err != nil {
		return nil, NewClientInternalError(err, "marshaling ai decision request")
	}

	var decision types.AIDecision
	err = c.do(ctx, apiRequest{
		op:     "ai decision",
		method: http.MethodPost,
		path:   "/ai/decision",
		body:   body,
	}, &decision)
	if err != nil {
		return nil, err
	}
	return &decision, nil
}

package insights

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tukey-analytics/tukey/internal/types"
)

func validQuery() types.AIQuery {
	return types.AIQuery{
		TimePeriod:  "Q4 2024",
		Region:      "North America",
		TopProducts: []string{"Espresso Beans", "Oat Milk"},
		SalesTrend:  "increasing",
	}
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *types.AIQuery)
		wantMsg string
	}{
		{name: "valid", mutate: func(q *types.AIQuery) {}},
		{name: "five products", mutate: func(q *types.AIQuery) { q.TopProducts = []string{"a", "b", "c", "d", "e"} }},
		{name: "missing time period", mutate: func(q *types.AIQuery) { q.TimePeriod = "" }, wantMsg: msgMissingInformation},
		{name: "blank region", mutate: func(q *types.AIQuery) { q.Region = "   " }, wantMsg: msgMissingInformation},
		{name: "missing trend", mutate: func(q *types.AIQuery) { q.SalesTrend = "" }, wantMsg: msgMissingInformation},
		{name: "nil products", mutate: func(q *types.AIQuery) { q.TopProducts = nil }, wantMsg: msgMissingInformation},
		{name: "empty products", mutate: func(q *types.AIQuery) { q.TopProducts = []string{} }, wantMsg: msgMissingInformation},
		{name: "blank product", mutate: func(q *types.AIQuery) { q.TopProducts = []string{"a", ""} }, wantMsg: msgMissingInformation},
		{name: "six products", mutate: func(q *types.AIQuery) { q.TopProducts = []string{"a", "b", "c", "d", "e", "f"} }, wantMsg: msgTooManyProducts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuery()
			tt.mutate(&q)

			err := ValidateQuery(q)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}

			var qerr *QueryError
			require.True(t, errors.As(err, &qerr), "expected a QueryError, got %v", err)
			assert.Equal(t, tt.wantMsg, qerr.Message)
		})
	}
}

func TestNormalizeConfidence(t *testing.T) {
	tests := []struct {
		raw  any
		want int
	}{
		{raw: "high", want: 85},
		{raw: "HIGH", want: 85},
		{raw: "medium", want: 65},
		{raw: "Medium", want: 65},
		{raw: "low", want: 45},
		{raw: "very confident", want: 45},
		{raw: "", want: 45},
		{raw: 42, want: 42},
		{raw: float64(42), want: 42},
		{raw: 91.6, want: 92},
		{raw: json.Number("77"), want: 77},
		{raw: json.Number("x"), want: 75},
		{raw: 150, want: 100},
		{raw: json.Number("100.4"), want: 100},
		{raw: -20, want: 0},
		{raw: 0, want: 75},
		{raw: math.NaN(), want: 75},
		{raw: nil, want: 75},
		{raw: true, want: 1},
		{raw: []string{"high"}, want: 75},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.raw), func(t *testing.T) {
			if got := NormalizeConfidence(tt.raw); got != tt.want {
				t.Errorf("NormalizeConfidence(%#v) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeConfidenceFromWire(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{body: `{"decision":"d","reason":"r","confidence":"high"}`, want: 85},
		{body: `{"decision":"d","reason":"r","confidence":42}`, want: 42},
		{body: `{"decision":"d","reason":"r"}`, want: 75},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var d types.AIDecision
			require.NoError(t, json.Unmarshal([]byte(tt.body), &d))
			assert.Equal(t, tt.want, NormalizeConfidence(d.Confidence))
		})
	}
}

func TestFromDecision(t *testing.T) {
	q := validQuery()

	tests := []struct {
		name string
		in   *types.AIDecision
		want Insight
	}{
		{
			name: "complete",
			in:   &types.AIDecision{Decision: "Increase stock", Confidence: "medium", Reason: "Seasonal demand"},
			want: Insight{Query: q, Decision: "Increase stock", Confidence: 65, Reason: "Seasonal demand"},
		},
		{
			name: "empty fields get defaults",
			in:   &types.AIDecision{},
			want: Insight{Query: q, Decision: "No decision available", Confidence: 75, Reason: "Analysis completed"},
		},
		{
			name: "nil decision",
			in:   nil,
			want: Insight{Query: q, Decision: "No decision available", Confidence: 75, Reason: "Analysis completed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromDecision(q, tt.in)
			assert.False(t, got.CreatedAt.IsZero())
			got.CreatedAt = tt.want.CreatedAt
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHistoryKeepsFiveMostRecent(t *testing.T) {
	h := NewHistory()
	_, ok := h.Latest()
	assert.False(t, ok)

	for i := 1; i <= 7; i++ {
		h.Add(Insight{Decision: fmt.Sprintf("decision %d", i)})
	}

	items := h.List()
	require.Len(t, items, HistorySize)
	for i, in := range items {
		assert.Equal(t, fmt.Sprintf("decision %d", 7-i), in.Decision)
	}

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, "decision 7", latest.Decision)

	// List returns a copy
	items[0].Decision = "changed"
	latest, _ = h.Latest()
	assert.Equal(t, "decision 7", latest.Decision)

	h.Clear()
	assert.Empty(t, h.List())
}

package insights

import (
	"sync"
	"time"

	"github.com/tukey-analytics/tukey/internal/types"
)

const (
	// HistorySize is the number of insights kept by a History
	HistorySize = 5

	defaultDecision = "No decision available"
	defaultReason   = "Analysis completed"
)

// Insight is a decision paired with the query that produced it
type Insight struct {
	Query      types.AIQuery `json:"query"`
	Decision   string        `json:"decision"`
	Confidence int           `json:"confidence"`
	Reason     string        `json:"reason"`
	CreatedAt  time.Time     `json:"created_at"`
}

func FromDecision(q types.AIQuery, d *types.AIDecision) Insight {
	in := Insight{
		Query:      q,
		Decision:   defaultDecision,
		Confidence: ConfidenceDefault,
		Reason:     defaultReason,
		CreatedAt:  time.Now().UTC(),
	}
	if d == nil {
		return in
	}
	if d.Decision != "" {
		in.Decision = d.Decision
	}
	if d.Reason != "" {
		in.Reason = d.Reason
	}
	in.Confidence = NormalizeConfidence(d.Confidence)
	return in
}

// History keeps the most recent insights, newest first
type History struct {
	mu    sync.RWMutex
	items []Insight
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Add(in Insight) {
	h.mu.Lock()
	defer h.mu.Unlock()

	items := make([]Insight, 0, HistorySize)
	items = append(items, in)
	for _, prev := range h.items {
		if len(items) == HistorySize {
			break
		}
		items = append(items, prev)
	}
	h.items = items
}

// List returns a copy of the history, newest first
func (h *History) List() []Insight {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Insight(nil), h.items...)
}

func (h *History) Latest() (Insight, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.items) == 0 {
		return Insight{}, false
	}
	return h.items[0], true
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = nil
}

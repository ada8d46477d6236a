package query

import (
	"context"
	"sync"
)

type MutationOptions[V, D any] struct {
	MutationFn func(ctx context.Context, vars V) (D, error)
	OnSuccess  func(data D, vars V)
	OnError    func(err error, vars V)
}

type MutationState[D any] struct {
	Data      D
	HasData   bool
	Err       error
	IsPending bool
}

// Mutation runs a write call once per Mutate. Results are not cached and failures are not retried.
type Mutation[V, D any] struct {
	opts MutationOptions[V, D]

	mu      sync.Mutex
	state   MutationState[D]
	pending int
}

func NewMutation[V, D any](opts MutationOptions[V, D]) *Mutation[V, D] {
	return &Mutation[V, D]{opts: opts}
}

// Mutate calls the mutation function, records the outcome and then runs the matching callback
func (m *Mutation[V, D]) Mutate(ctx context.Context, vars V) (D, error) {
	m.mu.Lock()
	m.pending++
	m.state.IsPending = true
	m.mu.Unlock()

	data, err := m.opts.MutationFn(ctx, vars)

	m.mu.Lock()
	m.pending--
	m.state.IsPending = m.pending > 0
	if err != nil {
		m.state.Err = err
	} else {
		m.state.Data = data
		m.state.HasData = true
		m.state.Err = nil
	}
	m.mu.Unlock()

	if err != nil {
		if m.opts.OnError != nil {
			m.opts.OnError(err, vars)
		}
		var zero D
		return zero, err
	}

	if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(data, vars)
	}
	return data, nil
}

func (m *Mutation[V, D]) State() MutationState[D] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset clears the recorded outcome
func (m *Mutation[V, D]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = MutationState[D]{IsPending: m.pending > 0}
}

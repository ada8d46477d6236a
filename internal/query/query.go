package query

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultRetryDelay = time.Second
	MaxRetryDelay     = 30 * time.Second
)

// ErrDisabled is returned by Fetch when the query is disabled and nothing is cached
var ErrDisabled = errors.New("query is disabled")

type Options[T any] struct {
	Key     string
	QueryFn func(ctx context.Context) (T, error)

	// StaleTime is how long a successful result is served from the cache. Zero means always refetch.
	StaleTime time.Duration

	// Retry is the number of additional attempts after a failure
	Retry int

	// RetryDelay is the first backoff interval; it doubles per attempt up to MaxRetryDelay
	RetryDelay time.Duration

	// ShouldRetry decides whether a failure is retried. nil retries every failure.
	ShouldRetry func(err error) bool

	// RefetchInterval is the period used by Poll
	RefetchInterval time.Duration

	// Enabled gates every fetch. nil means always enabled.
	Enabled func() bool
}

// State is what a caller renders: the latest data, the latest error and whether a fetch is running
type State[T any] struct {
	Data       T
	HasData    bool
	Err        error
	IsFetching bool
	UpdatedAt  time.Time
}

type Query[T any] struct {
	cache *Cache
	opts  Options[T]
}

func New[T any](cache *Cache, opts Options[T]) *Query[T] {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Query[T]{cache: cache, opts: opts}
}

func (q *Query[T]) Key() string {
	return q.opts.Key
}

func (q *Query[T]) enabled() bool {
	return q.opts.Enabled == nil || q.opts.Enabled()
}

// Fetch returns the cached result while it is fresh and otherwise calls the query function
func (q *Query[T]) Fetch(ctx context.Context) (T, error) {
	if !q.enabled() {
		return q.cachedOrDisabled()
	}
	if data, ok := q.cache.fresh(q.opts.Key, q.opts.StaleTime); ok {
		if v, ok := data.(T); ok {
			return v, nil
		}
	}
	return q.run(ctx)
}

// Refetch ignores the staleness window
func (q *Query[T]) Refetch(ctx context.Context) (T, error) {
	if !q.enabled() {
		return q.cachedOrDisabled()
	}
	return q.run(ctx)
}

func (q *Query[T]) cachedOrDisabled() (T, error) {
	var zero T
	e, ok := q.cache.Entry(q.opts.Key)
	if !ok || !e.HasData {
		return zero, ErrDisabled
	}
	v, ok := e.Data.(T)
	if !ok {
		return zero, ErrDisabled
	}
	return v, nil
}

func (q *Query[T]) run(ctx context.Context) (T, error) {
	var zero T

	// the shared call outlives any single caller; each caller stops waiting on its own ctx below
	fetchCtx := context.WithoutCancel(ctx)
	ch := q.cache.group.DoChan(q.cache.flightKey(q.opts.Key), func() (any, error) {
		e := q.cache.begin(q.opts.Key)
		data, err := q.withRetry(fetchCtx)
		q.cache.finish(q.opts.Key, e, data, err)
		return data, err
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, errors.New("query: cached value has an unexpected type for key " + q.opts.Key)
		}
		return v, nil
	}
}

func (q *Query[T]) withRetry(ctx context.Context) (T, error) {
	var data T

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.opts.RetryDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = MaxRetryDelay
	b.MaxElapsedTime = 0

	op := func() error {
		var err error
		data, err = q.opts.QueryFn(ctx)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if err != nil && q.opts.ShouldRetry != nil && !q.opts.ShouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(q.opts.Retry, 0))), ctx))
	return data, err
}

// State reports the cached state of the query's key
func (q *Query[T]) State() State[T] {
	e, ok := q.cache.Entry(q.opts.Key)
	if !ok {
		return State[T]{}
	}

	st := State[T]{
		Err:        e.Err,
		IsFetching: e.Fetching,
		UpdatedAt:  e.UpdatedAt,
	}
	if v, ok := e.Data.(T); ok && e.HasData {
		st.Data = v
		st.HasData = true
	}
	return st
}

func (q *Query[T]) Invalidate() {
	q.cache.Invalidate(q.opts.Key)
}

// Poll fetches immediately and then every RefetchInterval until ctx is done.
// onResult receives every outcome, including failures; ticks while the query is disabled are skipped.
// Without a RefetchInterval Poll fetches once.
func (q *Query[T]) Poll(ctx context.Context, onResult func(T, error)) error {
	tick := func() {
		if !q.enabled() {
			return
		}
		data, err := q.Refetch(ctx)
		if ctx.Err() != nil {
			return
		}
		if onResult != nil {
			onResult(data, err)
		}
	}

	tick()
	if q.opts.RefetchInterval <= 0 {
		return nil
	}

	ticker := time.NewTicker(q.opts.RefetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tick()
		}
	}
}

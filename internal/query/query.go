package query

import (
	"context"
	"fmt"
)

// Result is what a view renders from: the last data plus loading and error flags.
type Result[T any] struct {
	Data      T
	HasData   bool
	IsLoading bool
	IsError   bool
	Err       error
}

// Query binds a key to the function that fetches it.
type Query[T any] struct {
	Cache *Cache
	Key   Key
	// Enabled gates the fetch; a query with a missing scoping parameter
	// stays disabled and never hits the network.
	Enabled bool
	Fetch   func(ctx context.Context) (T, error)
}

// New returns an enabled query.
func New[T any](c *Cache, key Key, fetch func(ctx context.Context) (T, error)) Query[T] {
	return Query[T]{Cache: c, Key: key, Enabled: true, Fetch: fetch}
}

// Run returns the cached result, fetching first when the key has never been
// loaded or was invalidated. A cached error is returned as is; there is no
// automatic retry until the key is invalidated or Refetch is called.
func (q Query[T]) Run(ctx context.Context) Result[T] {
	if !q.Enabled {
		return Result[T]{}
	}
	_, _, hasResult, stale, _ := q.Cache.snapshot(q.Key)
	if hasResult && !stale {
		return q.Peek()
	}
	return q.Refetch(ctx)
}

// Refetch goes to the network. It joins a fetch already in flight for the
// key unless the key was invalidated after that fetch started.
func (q Query[T]) Refetch(ctx context.Context) Result[T] {
	if !q.Enabled {
		return Result[T]{}
	}
	v, err := q.Cache.load(ctx, q.Key, func(ctx context.Context) (any, error) {
		return q.Fetch(ctx)
	})
	r := q.Peek()
	if !r.HasData && !r.IsError && !r.IsLoading {
		// The entry was dropped by Clear while the fetch ran.
		return resultOf[T](v, err)
	}
	return r
}

func resultOf[T any](v any, err error) Result[T] {
	var r Result[T]
	if err != nil {
		r.IsError = true
		r.Err = err
		return r
	}
	if data, ok := v.(T); ok {
		r.Data = data
		r.HasData = true
	}
	return r
}

// Peek reads the cache without fetching.
func (q Query[T]) Peek() Result[T] {
	var r Result[T]
	if !q.Enabled {
		return r
	}
	data, err, hasResult, _, inflight := q.Cache.snapshot(q.Key)
	r.IsLoading = inflight
	if data != nil {
		v, ok := data.(T)
		if !ok {
			r.IsError = true
			r.Err = fmt.Errorf("query %s: cached %T is not %T", q.Key, data, r.Data)
			return r
		}
		r.Data = v
		r.HasData = true
	}
	if hasResult && err != nil {
		r.IsError = true
		r.Err = err
	}
	return r
}

// Get is Run returning (data, error) for callers that do not render flags.
func (q Query[T]) Get(ctx context.Context) (T, error) {
	r := q.Run(ctx)
	return r.Data, r.Err
}

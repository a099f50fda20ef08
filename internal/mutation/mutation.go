// Package mutation runs a single create/update/delete call and keeps the
// query cache honest afterwards.
package mutation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kidandcat/portfolio/internal/client"
	"github.com/kidandcat/portfolio/internal/logger"
	"github.com/kidandcat/portfolio/internal/notify"
	"github.com/kidandcat/portfolio/internal/query"
)

// Mutation wraps one network operation. The zero value is not usable; set
// Do at least. A Mutation may be shared between goroutines.
type Mutation[In, Out any] struct {
	Name string
	Do   func(ctx context.Context, in In) (Out, error)
	// Invalidates lists the cache keys (prefixes) made stale by a success.
	Invalidates func(in In, out Out) []query.Key
	// Success is the notice shown after a successful call; empty shows none.
	Success string
	// Fallback is the error notice when the server sent nothing usable.
	Fallback string

	Cache  *query.Cache
	Notify notify.Notifier
	Log    *zap.SugaredLogger

	mu      sync.Mutex
	pending int
	lastErr error
}

// Run performs exactly one call. On failure the error notices are emitted
// and the error is returned so the caller can keep its form open.
func (m *Mutation[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	log := logger.OrNop(m.Log)
	m.mu.Lock()
	m.pending++
	m.mu.Unlock()

	out, err := m.Do(ctx, in)

	m.mu.Lock()
	m.pending--
	m.lastErr = err
	m.mu.Unlock()

	if err != nil {
		log.Warnw("mutation failed", "mutation", m.Name, "error", err)
		if m.Notify != nil {
			for _, msg := range client.Messages(err, m.Fallback) {
				m.Notify.Error(msg)
			}
		}
		return out, err
	}

	if m.Cache != nil && m.Invalidates != nil {
		for _, k := range m.Invalidates(in, out) {
			m.Cache.Invalidate(k)
		}
	}
	if m.Notify != nil && m.Success != "" {
		m.Notify.Success(m.Success)
	}
	log.Debugw("mutation succeeded", "mutation", m.Name)
	return out, nil
}

func (m *Mutation[In, Out]) IsPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending > 0
}

// IsError reports whether the most recent call failed.
func (m *Mutation[In, Out]) IsError() bool {
	return m.Err() != nil
}

func (m *Mutation[In, Out]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Reset forgets the last error, e.g. when a dialog is reopened.
func (m *Mutation[In, Out]) Reset() {
	m.mu.Lock()
	m.lastErr = nil
	m.mu.Unlock()
}

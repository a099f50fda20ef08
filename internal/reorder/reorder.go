// Package reorder implements drag-and-drop reordering with optimistic local
// state. The same splice logic serves the persisted backlog table and the
// kanban board; what differs is only the Persist side effect.
package reorder

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrOutOfRange  = errors.New("index out of range")
	ErrNotDragging = errors.New("no drag in progress")
)

// Persist sends the new order to the server. Ephemeral never fails.
type Persist[T any] func(ctx context.Context, items []T) error

// Ephemeral is the Persist of boards that live only in memory.
func Ephemeral[T any](context.Context, []T) error { return nil }

// Move returns a copy of items with the element at from moved to to, and
// every element's order rewritten to its new index via setOrder. The input
// slice is not modified.
func Move[T any](items []T, from, to int, setOrder func(*T, int)) ([]T, error) {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return nil, fmt.Errorf("%w: move %d -> %d in %d items", ErrOutOfRange, from, to, len(items))
	}
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	moved := items[from]
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	Renumber(out, setOrder)
	return out, nil
}

// Renumber sets every element's order to its index.
func Renumber[T any](items []T, setOrder func(*T, int)) {
	if setOrder == nil {
		return
	}
	for i := range items {
		setOrder(&items[i], i)
	}
}

// Submission tracks the asynchronous persist that follows an optimistic drop.
// A nil *Submission is a no-op drop.
type Submission struct {
	done chan struct{}
	err  error
}

func newSubmission() *Submission {
	return &Submission{done: make(chan struct{})}
}

func (s *Submission) finish(err error) {
	s.err = err
	close(s.done)
}

// Wait blocks until the submission (and any rollback) has finished.
func (s *Submission) Wait() error {
	if s == nil {
		return nil
	}
	<-s.done
	return s.err
}

// Done is closed when the submission has finished. Nil for no-op drops.
func (s *Submission) Done() <-chan struct{} {
	if s == nil {
		return nil
	}
	return s.done
}

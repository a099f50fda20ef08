package reorder

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kidandcat/portfolio/internal/client"
	"github.com/kidandcat/portfolio/internal/logger"
	"github.com/kidandcat/portfolio/internal/notify"
)

type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// NoDestination is the drop target of an item released outside any list.
const NoDestination = -1

type ListConfig[T any] struct {
	SetOrder func(*T, int)
	Persist  Persist[T]
	// Reload fetches the canonical list after a failed persist. When nil the
	// list falls back to the order it had before the drop.
	Reload func(ctx context.Context) ([]T, error)
	Notify notify.Notifier
	// FailureMessage is shown when the server gave no message of its own.
	FailureMessage string
	// OnChange runs after every change to the visible list, outside the lock.
	OnChange func(items []T)
	Log      *zap.SugaredLogger
}

// List is a single reorderable list, e.g. the stories of one backlog.
type List[T any] struct {
	cfg ListConfig[T]
	log *zap.SugaredLogger

	mu    sync.Mutex
	items []T
	state State
	from  int
}

func NewList[T any](items []T, cfg ListConfig[T]) *List[T] {
	if cfg.Persist == nil {
		cfg.Persist = Ephemeral[T]
	}
	if cfg.Notify == nil {
		cfg.Notify = notify.Discard{}
	}
	if cfg.FailureMessage == "" {
		cfg.FailureMessage = "Failed to save the new order"
	}
	l := &List[T]{cfg: cfg, log: logger.OrNop(cfg.Log)}
	l.items = append([]T(nil), items...)
	return l
}

// Items returns a copy of the visible list.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

// Set replaces the visible list, e.g. with a fresh server response.
func (l *List[T]) Set(items []T) {
	l.mu.Lock()
	l.items = append([]T(nil), items...)
	l.mu.Unlock()
	l.changed(items)
}

func (l *List[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Begin starts dragging the item at index.
func (l *List[T]) Begin(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.items) {
		return ErrOutOfRange
	}
	l.state = Dragging
	l.from = index
	return nil
}

// Cancel abandons the current drag.
func (l *List[T]) Cancel() {
	l.mu.Lock()
	l.state = Idle
	l.mu.Unlock()
}

// Drop releases the dragged item at index to. Releasing outside the list
// (NoDestination) or on the original index is a no-op and returns nil.
// Otherwise the visible list is updated immediately and the new order is
// persisted in the background; on failure an error notice is shown and the
// canonical order is reloaded.
func (l *List[T]) Drop(ctx context.Context, to int) (*Submission, error) {
	l.mu.Lock()
	if l.state != Dragging {
		l.mu.Unlock()
		return nil, ErrNotDragging
	}
	l.state = Idle
	from := l.from
	if to == NoDestination || to == from {
		l.mu.Unlock()
		return nil, nil
	}
	before := l.items
	next, err := Move(before, from, to, l.cfg.SetOrder)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	l.items = next
	l.mu.Unlock()

	l.changed(next)
	l.log.Debugw("reordered", "from", from, "to", to)

	sub := newSubmission()
	snapshot := append([]T(nil), next...)
	go func() {
		err := l.cfg.Persist(ctx, snapshot)
		if err != nil {
			l.rollback(ctx, before, err)
		}
		sub.finish(err)
	}()
	return sub, nil
}

// MoveItem is Begin followed by Drop.
func (l *List[T]) MoveItem(ctx context.Context, from, to int) (*Submission, error) {
	if err := l.Begin(from); err != nil {
		return nil, err
	}
	return l.Drop(ctx, to)
}

func (l *List[T]) rollback(ctx context.Context, before []T, cause error) {
	l.log.Warnw("reorder not saved, reloading", "error", cause)
	for _, msg := range client.Messages(cause, l.cfg.FailureMessage) {
		l.cfg.Notify.Error(msg)
	}

	canonical := before
	if l.cfg.Reload != nil {
		fresh, err := l.cfg.Reload(ctx)
		if err != nil {
			l.log.Errorw("reload after failed reorder", "error", err)
		} else {
			canonical = fresh
		}
	}
	l.Set(canonical)
}

func (l *List[T]) changed(items []T) {
	if l.cfg.OnChange != nil {
		l.cfg.OnChange(append([]T(nil), items...))
	}
}

package reorder

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kidandcat/portfolio/internal/client"
	"github.com/kidandcat/portfolio/internal/logger"
	"github.com/kidandcat/portfolio/internal/notify"
)

// Location addresses a card on a board. An empty Column means "nowhere".
type Location struct {
	Column string
	Index  int
}

type BoardConfig[T any] struct {
	SetOrder func(*T, int)
	// SetColumn records the destination column on a card that changed column.
	SetColumn func(*T, string)
	// Persist receives the cards of every column touched by a move.
	Persist Persist[T]
	Reload  func(ctx context.Context) (map[string][]T, error)
	Notify  notify.Notifier

	FailureMessage string
	OnChange       func(columns map[string][]T)
	Log            *zap.SugaredLogger
}

// Board is a kanban board: ordered columns of ordered cards.
type Board[T any] struct {
	cfg     BoardConfig[T]
	log     *zap.SugaredLogger
	columns []string

	mu    sync.Mutex
	cards map[string][]T
	state State
	from  Location
}

// NewBoard builds a board with the given column order. Cards in columns not
// listed are dropped.
func NewBoard[T any](columns []string, cards map[string][]T, cfg BoardConfig[T]) *Board[T] {
	if cfg.Persist == nil {
		cfg.Persist = Ephemeral[T]
	}
	if cfg.Notify == nil {
		cfg.Notify = notify.Discard{}
	}
	if cfg.FailureMessage == "" {
		cfg.FailureMessage = "Failed to save the board"
	}
	b := &Board[T]{
		cfg:     cfg,
		log:     logger.OrNop(cfg.Log),
		columns: append([]string(nil), columns...),
	}
	b.cards = b.normalize(cards)
	return b
}

func (b *Board[T]) normalize(cards map[string][]T) map[string][]T {
	out := make(map[string][]T, len(b.columns))
	for _, c := range b.columns {
		out[c] = append([]T(nil), cards[c]...)
	}
	return out
}

func (b *Board[T]) Columns() []string { return append([]string(nil), b.columns...) }

// Cards returns a copy of one column.
func (b *Board[T]) Cards(column string) []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]T(nil), b.cards[column]...)
}

// Snapshot returns a deep copy of every column.
func (b *Board[T]) Snapshot() map[string][]T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.normalize(b.cards)
}

func (b *Board[T]) Set(cards map[string][]T) {
	b.mu.Lock()
	b.cards = b.normalize(cards)
	snap := b.normalize(b.cards)
	b.mu.Unlock()
	b.changed(snap)
}

func (b *Board[T]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Board[T]) Begin(from Location) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	col, ok := b.cards[from.Column]
	if !ok || from.Index < 0 || from.Index >= len(col) {
		return fmt.Errorf("%w: %s[%d]", ErrOutOfRange, from.Column, from.Index)
	}
	b.state = Dragging
	b.from = from
	return nil
}

func (b *Board[T]) Cancel() {
	b.mu.Lock()
	b.state = Idle
	b.mu.Unlock()
}

// Drop releases the dragged card at to. Within one column this is the list
// splice; across columns the card leaves the source column, is inserted in
// the destination column and both are renumbered.
func (b *Board[T]) Drop(ctx context.Context, to Location) (*Submission, error) {
	b.mu.Lock()
	if b.state != Dragging {
		b.mu.Unlock()
		return nil, ErrNotDragging
	}
	b.state = Idle
	from := b.from
	if to.Column == "" || to == from {
		b.mu.Unlock()
		return nil, nil
	}
	dst, ok := b.cards[to.Column]
	if !ok {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: unknown column %q", ErrOutOfRange, to.Column)
	}

	before := b.normalize(b.cards)
	var touched []string
	if from.Column == to.Column {
		next, err := Move(dst, from.Index, to.Index, b.cfg.SetOrder)
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		b.cards[to.Column] = next
		touched = []string{to.Column}
	} else {
		if to.Index < 0 || to.Index > len(dst) {
			b.mu.Unlock()
			return nil, fmt.Errorf("%w: %s[%d]", ErrOutOfRange, to.Column, to.Index)
		}
		src := b.cards[from.Column]
		card := src[from.Index]
		if b.cfg.SetColumn != nil {
			b.cfg.SetColumn(&card, to.Column)
		}
		nextSrc := make([]T, 0, len(src)-1)
		nextSrc = append(nextSrc, src[:from.Index]...)
		nextSrc = append(nextSrc, src[from.Index+1:]...)
		nextDst := make([]T, 0, len(dst)+1)
		nextDst = append(nextDst, dst[:to.Index]...)
		nextDst = append(nextDst, card)
		nextDst = append(nextDst, dst[to.Index:]...)
		Renumber(nextSrc, b.cfg.SetOrder)
		Renumber(nextDst, b.cfg.SetOrder)
		b.cards[from.Column] = nextSrc
		b.cards[to.Column] = nextDst
		touched = []string{from.Column, to.Column}
	}
	var payload []T
	for _, c := range touched {
		payload = append(payload, b.cards[c]...)
	}
	snap := b.normalize(b.cards)
	b.mu.Unlock()

	b.changed(snap)
	b.log.Debugw("card moved", "from", from.Column, "from_index", from.Index, "to", to.Column, "to_index", to.Index)

	sub := newSubmission()
	go func() {
		err := b.cfg.Persist(ctx, payload)
		if err != nil {
			b.rollback(ctx, before, err)
		}
		sub.finish(err)
	}()
	return sub, nil
}

// MoveCard is Begin followed by Drop.
func (b *Board[T]) MoveCard(ctx context.Context, from, to Location) (*Submission, error) {
	if err := b.Begin(from); err != nil {
		return nil, err
	}
	return b.Drop(ctx, to)
}

func (b *Board[T]) rollback(ctx context.Context, before map[string][]T, cause error) {
	b.log.Warnw("board move not saved, reloading", "error", cause)
	for _, msg := range client.Messages(cause, b.cfg.FailureMessage) {
		b.cfg.Notify.Error(msg)
	}
	canonical := before
	if b.cfg.Reload != nil {
		fresh, err := b.cfg.Reload(ctx)
		if err != nil {
			b.log.Errorw("reload after failed board move", "error", err)
		} else {
			canonical = fresh
		}
	}
	b.Set(canonical)
}

func (b *Board[T]) changed(cards map[string][]T) {
	if b.cfg.OnChange != nil {
		b.cfg.OnChange(cards)
	}
}

package reorder

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kidandcat/portfolio/internal/notify"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type card struct {
	ID     int
	Order  int
	Column string
}

func setOrder(c *card, i int)        { c.Order = i }
func setColumn(c *card, col string) { c.Column = col }

func cards(ids ...int) []card {
	out := make([]card, len(ids))
	for i, id := range ids {
		out[i] = card{ID: id, Order: i}
	}
	return out
}

func idsOf(cs []card) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func ordersOf(cs []card) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.Order
	}
	return out
}

func TestMoveIndexTwoToZero(t *testing.T) {
	in := cards(10, 11, 12, 13, 14)
	out, err := Move(in, 2, 0, setOrder)
	require.NoError(t, err)
	assert.Equal(t, []int{12, 10, 11, 13, 14}, idsOf(out))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ordersOf(out))
	assert.Equal(t, []int{10, 11, 12, 13, 14}, idsOf(in), "input untouched")
}

func TestMovePermutationProperty(t *testing.T) {
	const n = 6
	for from := 0; from < n; from++ {
		for to := 0; to < n; to++ {
			in := cards(1, 2, 3, 4, 5, 6)
			out, err := Move(in, from, to, setOrder)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, ordersOf(out))
			got := idsOf(out)
			sort.Ints(got)
			assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, got)
			assert.Equal(t, in[from].ID, out[to].ID)
		}
	}
}

func TestMoveOutOfRange(t *testing.T) {
	_, err := Move(cards(1, 2), 0, 2, setOrder)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = Move(cards(1, 2), -1, 0, setOrder)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestListNoOpDrops(t *testing.T) {
	var persisted int
	l := NewList(cards(1, 2, 3), ListConfig[card]{
		SetOrder: setOrder,
		Persist: func(context.Context, []card) error {
			persisted++
			return nil
		},
	})
	ctx := context.Background()

	_, err := l.Drop(ctx, 1)
	require.ErrorIs(t, err, ErrNotDragging)

	require.NoError(t, l.Begin(1))
	assert.Equal(t, Dragging, l.State())
	sub, err := l.Drop(ctx, NoDestination)
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.NoError(t, sub.Wait())
	assert.Equal(t, Idle, l.State())

	sub, err = l.MoveItem(ctx, 2, 2)
	require.NoError(t, err)
	assert.Nil(t, sub)

	assert.Zero(t, persisted)
	assert.Equal(t, []int{1, 2, 3}, idsOf(l.Items()))
}

func TestListOptimisticThenPersist(t *testing.T) {
	release := make(chan struct{})
	var sent []card
	var seen [][]int
	var mu sync.Mutex
	l := NewList(cards(10, 11, 12, 13, 14), ListConfig[card]{
		SetOrder: setOrder,
		Persist: func(_ context.Context, items []card) error {
			<-release
			sent = items
			return nil
		},
		OnChange: func(items []card) {
			mu.Lock()
			seen = append(seen, idsOf(items))
			mu.Unlock()
		},
	})

	sub, err := l.MoveItem(context.Background(), 2, 0)
	require.NoError(t, err)
	// Visible before the server answers.
	assert.Equal(t, []int{12, 10, 11, 13, 14}, idsOf(l.Items()))
	close(release)
	require.NoError(t, sub.Wait())

	assert.Equal(t, []int{0, 1, 2, 3, 4}, ordersOf(sent))
	mu.Lock()
	assert.Equal(t, [][]int{{12, 10, 11, 13, 14}}, seen)
	mu.Unlock()
}

func TestListRollbackToServerOrder(t *testing.T) {
	server := cards(1, 2, 3, 4, 5)
	toasts := notify.NewQueue(0)
	boom := errors.New("503")
	l := NewList(server, ListConfig[card]{
		SetOrder: setOrder,
		Persist:  func(context.Context, []card) error { return boom },
		Reload: func(context.Context) ([]card, error) {
			return append([]card(nil), server...), nil
		},
		Notify:         toasts,
		FailureMessage: "Failed to reorder backlog",
	})

	sub, err := l.MoveItem(context.Background(), 4, 0)
	require.NoError(t, err)
	require.ErrorIs(t, sub.Wait(), boom)

	assert.Equal(t, server, l.Items())
	assert.Equal(t, []string{"Failed to reorder backlog"}, toasts.Messages(notify.LevelError))
}

func TestListRollbackWithoutReloadRestoresPreDrag(t *testing.T) {
	l := NewList(cards(1, 2, 3), ListConfig[card]{
		SetOrder: setOrder,
		Persist:  func(context.Context, []card) error { return errors.New("x") },
	})
	sub, err := l.MoveItem(context.Background(), 0, 2)
	require.NoError(t, err)
	require.Error(t, sub.Wait())
	assert.Equal(t, cards(1, 2, 3), l.Items())
}

func TestBoardCrossColumn(t *testing.T) {
	initial := map[string][]card{
		"todo":  {{ID: 1, Column: "todo"}, {ID: 2, Order: 1, Column: "todo"}, {ID: 3, Order: 2, Column: "todo"}},
		"doing": {{ID: 4, Column: "doing"}},
		"done":  nil,
	}
	var persisted []card
	b := NewBoard([]string{"todo", "doing", "done"}, initial, BoardConfig[card]{
		SetOrder:  setOrder,
		SetColumn: setColumn,
		Persist: func(_ context.Context, items []card) error {
			persisted = items
			return nil
		},
	})

	sub, err := b.MoveCard(context.Background(), Location{"todo", 1}, Location{"doing", 0})
	require.NoError(t, err)
	require.NoError(t, sub.Wait())

	todo := b.Cards("todo")
	doing := b.Cards("doing")
	assert.Equal(t, []int{1, 3}, idsOf(todo))
	assert.Equal(t, []int{0, 1}, ordersOf(todo))
	assert.Equal(t, []int{2, 4}, idsOf(doing))
	assert.Equal(t, []int{0, 1}, ordersOf(doing))
	assert.Equal(t, "doing", doing[0].Column)
	assert.Len(t, persisted, 4)

	// Append at the end of an empty column.
	sub, err = b.MoveCard(context.Background(), Location{"doing", 1}, Location{"done", 0})
	require.NoError(t, err)
	require.NoError(t, sub.Wait())
	assert.Equal(t, []int{4}, idsOf(b.Cards("done")))

	total := 0
	for _, col := range b.Snapshot() {
		total += len(col)
	}
	assert.Equal(t, 4, total)
}

func TestBoardEphemeralAndRollback(t *testing.T) {
	initial := map[string][]card{"a": cards(1, 2), "b": cards(3)}
	eph := NewBoard([]string{"a", "b"}, initial, BoardConfig[card]{SetOrder: setOrder})
	sub, err := eph.MoveCard(context.Background(), Location{"a", 0}, Location{"a", 1})
	require.NoError(t, err)
	require.NoError(t, sub.Wait())
	assert.Equal(t, []int{2, 1}, idsOf(eph.Cards("a")))

	toasts := notify.NewQueue(0)
	failing := NewBoard([]string{"a", "b"}, initial, BoardConfig[card]{
		SetOrder: setOrder,
		Persist:  func(context.Context, []card) error { return errors.New("down") },
		Notify:   toasts,
	})
	sub, err = failing.MoveCard(context.Background(), Location{"a", 0}, Location{"b", 1})
	require.NoError(t, err)
	require.Error(t, sub.Wait())
	assert.Equal(t, []int{1, 2}, idsOf(failing.Cards("a")))
	assert.Equal(t, []int{3}, idsOf(failing.Cards("b")))
	assert.Len(t, toasts.Messages(notify.LevelError), 1)

	_, err = failing.MoveCard(context.Background(), Location{"a", 0}, Location{"zzz", 0})
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = failing.MoveCard(context.Background(), Location{"a", 5}, Location{"b", 0})
	require.ErrorIs(t, err, ErrOutOfRange)
}

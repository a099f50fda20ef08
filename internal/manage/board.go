package manage

import (
	"context"

	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/query"
	"github.com/kidandcat/portfolio/internal/reorder"
)

// BoardColumns are the kanban columns, left to right.
func BoardColumns() []string {
	out := make([]string, len(model.ItemStatuses))
	for i, s := range model.ItemStatuses {
		out[i] = string(s)
	}
	return out
}

// GroupItems projects stories onto board columns. Within a column cards keep
// the backlog order and are renumbered from zero.
func GroupItems(stories []model.UserStory) map[string][]model.BacklogItem {
	cols := make(map[string][]model.BacklogItem, len(model.ItemStatuses))
	for _, st := range stories {
		it := model.ItemFromStory(st)
		cols[string(it.Status)] = append(cols[string(it.Status)], it)
	}
	for c := range cols {
		reorder.Renumber(cols[c], setItemOrder)
	}
	return cols
}

func setItemOrder(it *model.BacklogItem, i int) { it.Order = i }

// persistBoard saves a board move: cards that changed column get their new
// status, then the backlog order is rewritten with the move merged into the
// order the server has now.
func (u *UserStories) persistBoard(ctx context.Context, scope StoryScope, touched []model.BacklogItem) error {
	api := u.d.API
	// Read past the cache: it can predate a reorder saved from the list view.
	current, err := api.UserStories(ctx, scope.ProjectID, scope.BacklogID)
	if err != nil {
		return err
	}
	byID := make(map[int64]model.UserStory, len(current))
	for _, st := range current {
		byID[st.ID] = st
	}
	for _, it := range touched {
		st, ok := byID[it.ID]
		if !ok || model.ItemStatusFromStory(st.Status) == it.Status {
			continue
		}
		in := storyInput(st)
		in.Status = model.StoryStatus(it.Status)
		if _, err := api.UpdateUserStory(ctx, st.ID, in); err != nil {
			return err
		}
	}

	if err := api.ReorderBacklog(ctx, scope.BacklogID, boardOrder(current, touched)); err != nil {
		return err
	}
	u.invalidate(scope)
	return nil
}

// boardOrder merges the cards of the columns touched by one move into the
// server's order. A card that changed column is placed behind the nearest
// card that precedes it on the board; a column reordered in place takes the
// board's order. Other cards keep their server positions, and columns read
// left to right.
func boardOrder(current []model.UserStory, touched []model.BacklogItem) []model.OrderEntry {
	status := make(map[int64]model.ItemStatus, len(current))
	cols := make(map[string][]int64)
	for _, st := range current {
		s := model.ItemStatusFromStory(st.Status)
		status[st.ID] = s
		cols[string(s)] = append(cols[string(s)], st.ID)
	}

	onBoard := make(map[string][]int64)
	var crossed []model.BacklogItem
	for _, it := range touched {
		s, ok := status[it.ID]
		if !ok {
			continue
		}
		onBoard[string(it.Status)] = append(onBoard[string(it.Status)], it.ID)
		if s != it.Status {
			crossed = append(crossed, it)
		}
	}

	if len(crossed) == 0 {
		for col, ids := range onBoard {
			cols[col] = mergeColumn(ids, cols[col])
		}
	}
	for _, it := range crossed {
		from, to := string(status[it.ID]), string(it.Status)
		cols[from] = without(cols[from], it.ID)
		cols[to] = insertBehind(without(cols[to], it.ID), it.ID, onBoard[to])
	}

	var order []model.OrderEntry
	for _, col := range BoardColumns() {
		for _, id := range cols[col] {
			order = append(order, model.OrderEntry{ID: id, Order: len(order)})
		}
	}
	return order
}

// mergeColumn orders server ids as on the board; ids the board has not seen
// go last.
func mergeColumn(board, server []int64) []int64 {
	known := make(map[int64]bool, len(server))
	for _, id := range server {
		known[id] = true
	}
	out := make([]int64, 0, len(server))
	seen := make(map[int64]bool, len(server))
	for _, id := range board {
		if known[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	for _, id := range server {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

func without(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// insertBehind puts id after the closest card preceding it in board that
// is also in col, or first when there is none.
func insertBehind(col []int64, id int64, board []int64) []int64 {
	at := 0
	pos := -1
	for i, v := range board {
		if v == id {
			pos = i
			break
		}
	}
	for i := pos - 1; i >= 0; i-- {
		if j := indexOf(col, board[i]); j >= 0 {
			at = j + 1
			break
		}
	}
	out := make([]int64, 0, len(col)+1)
	out = append(out, col[:at]...)
	out = append(out, id)
	return append(out, col[at:]...)
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Board loads the backlog as a kanban board. Moving a card between columns
// changes the story status; every move rewrites the backlog order.
func (u *UserStories) Board(ctx context.Context, scope StoryScope, onChange func(map[string][]model.BacklogItem)) (*reorder.Board[model.BacklogItem], error) {
	q := u.List(scope)
	stories, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	return reorder.NewBoard(BoardColumns(), GroupItems(stories), reorder.BoardConfig[model.BacklogItem]{
		SetOrder:  setItemOrder,
		SetColumn: func(it *model.BacklogItem, col string) { it.Status = model.ItemStatus(col) },
		Persist: func(ctx context.Context, touched []model.BacklogItem) error {
			return u.persistBoard(ctx, scope, touched)
		},
		Reload: func(ctx context.Context) (map[string][]model.BacklogItem, error) {
			u.invalidate(scope)
			fresh, err := q.Get(ctx)
			if err != nil {
				return nil, err
			}
			return GroupItems(fresh), nil
		},
		Notify:         u.d.Notify,
		FailureMessage: "Failed to update the board",
		OnChange:       onChange,
		Log:            u.d.Log,
	}), nil
}

// Sync keeps list and board (either may be nil) on the server's state: each
// time the backlog's stories are invalidated they are refetched and both
// views replaced. The returned func stops it.
func (u *UserStories) Sync(ctx context.Context, scope StoryScope, list *reorder.List[model.UserStory], board *reorder.Board[model.BacklogItem]) (stop func()) {
	key := UserStoriesKey(scope.BacklogID).String()
	q := u.List(scope)
	return u.d.Cache.Subscribe(func(k query.Key) {
		if k.String() != key {
			return
		}
		fresh, err := q.Get(ctx)
		if err != nil {
			u.d.Log.Warnw("resync backlog views", "backlog", scope.BacklogID, "error", err)
			return
		}
		if list != nil {
			list.Set(fresh)
		}
		if board != nil {
			board.Set(GroupItems(fresh))
		}
	})
}

func storyInput(st model.UserStory) model.UserStoryInput {
	return model.UserStoryInput{
		Title:              st.Title,
		Description:        st.Description,
		AcceptanceCriteria: st.AcceptanceCriteria,
		Status:             st.Status,
		Priority:           st.Priority,
		Points:             st.Points,
	}
}

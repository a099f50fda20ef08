package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kidandcat/portfolio/internal/filter"
	"github.com/kidandcat/portfolio/internal/manage"
	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/reorder"
)

var storiesTable = table[model.UserStory]{
	header: []string{"ORDER", "ID", "TITLE", "STATUS", "PRIORITY", "POINTS", "COMMENTS"},
	row: func(s model.UserStory) []string {
		return []string{
			strconv.Itoa(s.Order),
			strconv.FormatInt(s.ID, 10),
			s.Title,
			s.Status,
			s.Priority,
			strconv.Itoa(s.Points),
			strconv.Itoa(s.CommentCount),
		}
	},
}

// boardCard is a board item together with the column it sits in.
type boardCard struct {
	Column string `json:"column"`
	model.BacklogItem
}

var boardTable = table[boardCard]{
	header: []string{"COLUMN", "POS", "ID", "TITLE", "PRIORITY", "EFFORT"},
	row: func(c boardCard) []string {
		return []string{
			c.Column,
			strconv.Itoa(c.Order),
			strconv.FormatInt(c.ID, 10),
			c.Title,
			string(c.Priority),
			strconv.Itoa(c.Effort),
		}
	},
}

func (c *cli) storiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stories",
		Aliases: []string{"story"},
		Short:   "Manage the user stories of a backlog",
		Long: `Every subcommand is scoped to one backlog with --project and --backlog.

move changes a story's position in the backlog; status moves its card to
another board column, which also places it last in that column.`,
	}
	var scope manage.StoryScope
	f := cmd.PersistentFlags()
	f.Int64Var(&scope.ProjectID, "project", 0, "project id")
	f.Int64Var(&scope.BacklogID, "backlog", 0, "backlog id")
	_ = cmd.MarkPersistentFlagRequired("project")
	_ = cmd.MarkPersistentFlagRequired("backlog")

	cmd.AddCommand(
		c.storiesListCmd(&scope),
		c.storiesCreateCmd(&scope),
		c.storiesUpdateCmd(&scope),
		c.storiesDeleteCmd(&scope),
		c.storiesMoveCmd(&scope),
		c.storiesBoardCmd(&scope),
		c.storiesStatusCmd(&scope),
	)
	return cmd
}

func (c *cli) storiesListCmd(scope *manage.StoryScope) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stories in backlog order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			ss, err := cn.stories.List(*scope).Get(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), c.output, ss, storiesTable)
		},
	}
}

type storyFlags struct {
	in model.UserStoryInput
}

func (f *storyFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.in.Title, "title", "", "story title")
	cmd.Flags().StringVar(&f.in.Description, "description", "", "description")
	cmd.Flags().StringVar(&f.in.AcceptanceCriteria, "criteria", "", "acceptance criteria")
	cmd.Flags().StringVar(&f.in.Status, "status", "", "status (default Pending)")
	cmd.Flags().StringVar(&f.in.Priority, "priority", "", "priority (default Medium)")
	cmd.Flags().IntVar(&f.in.Points, "points", 0, "story points")
}

func (c *cli) storiesCreateCmd(scope *manage.StoryScope) *cobra.Command {
	var f storyFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a story at the end of the backlog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			s, err := cn.stories.CreateUserStory(cmd.Context(), *scope, f.in)
			if err != nil {
				return err
			}
			return renderOne(cmd.OutOrStdout(), c.output, s, storiesTable)
		},
	}
	f.bind(cmd)
	return cmd
}

func (c *cli) storiesUpdateCmd(scope *manage.StoryScope) *cobra.Command {
	var f storyFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a story; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			ss, err := cn.stories.List(*scope).Get(cmd.Context())
			if err != nil {
				return err
			}
			idx := storyIndex(ss, id)
			if idx < 0 {
				return fmt.Errorf("story %d is not in backlog %d", id, scope.BacklogID)
			}
			cur := ss[idx]
			in := model.UserStoryInput{
				Title:              pick(f.in.Title, cur.Title),
				Description:        pick(f.in.Description, cur.Description),
				AcceptanceCriteria: pick(f.in.AcceptanceCriteria, cur.AcceptanceCriteria),
				Status:             pick(f.in.Status, cur.Status),
				Priority:           pick(f.in.Priority, cur.Priority),
				Points:             cur.Points,
			}
			if cmd.Flags().Changed("points") {
				in.Points = f.in.Points
			}
			s, err := cn.stories.UpdateUserStory(cmd.Context(), *scope, id, in)
			if err != nil {
				return err
			}
			return renderOne(cmd.OutOrStdout(), c.output, s, storiesTable)
		},
	}
	f.bind(cmd)
	return cmd
}

func (c *cli) storiesDeleteCmd(scope *manage.StoryScope) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			if err := cn.stories.DeleteUserStory(cmd.Context(), *scope, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted story %d\n", id)
			return nil
		},
	}
}

func (c *cli) storiesMoveCmd(scope *manage.StoryScope) *cobra.Command {
	var to int
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a story to a zero-based position in the backlog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			if !cn.role().CanManageBacklog() {
				return fmt.Errorf("role %s cannot reorder backlogs", cn.role().Label())
			}

			var final []model.UserStory
			list, err := cn.stories.Reorderable(cmd.Context(), *scope, func(ss []model.UserStory) { final = ss })
			if err != nil {
				return err
			}
			from := storyIndex(list.Items(), id)
			if from < 0 {
				return fmt.Errorf("story %d is not in backlog %d", id, scope.BacklogID)
			}
			sub, err := list.MoveItem(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if sub != nil {
				if err := sub.Wait(); err != nil {
					return err
				}
			}
			if final == nil {
				final = list.Items()
			}
			return render(cmd.OutOrStdout(), c.output, final, storiesTable)
		},
	}
	cmd.Flags().IntVar(&to, "to", 0, "destination position")
	return cmd
}

func (c *cli) storiesBoardCmd(scope *manage.StoryScope) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the backlog as kanban columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			ss, err := cn.stories.List(*scope).Get(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), c.output, boardCards(manage.GroupItems(ss), search), boardTable)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match title or description")
	return cmd
}

func (c *cli) storiesStatusCmd(scope *manage.StoryScope) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <column>",
		Short: "Move a story's card to another board column",
		Long:  "Columns: " + strings.Join(manage.BoardColumns(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			column := model.ItemStatusFromStory(args[1])
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()

			var final map[string][]model.BacklogItem
			board, err := cn.stories.Board(cmd.Context(), *scope, func(cols map[string][]model.BacklogItem) { final = cols })
			if err != nil {
				return err
			}
			from, ok := locate(board, id)
			if !ok {
				return fmt.Errorf("story %d is not in backlog %d", id, scope.BacklogID)
			}
			to := reorder.Location{Column: string(column), Index: len(board.Cards(string(column)))}
			if from.Column == to.Column {
				to.Index--
			}
			sub, err := board.MoveCard(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if sub != nil {
				if err := sub.Wait(); err != nil {
					return err
				}
			}
			if final == nil {
				final = board.Snapshot()
			}
			return render(cmd.OutOrStdout(), c.output, boardCards(final, ""), boardTable)
		},
	}
}

func boardCards(cols map[string][]model.BacklogItem, search string) []boardCard {
	var out []boardCard
	for _, col := range manage.BoardColumns() {
		for _, it := range filter.Items(cols[col], search, filter.All) {
			out = append(out, boardCard{Column: col, BacklogItem: it})
		}
	}
	return out
}

func locate(b *reorder.Board[model.BacklogItem], id int64) (reorder.Location, bool) {
	for _, col := range b.Columns() {
		for i, it := range b.Cards(col) {
			if it.ID == id {
				return reorder.Location{Column: col, Index: i}, true
			}
		}
	}
	return reorder.Location{}, false
}

func storyIndex(ss []model.UserStory, id int64) int {
	for i, s := range ss {
		if s.ID == id {
			return i
		}
	}
	return -1
}

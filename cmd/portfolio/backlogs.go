package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kidandcat/portfolio/internal/manage"
	"github.com/kidandcat/portfolio/internal/model"
)

var backlogsTable = table[model.Backlog]{
	header: []string{"ID", "PROJECT", "TITLE", "PRIORITY", "STATUS", "HOURS", "STORIES"},
	row: func(b model.Backlog) []string {
		hours := "-"
		if b.EstimatedHours != nil {
			hours = strconv.FormatFloat(*b.EstimatedHours, 'f', -1, 64)
		}
		return []string{
			strconv.FormatInt(b.ID, 10),
			strconv.FormatInt(b.ProjectID, 10),
			b.Title,
			orDash(b.Priority),
			orDash(b.Status),
			hours,
			strconv.Itoa(len(b.UserStories)),
		}
	},
}

func (c *cli) backlogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "backlogs",
		Aliases: []string{"backlog"},
		Short:   "Manage a project's backlogs",
	}
	cmd.AddCommand(
		c.backlogsListCmd(),
		c.backlogsShowCmd(),
		c.backlogsCreateCmd(),
		c.backlogsUpdateCmd(),
		c.backlogsDeleteCmd(),
	)
	return cmd
}

func (c *cli) backlogsListCmd() *cobra.Command {
	var projectID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the backlogs of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			bs, err := cn.backlogs.ByProject(projectID).Get(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), c.output, bs, backlogsTable)
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func (c *cli) backlogsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one backlog",
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
			b, err := cn.backlogs.Get(id).Get(cmd.Context())
			if err != nil {
				return err
			}
			return renderOne(cmd.OutOrStdout(), c.output, b, backlogsTable)
		},
	}
}

type backlogFlags struct {
	in    model.BacklogInput
	hours float64
}

func (f *backlogFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.in.Title, "title", "", "backlog title")
	cmd.Flags().StringVar(&f.in.Description, "description", "", "description")
	cmd.Flags().StringVar(&f.in.Priority, "priority", "", "priority")
	cmd.Flags().StringVar(&f.in.Status, "status", "", "status")
	cmd.Flags().Float64Var(&f.hours, "hours", 0, "estimated hours")
}

func (f *backlogFlags) input(cmd *cobra.Command) model.BacklogInput {
	in := f.in
	if cmd.Flags().Changed("hours") {
		h := f.hours
		in.EstimatedHours = &h
	}
	return in
}

func (c *cli) backlogsCreateCmd() *cobra.Command {
	var f backlogFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a backlog in a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			b, err := cn.backlogs.CreateBacklog(cmd.Context(), f.input(cmd))
			if err != nil {
				return err
			}
			return renderOne(cmd.OutOrStdout(), c.output, b, backlogsTable)
		},
	}
	f.bind(cmd)
	cmd.Flags().Int64Var(&f.in.ProjectID, "project", 0, "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func (c *cli) backlogsUpdateCmd() *cobra.Command {
	var f backlogFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a backlog; unset flags keep their value",
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
			cur, err := cn.backlogs.Get(id).Get(cmd.Context())
			if err != nil {
				return err
			}
			next := f.input(cmd)
			in := model.BacklogInput{
				Title:          pick(next.Title, cur.Title),
				Description:    pick(next.Description, cur.Description),
				Priority:       pick(next.Priority, cur.Priority),
				Status:         pick(next.Status, cur.Status),
				ProjectID:      cur.ProjectID,
				EstimatedHours: cur.EstimatedHours,
			}
			if next.EstimatedHours != nil {
				in.EstimatedHours = next.EstimatedHours
			}
			b, err := cn.backlogs.UpdateBacklog(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return renderOne(cmd.OutOrStdout(), c.output, b, backlogsTable)
		},
	}
	f.bind(cmd)
	return cmd
}

func (c *cli) backlogsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a backlog and its stories",
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
				return fmt.Errorf("role %s cannot delete backlogs", cn.role().Label())
			}
			b, err := cn.backlogs.Get(id).Get(cmd.Context())
			if err != nil {
				return err
			}
			if err := cn.backlogs.DeleteBacklog(cmd.Context(), manage.BacklogRef{ID: b.ID, ProjectID: b.ProjectID}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted backlog %d\n", id)
			return nil
		},
	}
}

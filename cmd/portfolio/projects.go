package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kidandcat/portfolio/internal/filter"
	"github.com/kidandcat/portfolio/internal/model"
)

var projectsTable = table[model.Project]{
	header: []string{"ID", "NAME", "STATUS", "PRIORITY", "PROGRESS", "MEMBERS", "END"},
	row: func(p model.Project) []string {
		names := make([]string, len(p.Members))
		for i, m := range p.Members {
			names[i] = m.FullName()
		}
		end := "-"
		if p.EndDate != nil {
			end = *p.EndDate
		}
		return []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.Status,
			orDash(p.Priority),
			strconv.Itoa(p.Progress) + "%",
			orDash(strings.Join(names, ", ")),
			end,
		}
	},
}

func (c *cli) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List, show and create projects",
	}
	cmd.AddCommand(c.projectsListCmd(), c.projectsShowCmd(), c.projectsCreateCmd())
	return cmd
}

func (c *cli) projectsListCmd() *cobra.Command {
	var search, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			ps, err := cn.projects.List().Get(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), c.output, filter.Projects(ps, search, status), projectsTable)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match name or description")
	cmd.Flags().StringVar(&status, "status", filter.All, "project status or all")
	return cmd
}

func (c *cli) projectsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one project",
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
			p, err := cn.projects.Get(id).Get(cmd.Context())
			if err != nil {
				return err
			}
			return renderOne(cmd.OutOrStdout(), c.output, p, projectsTable)
		},
	}
}

func (c *cli) projectsCreateCmd() *cobra.Command {
	var (
		in      model.ProjectInput
		endDate string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			if endDate != "" {
				in.EndDate = &endDate
			}
			p, err := cn.projects.CreateProject(cmd.Context(), in)
			if err != nil {
				return err
			}
			return renderOne(cmd.OutOrStdout(), c.output, p, projectsTable)
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "project name")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&in.Status, "status", model.StatusPlanning, "one of: "+strings.Join(model.ProjectStatuses, ", "))
	cmd.Flags().StringVar(&in.Priority, "priority", "Medium", "priority")
	cmd.Flags().IntVar(&in.Progress, "progress", 0, "progress percentage")
	cmd.Flags().Int64SliceVar(&in.MemberIDs, "member", nil, "member user id (repeatable)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "end date, YYYY-MM-DD")
	return cmd
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kidandcat/portfolio/internal/filter"
	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/roles"
)

func (c *cli) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
		Long: `List, create, update, activate, deactivate and delete accounts.

Every subcommand except list and roles needs an Admin or Super Admin session.`,
	}
	cmd.AddCommand(
		c.usersListCmd(),
		c.usersRolesCmd(),
		c.usersCreateCmd(),
		c.usersUpdateCmd(),
		c.usersActiveCmd("activate", true),
		c.usersActiveCmd("deactivate", false),
		c.usersDeleteCmd(),
	)
	return cmd
}

func usersTable(rolesByID map[int64]string) table[model.User] {
	return table[model.User]{
		header: []string{"ID", "NAME", "EMAIL", "ROLE", "ACTIVE", "CREATED"},
		row: func(u model.User) []string {
			role := "-"
			if u.RoleID != nil {
				role = orDash(rolesByID[*u.RoleID])
			}
			return []string{strconv.FormatInt(u.ID, 10), u.FullName(), u.Email, role, yesNo(u.IsActive), ago(u.CreatedAt)}
		},
	}
}

func roleNames(rs []model.Role) map[int64]string {
	out := make(map[int64]string, len(rs))
	for _, r := range rs {
		out[r.ID] = r.Name
	}
	return out
}

func (c *cli) usersListCmd() *cobra.Command {
	var search, role, state string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()

			dir, err := cn.users.LoadDirectory(cmd.Context())
			if err != nil {
				return err
			}
			if role != filter.All && role != filter.Unassigned {
				id, err := resolveRole(dir.Roles, role)
				if err != nil {
					return err
				}
				role = strconv.FormatInt(*id, 10)
			}
			users := filter.UsersByState(filter.Users(dir.Users, search, role), state)
			return render(cmd.OutOrStdout(), c.output, users, usersTable(roleNames(dir.Roles)))
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match name or email")
	cmd.Flags().StringVar(&role, "role", filter.All, "role name or id, all or unassigned")
	cmd.Flags().StringVar(&state, "state", filter.All, "active, inactive or all")
	return cmd
}

func (c *cli) usersRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List assignable roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			rs, err := cn.users.Roles().Get(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), c.output, rs, table[model.Role]{
				header: []string{"ID", "NAME"},
				row:    func(r model.Role) []string { return []string{strconv.FormatInt(r.ID, 10), r.Name} },
			})
		},
	}
}

type userFlags struct {
	first, last, email, password, role string
}

func (f *userFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.first, "first", "", "first name")
	cmd.Flags().StringVar(&f.last, "last", "", "last name")
	cmd.Flags().StringVar(&f.email, "email", "", "email")
	cmd.Flags().StringVar(&f.password, "password", "", "password")
	cmd.Flags().StringVar(&f.role, "role", "", "role name or id")
}

func (c *cli) usersCreateCmd() *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			if err := canManageUsers(cn.role()); err != nil {
				return err
			}

			in := model.UserInput{FirstName: f.first, LastName: f.last, Email: f.email, Password: f.password}
			if f.role != "" {
				rs, err := cn.users.Roles().Get(cmd.Context())
				if err != nil {
					return err
				}
				if in.RoleID, err = resolveRole(rs, f.role); err != nil {
					return err
				}
			}
			u, err := cn.users.CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			return renderOne(cmd.OutOrStdout(), c.output, u, usersTable(nil))
		},
	}
	f.bind(cmd)
	return cmd
}

func (c *cli) usersUpdateCmd() *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an account; unset flags keep their value",
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
			if err := canManageUsers(cn.role()); err != nil {
				return err
			}

			dir, err := cn.users.LoadDirectory(cmd.Context())
			if err != nil {
				return err
			}
			cur, ok := findUser(dir.Users, id)
			if !ok {
				return fmt.Errorf("user %d not found", id)
			}
			in := model.UserInput{
				FirstName: pick(f.first, cur.FirstName),
				LastName:  pick(f.last, cur.LastName),
				Email:     pick(f.email, cur.Email),
				Password:  f.password,
				RoleID:    cur.RoleID,
			}
			if f.role != "" {
				if in.RoleID, err = resolveRole(dir.Roles, f.role); err != nil {
					return err
				}
			}
			u, err := cn.users.UpdateUser(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return renderOne(cmd.OutOrStdout(), c.output, u, usersTable(roleNames(dir.Roles)))
		},
	}
	f.bind(cmd)
	return cmd
}

func (c *cli) usersActiveCmd(name string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id>",
		Short: strings.ToUpper(name[:1]) + name[1:] + " an account",
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
			if err := canManageUsers(cn.role()); err != nil {
				return err
			}
			u, err := cn.users.SetActive(cmd.Context(), id, active)
			if err != nil {
				return err
			}
			return renderOne(cmd.OutOrStdout(), c.output, u, usersTable(nil))
		},
	}
}

func (c *cli) usersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account",
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
			if err := canManageUsers(cn.role()); err != nil {
				return err
			}
			if err := cn.users.DeleteUser(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %d\n", id)
			return nil
		},
	}
}

func canManageUsers(r roles.Role) error {
	if !r.CanManageUsers() {
		return fmt.Errorf("role %s cannot manage users", r.Label())
	}
	return nil
}

// resolveRole accepts a role id or any spelling roles.Parse understands.
func resolveRole(rs []model.Role, s string) (*int64, error) {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		for _, r := range rs {
			if r.ID == id {
				return &id, nil
			}
		}
		return nil, fmt.Errorf("no role with id %d", id)
	}
	want, err := roles.Parse(s)
	if err != nil {
		return nil, err
	}
	for _, r := range rs {
		if got, err := roles.Parse(r.Name); err == nil && got == want {
			id := r.ID
			return &id, nil
		}
	}
	return nil, fmt.Errorf("role %s is not defined on the server", want.Label())
}

func findUser(us []model.User, id int64) (model.User, bool) {
	for _, u := range us {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func pick(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/validate"
)

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validate.Required(email, password) {
				return fmt.Errorf("%s: --email and --password", validate.MsgRequired)
			}
			if !validate.Email(email) {
				return errors.New(validate.MsgInvalidEmail)
			}
			cn, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()

			role, err := cn.sess.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			u, _ := cn.sess.User()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s), home %s\n", u.FullName(), role.Label(), role.Home())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the token and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cn, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			if err := cn.sess.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

type whoami struct {
	User model.User `json:"user"`
	Role string     `json:"role"`
	Home string     `json:"home"`
}

var whoamiTable = table[whoami]{
	header: []string{"ID", "NAME", "EMAIL", "ROLE", "HOME"},
	row: func(w whoami) []string {
		return []string{fmt.Sprint(w.User.ID), w.User.FullName(), w.User.Email, w.Role, w.Home}
	},
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cn, err := c.authed(cmd.Context())
			if err != nil {
				return err
			}
			defer cn.Close()
			u, _ := cn.sess.User()
			w := whoami{User: u, Role: cn.role().Label(), Home: cn.sess.Home()}
			return renderOne(cmd.OutOrStdout(), c.output, w, whoamiTable)
		},
	}
}

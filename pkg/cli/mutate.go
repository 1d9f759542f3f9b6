package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/permgate/pkg/rbac"
)

func newGrantCommand(opts *rootOptions) *cobra.Command {
	var operator string

	cmd := &cobra.Command{
		Use:   "grant <role> <permission> <true|false>",
		Short: "Set a permission on a role",
		Args:  cobra.ExactArgs(3),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			value, err := parseBool(args[2])
			if err != nil {
				return err
			}
			if err := a.perms.Grant(cmd.Context(), args[0], args[1], value, operator); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Permission '%s' for role '%s' set to %t\n", args[1], args[0], value)
			return nil
		}),
	}
	cmd.Flags().StringVar(&operator, "operator", "", "Identity recorded in the audit log")
	cmd.MarkFlagRequired("operator")

	return cmd
}

func newAddUserCommand(opts *rootOptions) *cobra.Command {
	var operator string

	cmd := &cobra.Command{
		Use:   "adduser <user> <role> <client_id|none> <true|false>",
		Short: "Add or replace a user",
		Args:  cobra.ExactArgs(4),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			active, err := parseBool(args[3])
			if err != nil {
				return err
			}
			if err := a.users.AddUser(cmd.Context(), args[0], args[1], parseClientID(args[2]), active, operator); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User '%s' added with role '%s'\n", args[0], args[1])
			return nil
		}),
	}
	cmd.Flags().StringVar(&operator, "operator", "", "Identity recorded in the audit log")
	cmd.MarkFlagRequired("operator")

	return cmd
}

func newToggleCommand(opts *rootOptions) *cobra.Command {
	var operator string

	cmd := &cobra.Command{
		Use:   "toggle <user> <true|false>",
		Short: "Activate or deactivate a user",
		Args:  cobra.ExactArgs(2),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			active, err := parseBool(args[1])
			if err != nil {
				return err
			}
			if _, ok := a.users.User(args[0]); !ok {
				return fmt.Errorf("%w: %s", rbac.ErrNotFound, args[0])
			}
			if err := a.users.ToggleActive(cmd.Context(), args[0], active, operator); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User '%s' active=%t\n", args[0], active)
			return nil
		}),
	}
	cmd.Flags().StringVar(&operator, "operator", "", "Identity recorded in the audit log")
	cmd.MarkFlagRequired("operator")

	return cmd
}

func parseBool(s string) (bool, error) {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: expected true or false, got %q", rbac.ErrInvalidInput, s)
	}
	return v, nil
}

// parseClientID maps the placeholders for "no client" to nil
func parseClientID(s string) *string {
	switch strings.ToLower(s) {
	case "", "-", "none", "null":
		return nil
	}
	return rbac.StringPtr(s)
}

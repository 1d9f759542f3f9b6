package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/permgate/pkg/rbac"
)

func newListUsersCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "listusers",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			printUsers(cmd.OutOrStdout(), a.users.Users())
			return nil
		}),
	}
}

func newListPermsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "listperms <role>",
		Short: "List the permissions set on a role",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			perms, ok := a.perms.Role(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", rbac.ErrInvalidRole, args[0])
			}
			printPermissions(cmd.OutOrStdout(), args[0], perms)
			return nil
		}),
	}
}

func newKeysCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List every permission key mentioned by any role",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			for _, key := range a.perms.AllPermissionKeys() {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		}),
	}
}

func printUsers(w io.Writer, reg rbac.Registry) {
	fmt.Fprintln(w, "Users:")
	for _, id := range reg.IDs() {
		u := reg[id]
		client := "none"
		if u.ClientID != nil {
			client = *u.ClientID
		}
		fmt.Fprintf(w, "  - %s -> %s (%s) active=%t\n", id, u.Role, client, u.Active)
	}
}

func printPermissions(w io.Writer, role string, perms rbac.Permissions) {
	fmt.Fprintf(w, "Permissions for role '%s':\n", role)
	for _, key := range perms.Keys() {
		fmt.Fprintf(w, "  - %s = %t\n", key, perms[key])
	}
}

func newMatrixCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "matrix",
		Short: "Resolve every user and show each permission key as allowed or denied",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			out := cmd.OutOrStdout()
			keys := a.perms.AllPermissionKeys()
			for _, id := range a.users.UserIDs() {
				fmt.Fprintf(out, "User: %s\n", id)
				uc, err := a.resolver.Resolve(cmd.Context(), id)
				if err != nil {
					fmt.Fprintf(out, "  [error] %v\n", err)
					continue
				}
				for _, key := range keys {
					mark := "-"
					if uc.HasPermission(key) {
						mark = "+"
					}
					fmt.Fprintf(out, "  %s %s\n", mark, key)
				}
			}
			return nil
		}),
	}
}

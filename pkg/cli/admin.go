package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/permgate/pkg/admin"
	"github.com/platinummonkey/permgate/pkg/audit"
)

const adminHelp = `Commands:
  grant <role> <permission> <true|false>
  adduser <user_id> <role> <client_id|none> <true|false>
  setactive <user_id> <true|false>
  listusers
  listperms <role>
  reload
  viewlog [count]`

var errUnknownAdminCommand = errors.New("unknown command, type 'help' for available commands")

func newAdminCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "admin <user> <command> [args...]",
		Short: "Run an admin command as user",
		Long: "Resolves <user> and requires the admin.manage_users permission. " +
			"Every change is recorded in the audit log with <user> as operator.\n\n" + adminHelp,
		Args: cobra.MinimumNArgs(2),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			uc, err := a.resolver.Resolve(ctx, args[0])
			if err != nil {
				return err
			}

			console, err := admin.Open(uc, a.perms, a.users, a.reloader, admin.WithAuditReader(a.auditLog))
			if err != nil {
				return err
			}
			return execAdmin(ctx, console, args[1:], cmd.OutOrStdout())
		}),
	}
}

func execAdmin(ctx context.Context, c *admin.Console, fields []string, out io.Writer) error {
	switch fields[0] {
	case "help":
		fmt.Fprintln(out, adminHelp)

	case "grant":
		if len(fields) != 4 {
			return fmt.Errorf("usage: grant <role> <permission> <true|false>")
		}
		value, err := parseBool(fields[3])
		if err != nil {
			return err
		}
		if err := c.Grant(ctx, fields[1], fields[2], value); err != nil {
			return err
		}
		fmt.Fprintf(out, "Permission '%s' for role '%s' set to %t\n", fields[2], fields[1], value)

	case "adduser":
		if len(fields) != 5 {
			return fmt.Errorf("usage: adduser <user_id> <role> <client_id|none> <true|false>")
		}
		active, err := parseBool(fields[4])
		if err != nil {
			return err
		}
		if err := c.AddUser(ctx, fields[1], fields[2], parseClientID(fields[3]), active); err != nil {
			return err
		}
		fmt.Fprintf(out, "User '%s' added with role '%s'\n", fields[1], fields[2])

	case "setactive":
		if len(fields) != 3 {
			return fmt.Errorf("usage: setactive <user_id> <true|false>")
		}
		active, err := parseBool(fields[2])
		if err != nil {
			return err
		}
		if err := c.SetActive(ctx, fields[1], active); err != nil {
			return err
		}
		fmt.Fprintf(out, "User '%s' active=%t\n", fields[1], active)

	case "listusers":
		printUsers(out, c.ListUsers())

	case "listperms":
		if len(fields) != 2 {
			return fmt.Errorf("usage: listperms <role>")
		}
		perms, _ := c.ListPermissions(fields[1])
		printPermissions(out, fields[1], perms)

	case "reload":
		if err := c.Reload(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Reloaded permission matrix and user registry.")

	case "viewlog":
		count := 20
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("usage: viewlog [count]")
			}
			count = n
		}
		records, err := c.AuditTrail(count)
		if err != nil {
			return err
		}
		printAuditTrail(out, records)

	default:
		return fmt.Errorf("%w: %s", errUnknownAdminCommand, fields[0])
	}
	return nil
}

func printAuditTrail(w io.Writer, records []*audit.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No audit records.")
		return
	}
	for _, rec := range records {
		fmt.Fprintln(w, rec.Format())
	}
}

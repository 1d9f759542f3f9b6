package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/permgate/pkg/rbac"
)

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <user> <permission>",
		Short: "Report whether a user is allowed a permission",
		Args:  cobra.ExactArgs(2),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			uc, err := a.resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), verdict(uc.HasPermission(args[1])))
			return nil
		}),
	}
}

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "whoami <user>",
		Short: "Resolve a user and print its context",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			out := cmd.OutOrStdout()
			if verbose {
				_, err := a.narratingResolver(rbac.NewNarratingObserver(out)).Resolve(cmd.Context(), args[0])
				return err
			}

			uc, err := a.resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, uc)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Narrate each resolution step")

	return cmd
}

func verdict(allowed bool) string {
	if allowed {
		return "ALLOWED"
	}
	return "DENIED"
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/permgate/pkg/backend"
	"github.com/platinummonkey/permgate/pkg/rbac"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var registry bool

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the permission matrix (or user registry) as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			var doc any = a.perms.Export()
			if registry {
				doc = a.users.Users()
			}

			data, err := backend.Encode(doc)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(args[0], data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", args[0])
			return nil
		}),
	}
	cmd.Flags().BoolVar(&registry, "registry", false, "Export the user registry instead of the permission matrix")

	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var registry bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the permission matrix (or user registry) with a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			if registry {
				var reg rbac.Registry
				if err := yaml.Unmarshal(data, &reg); err != nil {
					return fmt.Errorf("%w: %s: %v", rbac.ErrInvalidInput, args[0], err)
				}
				for id, u := range reg {
					if u.Role == "" {
						return fmt.Errorf("%w: user %q has no role", rbac.ErrInvalidInput, id)
					}
				}
				if err := a.users.Import(cmd.Context(), reg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d users\n", len(reg))
				return nil
			}

			var m rbac.Matrix
			if err := yaml.Unmarshal(data, &m); err != nil {
				return fmt.Errorf("%w: %s: %v", rbac.ErrInvalidInput, args[0], err)
			}
			for role, perms := range m {
				if perms == nil {
					m[role] = rbac.Permissions{}
				}
			}
			if err := a.perms.Import(cmd.Context(), m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d roles\n", len(m))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&registry, "registry", false, "Import a user registry instead of a permission matrix")

	return cmd
}

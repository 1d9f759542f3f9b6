package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/permgate/pkg/config"
	"github.com/platinummonkey/permgate/pkg/observability"
)

// Version is set at build time with -ldflags
var Version = "dev"

// rootOptions holds the persistent flags. A flag only overrides the
// environment when it was given on the command line.
type rootOptions struct {
	envFile     string
	backendType string
	root        string
	permissions string
	users       string
	auditLog    string
	auditMirror bool
	logLevel    string
	logFormat   string
	cacheSize   int
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "permgate",
		Short:         "permgate - file-backed role based access control",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before PERMGATE_* variables are read")
	flags.StringVar(&opts.backendType, "backend", "", "Backend type: file, memory, redis, s3, sql (env PERMGATE_BACKEND_TYPE)")
	flags.StringVar(&opts.root, "root", "", "File backend root directory (env PERMGATE_BACKEND_ROOT)")
	flags.StringVar(&opts.permissions, "permissions", "", "Permission matrix document (env PERMGATE_PERMISSIONS_DOCUMENT)")
	flags.StringVar(&opts.users, "users", "", "User registry document (env PERMGATE_USERS_DOCUMENT)")
	flags.StringVar(&opts.auditLog, "audit-log", "", "Audit log file (env PERMGATE_AUDIT_PATH)")
	flags.BoolVar(&opts.auditMirror, "audit-mirror", false, "Also write audit records to the log (env PERMGATE_AUDIT_MIRROR)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (env PERMGATE_LOG_LEVEL)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json (env PERMGATE_LOG_FORMAT)")
	flags.IntVar(&opts.cacheSize, "cache-size", 0, "Resolved context cache size, 0 disables (env PERMGATE_CACHE_SIZE)")

	root.AddCommand(
		newCheckCommand(opts),
		newWhoamiCommand(opts),
		newGrantCommand(opts),
		newAddUserCommand(opts),
		newToggleCommand(opts),
		newListUsersCommand(opts),
		newListPermsCommand(opts),
		newKeysCommand(opts),
		newMatrixCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newAdminCommand(opts),
		newServeCommand(opts),
	)

	return root
}

// config reads .env and the environment, then applies explicit flags
func (o *rootOptions) config(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Process()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend.Type = o.backendType
	}
	if flags.Changed("root") {
		cfg.Backend.Root = o.root
	}
	if flags.Changed("permissions") {
		cfg.PermissionsDocument = o.permissions
	}
	if flags.Changed("users") {
		cfg.UsersDocument = o.users
	}
	if flags.Changed("audit-log") {
		cfg.Audit.Path = o.auditLog
	}
	if flags.Changed("audit-mirror") {
		cfg.Audit.Mirror = o.auditMirror
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	if flags.Changed("cache-size") {
		cfg.Cache.Size = o.cacheSize
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withApp builds the application for one command run and closes it afterwards
func (o *rootOptions) withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := o.config(cmd)
		if err != nil {
			return err
		}

		logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to start: %w", err)
		}
		defer func() {
			if err := a.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close cleanly")
			}
		}()

		return fn(cmd, args, a)
	}
}

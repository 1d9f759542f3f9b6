package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/permgate/pkg/observability"
	"github.com/platinummonkey/permgate/pkg/rbac"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		addr     string
		watch    bool
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the stores loaded and expose metrics and health endpoints",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			flags := cmd.Flags()
			if flags.Changed("ops-addr") {
				a.cfg.Ops.Addr = addr
			}
			if flags.Changed("watch") {
				a.cfg.Reload.Watch = watch
			}
			if flags.Changed("reload-schedule") {
				a.cfg.Reload.Schedule = schedule
			}
			return serve(cmd, a)
		}),
	}
	cmd.Flags().StringVar(&addr, "ops-addr", "", "Metrics and health listen address (env PERMGATE_OPS_ADDR)")
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload when a document file changes (env PERMGATE_RELOAD_WATCH)")
	cmd.Flags().StringVar(&schedule, "reload-schedule", "", "Cron schedule for periodic reloads (env PERMGATE_RELOAD_SCHEDULE)")

	return cmd
}

func serve(cmd *cobra.Command, a *app) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := a.log.WithField("component", "serve")
	shutdown := observability.NewShutdownManager(log, a.cfg.Ops.ShutdownTimeout)

	providers, err := observability.InitOTel(ctx, a.cfg.OTel, log)
	if err != nil {
		return err
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, log)
	})

	if a.cfg.Reload.Watch {
		if paths := a.watchPaths(); len(paths) > 0 {
			if err := a.reloader.Watch(ctx, paths...); err != nil {
				return err
			}
		} else {
			log.WithField("backend", a.backend.Name()).Info("Backend has no local files, not watching")
		}
	}
	if a.cfg.Reload.Schedule != "" {
		if _, err := a.reloader.Schedule(a.cfg.Reload.Schedule); err != nil {
			return err
		}
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			a.reloader.Stop()
			return nil
		})
	}

	health := observability.NewHealthChecker(Version)
	health.AddCheck("backend", func(ctx context.Context) error {
		var m rbac.Matrix
		_, err := a.backend.Load(ctx, a.cfg.PermissionsDocument, &m)
		return err
	}, true)

	listener, err := net.Listen("tcp", a.cfg.Ops.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Ops.Addr, err)
	}
	server := observability.NewOpsServer(a.cfg.Ops.Addr, a.registry, health, log)
	shutdown.RegisterShutdownFunc(server.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		defer observability.RecoverPanic(log, "ops server")
		if err := server.Serve(listener); err != nil {
			serveErr <- err
			stop()
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving ops endpoints on %s\n", listener.Addr())
	if err := shutdown.WaitForShutdown(ctx); err != nil {
		return err
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("ops server: %w", err)
	default:
		return nil
	}
}

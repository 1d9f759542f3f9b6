package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/permgate/pkg/audit"
	"github.com/platinummonkey/permgate/pkg/backend"
	"github.com/platinummonkey/permgate/pkg/config"
	"github.com/platinummonkey/permgate/pkg/observability"
	"github.com/platinummonkey/permgate/pkg/rbac"
	"github.com/platinummonkey/permgate/pkg/reload"
)

// app is the wired set of components one command works with
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	backend   backend.Backend
	auditLog  *audit.FileLogger
	auditSink audit.Logger
	registry  *prometheus.Registry
	metrics   *observability.Metrics
	perms     *rbac.PermissionStore
	users     *rbac.UserStore
	resolver  rbac.ContextResolver
	reloader  *reload.Reloader
}

func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*app, error) {
	b, err := backend.New(ctx, cfg.Backend)
	if err != nil {
		return nil, err
	}

	auditLog, err := audit.NewFileLogger(audit.FileLoggerConfig{
		Path:     cfg.Audit.Path,
		MaxSize:  cfg.Audit.MaxSize,
		MaxFiles: cfg.Audit.MaxFiles,
	})
	if err != nil {
		backend.Close(b)
		return nil, err
	}

	var sink audit.Logger = auditLog
	if cfg.Audit.Mirror {
		sink = audit.NewMultiLogger(auditLog, audit.NewLogSink(logger))
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	a := &app{
		cfg:       cfg,
		log:       logger,
		backend:   b,
		auditLog:  auditLog,
		auditSink: sink,
		registry:  registry,
		metrics:   metrics,
	}
	a.perms = rbac.NewPermissionStore(b,
		rbac.WithDocument(cfg.PermissionsDocument),
		rbac.WithAuditLogger(sink),
		rbac.WithLogger(logger),
		rbac.WithMetrics(metrics),
	)
	a.users = rbac.NewUserStore(b,
		rbac.WithDocument(cfg.UsersDocument),
		rbac.WithAuditLogger(sink),
		rbac.WithLogger(logger),
		rbac.WithMetrics(metrics),
	)

	a.reloader = reload.New([]reload.Store{a.perms, a.users},
		reload.WithLogger(logger),
		reload.WithDebounce(cfg.Reload.Debounce),
	)
	if err := a.reloader.ReloadAll(ctx); err != nil {
		a.Close()
		return nil, err
	}

	resolver := rbac.NewResolver(a.perms, a.users,
		rbac.WithObserver(rbac.NewLogObserver(logger)),
		rbac.WithResolverMetrics(metrics),
	)
	a.resolver = resolver
	if cfg.Cache.Size > 0 {
		cache := rbac.NewCachingResolver(resolver, cfg.Cache.Size, cfg.Cache.TTL, metrics)
		cache.Watch(a.perms, a.users)
		a.resolver = cache
	}

	logger.WithFields(logrus.Fields{
		"backend":     b.Name(),
		"permissions": cfg.PermissionsDocument,
		"users":       cfg.UsersDocument,
	}).Debug("Stores loaded")
	return a, nil
}

// narratingResolver resolves without the cache and narrates each step
func (a *app) narratingResolver(o rbac.Observer) rbac.ContextResolver {
	return rbac.NewResolver(a.perms, a.users,
		rbac.WithObserver(o),
		rbac.WithResolverMetrics(a.metrics),
	)
}

// watchPaths returns the document files to watch, or nil when the backend
// does not keep documents on the local filesystem
func (a *app) watchPaths() []string {
	fb, ok := a.backend.(*backend.FileBackend)
	if !ok {
		return nil
	}
	return []string{fb.Path(a.cfg.PermissionsDocument), fb.Path(a.cfg.UsersDocument)}
}

func (a *app) Close() error {
	var errs []error
	if a.reloader != nil {
		a.reloader.Stop()
	}
	if err := a.auditSink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("audit log: %w", err))
	}
	if err := backend.Close(a.backend); err != nil {
		errs = append(errs, fmt.Errorf("backend: %w", err))
	}
	return errors.Join(errs...)
}

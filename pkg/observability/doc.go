// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, and the operations HTTP endpoints.
//
// # Structured Logging
//
// Create logger:
//
//	logger, err := observability.NewLogger("info", observability.FormatJSON, os.Stderr)
//	logger.WithField("component", "permissions").Info("Loaded permission matrix")
//
// # Prometheus Metrics
//
// Metrics methods are safe on a nil *Metrics, so components take an optional
// one:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordResolution("ok", time.Since(start))
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version)
//	checker.AddCheck("permissions", func(ctx context.Context) error { ... }, true)
//
// # Ops Server
//
// NewOpsServer serves /metrics, /healthz and /readyz through gorilla/mux,
// wrapped by otelhttp.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg.OTel, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability

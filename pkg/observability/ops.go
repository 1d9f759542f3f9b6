package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewOpsRouter routes /metrics, /healthz and /readyz
func NewOpsRouter(registry *prometheus.Registry, health *HealthChecker) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", MetricsHandler(registry)).Methods(http.MethodGet)
	router.HandleFunc("/healthz", health.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", health.Readiness).Methods(http.MethodGet)
	return router
}

// OpsServer serves the operations endpoints
type OpsServer struct {
	server *http.Server
	logger logrus.FieldLogger
}

// NewOpsServer creates an ops server listening on addr
func NewOpsServer(addr string, registry *prometheus.Registry, health *HealthChecker, logger logrus.FieldLogger) *OpsServer {
	handler := otelhttp.NewHandler(NewOpsRouter(registry, health), "ops",
		otelhttp.WithFilter(func(r *http.Request) bool {
			// Probes and scrapes are too frequent to trace
			return r.URL.Path != "/metrics" && r.URL.Path != "/healthz"
		}),
	)

	return &OpsServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Serve accepts connections on l until Shutdown is called
func (s *OpsServer) Serve(l net.Listener) error {
	s.logger.WithField("addr", l.Addr().String()).Info("Ops server listening")
	if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *OpsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration prometheus.Histogram

	// Cache metrics
	CacheLookupsTotal *prometheus.CounterVec
	CachePurgesTotal  prometheus.Counter

	// Mutation metrics
	MutationsTotal          *prometheus.CounterVec
	AuditWriteFailuresTotal prometheus.Counter

	// Reload metrics
	ReloadsTotal   *prometheus.CounterVec
	LastReloadTime *prometheus.GaugeVec

	// State
	RolesTotal prometheus.Gauge
	UsersTotal prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "permgate_resolutions_total",
				Help: "Total number of user context resolutions",
			},
			[]string{"outcome"},
		),
		ResolutionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "permgate_resolution_duration_seconds",
				Help:    "User context resolution duration in seconds",
				Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
			},
		),

		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "permgate_cache_lookups_total",
				Help: "Total number of resolved context cache lookups",
			},
			[]string{"result"},
		),
		CachePurgesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "permgate_cache_purges_total",
				Help: "Total number of cache purges caused by state changes",
			},
		),

		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "permgate_mutations_total",
				Help: "Total number of store mutations",
			},
			[]string{"operation", "status"},
		),
		AuditWriteFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "permgate_audit_write_failures_total",
				Help: "Total number of audit records that could not be written",
			},
		),

		ReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "permgate_reloads_total",
				Help: "Total number of store reloads",
			},
			[]string{"store", "status"},
		),
		LastReloadTime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "permgate_last_reload_timestamp_seconds",
				Help: "Unix time of the last successful reload",
			},
			[]string{"store"},
		),

		RolesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "permgate_roles_total",
				Help: "Number of roles in the permission matrix",
			},
		),
		UsersTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "permgate_users_total",
				Help: "Number of users in the registry",
			},
		),
	}

	registry.MustRegister(
		m.ResolutionsTotal,
		m.ResolutionDuration,
		m.CacheLookupsTotal,
		m.CachePurgesTotal,
		m.MutationsTotal,
		m.AuditWriteFailuresTotal,
		m.ReloadsTotal,
		m.LastReloadTime,
		m.RolesTotal,
		m.UsersTotal,
	)

	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordResolution counts a resolution by outcome
func (m *Metrics) RecordResolution(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
	m.ResolutionDuration.Observe(d.Seconds())
}

// RecordCacheLookup counts a cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordCachePurge counts a cache purge
func (m *Metrics) RecordCachePurge() {
	if m == nil {
		return
	}
	m.CachePurgesTotal.Inc()
}

// RecordMutation counts a store mutation and its result
func (m *Metrics) RecordMutation(operation string, err error) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(operation, status(err)).Inc()
}

// RecordAuditFailure counts a lost audit record
func (m *Metrics) RecordAuditFailure() {
	if m == nil {
		return
	}
	m.AuditWriteFailuresTotal.Inc()
}

// RecordReload counts a reload of the named store
func (m *Metrics) RecordReload(store string, err error) {
	if m == nil {
		return
	}
	m.ReloadsTotal.WithLabelValues(store, status(err)).Inc()
	if err == nil {
		m.LastReloadTime.WithLabelValues(store).SetToCurrentTime()
	}
}

// SetRoles records the current number of roles
func (m *Metrics) SetRoles(n int) {
	if m == nil {
		return
	}
	m.RolesTotal.Set(float64(n))
}

// SetUsers records the current number of users
func (m *Metrics) SetUsers(n int) {
	if m == nil {
		return
	}
	m.UsersTotal.Set(float64(n))
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

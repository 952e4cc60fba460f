// Package metrics provides Prometheus metrics export for vfsroot.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled         bool
	enabledMutex    sync.RWMutex
	defaultRegistry *Registry
)

// Init initializes the metrics system.
func Init() {
	enabledMutex.Lock()
	defer enabledMutex.Unlock()
	enabled = true
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry()
	}
}

// Enabled returns true if metrics are enabled.
func Enabled() bool {
	enabledMutex.RLock()
	defer enabledMutex.RUnlock()
	return enabled
}

// Default returns the default metrics registry, or nil when metrics are
// disabled. A nil *Registry is safe to record into.
func Default() *Registry {
	enabledMutex.RLock()
	defer enabledMutex.RUnlock()
	if !enabled {
		return nil
	}
	return defaultRegistry
}

// Registry holds all vfsroot collectors on a private Prometheus registry.
type Registry struct {
	reg           *prometheus.Registry
	writes        *prometheus.CounterVec
	rollbacks     prometheus.Counter
	writeDuration prometheus.Histogram
	forbidden     prometheus.Counter
	outOfRoot     prometheus.Counter
}

// NewRegistry creates a new metrics registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vfsroot_atomic_write_total",
			Help: "Atomic writes by result.",
		}, []string{"result"}),
		rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vfsroot_atomic_write_rollback_total",
			Help: "Atomic writes whose staging area was discarded.",
		}),
		writeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vfsroot_atomic_write_duration_seconds",
			Help:    "Duration of atomic writes, staging through rename.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		forbidden: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vfsroot_forbidden_total",
			Help: "Operations denied by the operating system.",
		}),
		outOfRoot: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vfsroot_out_of_root_total",
			Help: "Virtual paths rejected for escaping the root.",
		}),
	}
	r.reg.MustRegister(r.writes, r.rollbacks, r.writeDuration, r.forbidden, r.outOfRoot)
	return r
}

// RecordWrite records an atomic write. rolledBack is set when the staging
// area had to be discarded.
func (r *Registry) RecordWrite(success, rolledBack bool, duration time.Duration) {
	if r == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	r.writes.WithLabelValues(result).Inc()
	if rolledBack {
		r.rollbacks.Inc()
	}
	r.writeDuration.Observe(duration.Seconds())
}

// RecordForbidden records a permission failure surfaced as forbidden.
func (r *Registry) RecordForbidden() {
	if r == nil {
		return
	}
	r.forbidden.Inc()
}

// RecordOutOfRoot records a rejected virtual path.
func (r *Registry) RecordOutOfRoot() {
	if r == nil {
		return
	}
	r.outOfRoot.Inc()
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler serving the registry in Prometheus format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// StartServer serves the default registry on addr until the server fails.
func StartServer(addr string) error {
	Init()
	mux := http.NewServeMux()
	mux.Handle("/metrics", Default().Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

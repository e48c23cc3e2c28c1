package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promcollectors "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "issuerelay"

// Options control monitoring module configuration.
type Options struct {
	// Namespace prefixes every relay metric. Defaults to "issuerelay".
	Namespace string
	// Version is exported as the version label of <namespace>_build_info.
	Version string
	// DisableGoCollector skips the Go runtime collector.
	DisableGoCollector bool
	// DisableProcessCollector skips the process collector.
	DisableProcessCollector bool
}

// Module owns the relay's Prometheus registry, the counters behind the admin summary
// and the health manager. The process-wide instance is installed with SetModule.
type Module struct {
	registry  *prometheus.Registry
	metrics   *collectors
	stats     *statStore
	health    *HealthManager
	startedAt time.Time
	version   string
}

// NewModule constructs a monitoring module with its own Prometheus registry. The
// module registers a "process" liveness check that reports uptime.
func NewModule(opts Options) (*Module, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	registry := prometheus.NewRegistry()
	var runtime []prometheus.Collector
	if !opts.DisableGoCollector {
		runtime = append(runtime, promcollectors.NewGoCollector())
	}
	if !opts.DisableProcessCollector {
		runtime = append(runtime, promcollectors.NewProcessCollector(promcollectors.ProcessCollectorOpts{}))
	}

	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Relay build information",
		ConstLabels: prometheus.Labels{"version": version},
	})
	buildInfo.Set(1)

	metrics := newCollectors(namespace)
	for _, collector := range append(append(runtime, buildInfo), metrics.all()...) {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("monitoring: register collector: %w", err)
		}
	}

	module := &Module{
		registry:  registry,
		metrics:   metrics,
		stats:     newStatStore(),
		health:    NewHealthManager(),
		startedAt: time.Now(),
		version:   version,
	}
	module.health.RegisterLiveness(NewCheck("process", module.processCheck))
	return module, nil
}

func (m *Module) processCheck(context.Context) ProbeResult {
	return ProbeResult{
		Status:  StatusUp,
		Details: fmt.Sprintf("version %s, up %s", m.version, m.Uptime().Truncate(time.Second)),
	}
}

// Registry exposes the underlying Prometheus registry.
func (m *Module) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an http.Handler serving this module's metrics.
func (m *Module) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Health exposes the manager holding liveness and readiness checks.
func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}

// Summary returns a point-in-time view of this module's counters.
func (m *Module) Summary() Summary {
	if m == nil || m.stats == nil {
		return Summary{GeneratedAt: time.Now()}
	}
	summary := m.stats.summary()
	summary.Version = m.version
	summary.StartedAt = m.startedAt
	return summary
}

// Uptime reports how long the module has existed.
func (m *Module) Uptime() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.startedAt)
}

var globalModule atomic.Pointer[Module]

// SetModule installs the process-wide module used by the Record helpers. Nil is ignored.
func SetModule(module *Module) {
	if module == nil {
		return
	}
	globalModule.Store(module)
}

// CurrentModule returns the process-wide monitoring module, or nil when unset.
func CurrentModule() *Module {
	return globalModule.Load()
}

func ensureModule() *Module {
	return globalModule.Load()
}

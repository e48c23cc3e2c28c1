package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	cacheLookups        *prometheus.CounterVec
	cacheWrites         *prometheus.CounterVec
	cacheDeletes        prometheus.Counter
	cacheReadFaults     *prometheus.CounterVec
	githubFetches       *prometheus.CounterVec
	githubFetchLatency  prometheus.Histogram
	chatEvents          *prometheus.CounterVec
	gatewayConnections  prometheus.Gauge
	gatewayFailures     *prometheus.CounterVec
	apiLatency          *prometheus.HistogramVec
	maintenanceRuns     *prometheus.CounterVec
	maintenanceDuration *prometheus.HistogramVec
	maintenanceLastRun  *prometheus.GaugeVec
}

func newCollectors(namespace string) *collectors {
	buckets := prometheus.DefBuckets
	fetchBuckets := []float64{
		0.05, 0.1, 0.25, 0.5, // sub-second
		1, 2.5, 5, 10,
	}

	return &collectors{
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Issue cache lookups by tier and result",
			},
			[]string{"tier", "result"},
		),
		cacheWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_writes_total",
				Help:      "Issue cache writes by result",
			},
			[]string{"result"},
		),
		cacheDeletes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_deletes_total",
				Help:      "Issue cache delete calls",
			},
		),
		cacheReadFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_read_faults_total",
				Help:      "Cache read faults downgraded to misses, by tier",
			},
			[]string{"tier"},
		),
		githubFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "github_fetches_total",
				Help:      "GitHub issue fetches by result",
			},
			[]string{"result"},
		),
		githubFetchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "github_fetch_latency_seconds",
				Help:      "Latency of GitHub issue fetches",
				Buckets:   fetchBuckets,
			},
		),
		chatEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_events_total",
				Help:      "Chat events handled by source and result",
			},
			[]string{"source", "result"},
		),
		gatewayConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gateway_connections",
				Help:      "Open chat gateway websocket connections",
			},
		),
		gatewayFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_failures_total",
				Help:      "Chat gateway connection failures by type",
			},
			[]string{"type"},
		),
		apiLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_latency_seconds",
				Help:      "API endpoint latency",
				Buckets:   buckets,
			},
			[]string{"method", "path", "status"},
		),
		maintenanceRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "maintenance_runs_total",
				Help:      "Maintenance job executions",
			},
			[]string{"job", "result"},
		),
		maintenanceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "maintenance_duration_seconds",
				Help:      "Maintenance job duration",
				Buckets:   buckets,
			},
			[]string{"job"},
		),
		maintenanceLastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "maintenance_last_success_timestamp",
				Help:      "Timestamp of the last successful maintenance run (seconds since epoch)",
			},
			[]string{"job"},
		),
	}
}

func (c *collectors) all() []prometheus.Collector {
	return []prometheus.Collector{
		c.cacheLookups,
		c.cacheWrites,
		c.cacheDeletes,
		c.cacheReadFaults,
		c.githubFetches,
		c.githubFetchLatency,
		c.chatEvents,
		c.gatewayConnections,
		c.gatewayFailures,
		c.apiLatency,
		c.maintenanceRuns,
		c.maintenanceDuration,
		c.maintenanceLastRun,
	}
}

// observeDuration records a duration in seconds on the supplied histogram observer.
func observeDuration(observer prometheus.Observer, d time.Duration) {
	if observer == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	observer.Observe(d.Seconds())
}

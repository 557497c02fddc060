// Package prom implements the observability hooks with Prometheus
// collectors. Call [Metrics.Install] once at startup and serve
// [Handler] on /metrics.
package prom

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ko3luhbka/dephell/pkg/observability"
)

// Metrics holds every dephell collector.
type Metrics struct {
	expandTotal      *prometheus.CounterVec
	expandDuration   prometheus.Histogram
	conflictTotal    prometheus.Counter
	buildDuration    *prometheus.HistogramVec
	buildNodes       prometheus.Gauge
	flattenTotal     *prometheus.CounterVec
	convertTotal     *prometheus.CounterVec
	convertDuration  *prometheus.HistogramVec
	cacheTotal       *prometheus.CounterVec
	cacheBytes       *prometheus.CounterVec
	httpRequestTotal *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpErrorTotal   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		expandTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dephell_resolver_expand_total",
				Help: "Number of node expansions by outcome.",
			},
			[]string{"outcome"},
		),
		expandDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dephell_resolver_expand_duration_seconds",
				Help:    "Time taken to expand one node.",
				Buckets: prometheus.DefBuckets,
			},
		),
		conflictTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dephell_resolver_conflict_total",
				Help: "Number of constraint conflicts detected.",
			},
		),
		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dephell_resolver_build_duration_seconds",
				Help:    "Time taken to build a dependency graph.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
			[]string{"outcome"},
		),
		buildNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dephell_resolver_graph_nodes",
				Help: "Number of nodes in the last built graph.",
			},
		),
		flattenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dephell_resolver_flatten_total",
				Help: "Number of flatten calls by lock mode and outcome.",
			},
			[]string{"lock", "outcome"},
		),
		convertTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dephell_converter_operations_total",
				Help: "Number of converter loads and dumps by format and outcome.",
			},
			[]string{"op", "format", "outcome"},
		),
		convertDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dephell_converter_duration_seconds",
				Help:    "Time taken by converter loads and dumps.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op", "format"},
		),
		cacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dephell_cache_lookups_total",
				Help: "Number of cache lookups by key type and result.",
			},
			[]string{"key_type", "result"},
		),
		cacheBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dephell_cache_written_bytes_total",
				Help: "Bytes written to the cache by key type.",
			},
			[]string{"key_type"},
		),
		httpRequestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dephell_http_requests_total",
				Help: "Outgoing index requests by host and status code.",
			},
			[]string{"host", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dephell_http_request_duration_seconds",
				Help:    "Latency of outgoing index requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host"},
		),
		httpErrorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dephell_http_errors_total",
				Help: "Outgoing index requests that failed before a response.",
			},
			[]string{"host"},
		),
	}
	reg.MustRegister(
		m.expandTotal,
		m.expandDuration,
		m.conflictTotal,
		m.buildDuration,
		m.buildNodes,
		m.flattenTotal,
		m.convertTotal,
		m.convertDuration,
		m.cacheTotal,
		m.cacheBytes,
		m.httpRequestTotal,
		m.httpDuration,
		m.httpErrorTotal,
	)
	return m
}

// Install makes m the global hook implementation for every category.
func (m *Metrics) Install() {
	observability.SetResolverHooks(m)
	observability.SetConverterHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) OnExpandStart(context.Context, string) {}

func (m *Metrics) OnExpandComplete(_ context.Context, _, _ string, d time.Duration, err error) {
	m.expandTotal.WithLabelValues(outcome(err)).Inc()
	m.expandDuration.Observe(d.Seconds())
}

func (m *Metrics) OnConflict(context.Context, string, string) {
	m.conflictTotal.Inc()
}

func (m *Metrics) OnBuildComplete(_ context.Context, nodes, _ int, d time.Duration, err error) {
	m.buildDuration.WithLabelValues(outcome(err)).Observe(d.Seconds())
	m.buildNodes.Set(float64(nodes))
}

func (m *Metrics) OnFlatten(_ context.Context, _ int, lock bool, err error) {
	m.flattenTotal.WithLabelValues(strconv.FormatBool(lock), outcome(err)).Inc()
}

func (m *Metrics) OnLoad(_ context.Context, format string, _ int, d time.Duration, err error) {
	m.convertTotal.WithLabelValues("load", format, outcome(err)).Inc()
	m.convertDuration.WithLabelValues("load", format).Observe(d.Seconds())
}

func (m *Metrics) OnDump(_ context.Context, format string, _ int, d time.Duration, err error) {
	m.convertTotal.WithLabelValues("dump", format, outcome(err)).Inc()
	m.convertDuration.WithLabelValues("dump", format).Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheTotal.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheTotal.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	m.httpRequestTotal.WithLabelValues(host, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, _, host, _ string, _ error) {
	m.httpErrorTotal.WithLabelValues(host).Inc()
}

var (
	_ observability.ResolverHooks  = (*Metrics)(nil)
	_ observability.ConverterHooks = (*Metrics)(nil)
	_ observability.CacheHooks     = (*Metrics)(nil)
	_ observability.HTTPHooks      = (*Metrics)(nil)
)

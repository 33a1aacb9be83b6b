// Package prom implements the observability hooks with Prometheus metrics.
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/dmlopt/pkg/observability"
)

const namespace = "dmlopt"

// Hooks records rewrite, pipeline, cache and HTTP events. One value serves
// all four hook interfaces.
type Hooks struct {
	passDuration *prometheus.HistogramVec
	nodesVisited *prometheus.CounterVec
	rulesApplied *prometheus.CounterVec
	diagnostics  *prometheus.CounterVec

	stageDuration *prometheus.HistogramVec
	exportBytes   prometheus.Histogram

	cacheRequests *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpErrors   *prometheus.CounterVec
}

var (
	_ observability.RewriteHooks  = (*Hooks)(nil)
	_ observability.PipelineHooks = (*Hooks)(nil)
	_ observability.CacheHooks    = (*Hooks)(nil)
	_ observability.HTTPHooks     = (*Hooks)(nil)
)

// New creates the metrics and registers them with reg. It panics if a metric
// is already registered.
func New(reg prometheus.Registerer) *Hooks {
	h := &Hooks{
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rewrite",
			Name:      "pass_duration_seconds",
			Help:      "Duration of rewrite passes.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		}, []string{"pass", "result"}),
		nodesVisited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewrite",
			Name:      "nodes_visited_total",
			Help:      "Nodes visited by rewrite passes.",
		}, []string{"pass"}),
		rulesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewrite",
			Name:      "rules_applied_total",
			Help:      "Rule firings by rule.",
		}, []string{"rule"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewrite",
			Name:      "diagnostics_total",
			Help:      "Patterns recognized but left unchanged, by rule.",
		}, []string{"rule"}),

		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "result"}),
		exportBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "export_bytes",
			Help:      "Size of exported programs.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}),

		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by key type and result.",
		}, []string{"key_type", "result"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Bytes written to the cache by key type.",
		}, []string{"key_type"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP responses by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Requests that failed before a response was written.",
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		h.passDuration, h.nodesVisited, h.rulesApplied, h.diagnostics,
		h.stageDuration, h.exportBytes,
		h.cacheRequests, h.cacheBytes,
		h.httpRequests, h.httpDuration, h.httpErrors,
	)
	return h
}

// Install registers h for every hook category.
func (h *Hooks) Install() {
	observability.SetRewriteHooks(h)
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (h *Hooks) OnPassStart(context.Context, string, int) {}

func (h *Hooks) OnPassComplete(_ context.Context, pass string, visited int, d time.Duration, err error) {
	h.passDuration.WithLabelValues(pass, result(err)).Observe(d.Seconds())
	h.nodesVisited.WithLabelValues(pass).Add(float64(visited))
}

func (h *Hooks) OnRuleApplied(_ context.Context, rule string) {
	h.rulesApplied.WithLabelValues(rule).Inc()
}

func (h *Hooks) OnDiagnostic(_ context.Context, rule, _ string) {
	h.diagnostics.WithLabelValues(rule).Inc()
}

func (h *Hooks) OnLoadStart(context.Context, string) {}

func (h *Hooks) OnLoadComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	h.stageDuration.WithLabelValues("load", result(err)).Observe(d.Seconds())
}

func (h *Hooks) OnRewriteStart(context.Context, string, int) {}

func (h *Hooks) OnRewriteComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	h.stageDuration.WithLabelValues("rewrite", result(err)).Observe(d.Seconds())
}

func (h *Hooks) OnExportStart(context.Context, string, string) {}

func (h *Hooks) OnExportComplete(_ context.Context, _, _ string, size int, d time.Duration, err error) {
	h.stageDuration.WithLabelValues("export", result(err)).Observe(d.Seconds())
	if err == nil {
		h.exportBytes.Observe(float64(size))
	}
}

func (h *Hooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheRequests.WithLabelValues(keyType, "hit").Inc()
}

func (h *Hooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheRequests.WithLabelValues(keyType, "miss").Inc()
}

func (h *Hooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (h *Hooks) OnRequest(context.Context, string, string) {}

func (h *Hooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (h *Hooks) OnError(_ context.Context, method, route string, _ error) {
	h.httpErrors.WithLabelValues(method, route).Inc()
}

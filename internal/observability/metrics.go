// Package observability exposes the service's Prometheus metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the service's metric set.
type Metrics struct {
	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Tracker metrics
	TrackerOps       *prometheus.CounterVec
	TradesOpened     prometheus.Counter
	TradesClosed     prometheus.Counter
	TipsCreated      prometheus.Counter
	OutcomesRecorded *prometheus.CounterVec
	OutcomesDropped  prometheus.Counter

	// Lookup metrics
	CacheLookups       *prometheus.CounterVec
	DexscreenerLatency *prometheus.HistogramVec

	// Stream metrics
	StreamClients   prometheus.Gauge
	StreamBroadcast prometheus.Counter

	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered with reg under
// namespace ("memedesk" when empty). A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "memedesk"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	counter := func(sub, name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Subsystem: sub, Name: name, Help: help}, labels)
	}
	histogram := func(sub, name, help string, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: sub, Name: name, Help: help, Buckets: prometheus.DefBuckets,
		}, labels)
	}

	return &Metrics{
		HTTPRequests:        counter("http", "requests_total", "HTTP requests by route and status.", "method", "route", "status"),
		HTTPRequestDuration: histogram("http", "request_duration_seconds", "HTTP request latency.", "method", "route"),

		TrackerOps:       counter("tracker", "operations_total", "Tracker operations by outcome.", "op", "outcome"),
		TradesOpened:     counter("tracker", "trades_opened_total", "Trades opened.").WithLabelValues(),
		TradesClosed:     counter("tracker", "trades_closed_total", "Trades closed.").WithLabelValues(),
		TipsCreated:      counter("tracker", "tips_created_total", "Tips recorded.").WithLabelValues(),
		OutcomesRecorded: counter("analytics", "outcomes_recorded_total", "Outcome writes by kind and status.", "kind", "status"),
		OutcomesDropped:  counter("analytics", "outcomes_dropped_total", "Outcomes dropped on a full queue.").WithLabelValues(),

		CacheLookups:       counter("cache", "lookups_total", "Cache lookups by driver and result.", "driver", "result"),
		DexscreenerLatency: histogram("dexscreener", "call_latency_seconds", "DexScreener call latency.", "chain", "status"),

		StreamClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "stream", Name: "clients", Help: "Connected websocket clients.",
		}),
		StreamBroadcast: counter("stream", "events_broadcast_total", "Events broadcast to clients.").WithLabelValues(),

		DBQueryDuration: histogram("database", "query_duration_seconds", "Store call latency.", "database", "operation"),
		DBQueryErrors:   counter("database", "query_errors_total", "Failed store calls.", "database", "operation"),
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics backs the package-level Record helpers.
var DefaultMetrics = NewMetrics("", nil)

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route, status string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(method, route, status).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordTrackerOp records the outcome of a tracker operation.
func RecordTrackerOp(op, outcome string) {
	DefaultMetrics.TrackerOps.WithLabelValues(op, outcome).Inc()
}

// RecordTradeOpened increments the trades opened counter.
func RecordTradeOpened() {
	DefaultMetrics.TradesOpened.Inc()
}

// RecordTradeClosed increments the trades closed counter.
func RecordTradeClosed() {
	DefaultMetrics.TradesClosed.Inc()
}

// RecordTipCreated increments the tips created counter.
func RecordTipCreated() {
	DefaultMetrics.TipsCreated.Inc()
}

// RecordOutcome records an analytics write.
func RecordOutcome(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.OutcomesRecorded.WithLabelValues(kind, status).Inc()
}

// RecordOutcomeDropped increments the dropped outcomes counter.
func RecordOutcomeDropped() {
	DefaultMetrics.OutcomesDropped.Inc()
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(driver string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheLookups.WithLabelValues(driver, result).Inc()
}

// RecordDexscreenerCall records DexScreener call latency.
func RecordDexscreenerCall(chain, status string, seconds float64) {
	DefaultMetrics.DexscreenerLatency.WithLabelValues(chain, status).Observe(seconds)
}

// SetStreamClients updates the connected clients gauge.
func SetStreamClients(n int) {
	DefaultMetrics.StreamClients.Set(float64(n))
}

// RecordStreamBroadcast increments the broadcast counter.
func RecordStreamBroadcast() {
	DefaultMetrics.StreamBroadcast.Inc()
}

// RecordDBQuery records one store call; err counts it as failed.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

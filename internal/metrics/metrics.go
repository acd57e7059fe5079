// Package metrics provides Prometheus metric collection and exposure.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the engine and API layers record through.
type Recorder interface {
	RecordScan(findings int)
	RecordFinding(fraudType string)
	RecordAlertCreated(fraudType string)
	RecordAlertSuppressed(fraudType string)
	RecordScoringLatency(duration time.Duration)
	RecordModelTraining(samples int)
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration)
}

// Collector implements Recorder backed by Prometheus.
type Collector struct {
	scansTotal       prometheus.Counter
	findingsTotal    *prometheus.CounterVec
	alertsCreated    *prometheus.CounterVec
	alertsSuppressed *prometheus.CounterVec
	scoringLatency   prometheus.Histogram
	trainingRuns     prometheus.Counter
	trainingSamples  prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with the
// given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		scansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kestrel_scans_total",
			Help: "Total number of subject fraud scans.",
		}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kestrel_findings_total",
			Help: "Rule findings by fraud type.",
		}, []string{"fraud_type"}),
		alertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kestrel_alerts_created_total",
			Help: "Alerts persisted, by fraud type.",
		}, []string{"fraud_type"}),
		alertsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kestrel_alerts_suppressed_total",
			Help: "Alerts suppressed by deduplication, by fraud type.",
		}, []string{"fraud_type"}),
		scoringLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kestrel_scoring_latency_seconds",
			Help:    "Transaction scoring latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		trainingRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kestrel_model_trainings_total",
			Help: "Completed anomaly model training runs.",
		}),
		trainingSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kestrel_model_training_samples",
			Help: "Sample count used by the last training run.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kestrel_http_requests_total",
			Help: "HTTP requests by method, route, and status code.",
		}, []string{"method", "path", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kestrel_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		c.scansTotal,
		c.findingsTotal,
		c.alertsCreated,
		c.alertsSuppressed,
		c.scoringLatency,
		c.trainingRuns,
		c.trainingSamples,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// RecordScan records a completed subject scan.
func (c *Collector) RecordScan(findings int) {
	c.scansTotal.Inc()
}

// RecordFinding records a single rule finding.
func (c *Collector) RecordFinding(fraudType string) {
	c.findingsTotal.WithLabelValues(fraudType).Inc()
}

// RecordAlertCreated records a persisted alert.
func (c *Collector) RecordAlertCreated(fraudType string) {
	c.alertsCreated.WithLabelValues(fraudType).Inc()
}

// RecordAlertSuppressed records an alert skipped by deduplication.
func (c *Collector) RecordAlertSuppressed(fraudType string) {
	c.alertsSuppressed.WithLabelValues(fraudType).Inc()
}

// RecordScoringLatency records how long a transaction score took.
func (c *Collector) RecordScoringLatency(duration time.Duration) {
	c.scoringLatency.Observe(duration.Seconds())
}

// RecordModelTraining records a completed training run.
func (c *Collector) RecordModelTraining(samples int) {
	c.trainingRuns.Inc()
	c.trainingSamples.Set(float64(samples))
}

// RecordHTTPRequest records a served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Noop is a Recorder that discards everything. Used in tests and
// wherever metrics are not wired.
type Noop struct{}

func (Noop) RecordScan(int)                                       {}
func (Noop) RecordFinding(string)                                 {}
func (Noop) RecordAlertCreated(string)                            {}
func (Noop) RecordAlertSuppressed(string)                         {}
func (Noop) RecordScoringLatency(time.Duration)                   {}
func (Noop) RecordModelTraining(int)                              {}
func (Noop) RecordHTTPRequest(string, string, int, time.Duration) {}

// Handler returns the Prometheus scrape handler for a gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

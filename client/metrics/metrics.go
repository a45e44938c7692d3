// Package metrics exposes Prometheus instrumentation for a client's
// transport lifecycle and request pipeline. A nil *Collector is valid and
// records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "apiclient"

// Collector records client metrics. It is safe for concurrent use.
type Collector struct {
	transportBuilds  *prometheus.CounterVec
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	errorsTotal      *prometheus.CounterVec
	downloadedBytes  prometheus.Counter
}

// New registers the client metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)

	return &Collector{
		transportBuilds: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transport_configurations_total",
				Help:      "Transport reconfigurations, by kind (rebuild or headers).",
			},
			[]string{"kind"},
		),
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Requests that received a response.",
			},
			[]string{"method", "status_code"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time from send until response headers arrived.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "status_code"},
		),
		requestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Requests currently holding a transport.",
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Failed requests, by pipeline stage.",
			},
			[]string{"stage"},
		),
		downloadedBytes: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downloaded_bytes_total",
				Help:      "Bytes written to disk by completed downloads.",
			},
		),
	}
}

// Rebuilt records a transport configuration. rebuilt is false when only the
// default headers were re-applied.
func (c *Collector) Rebuilt(rebuilt bool) {
	if c == nil {
		return
	}

	kind := "headers"
	if rebuilt {
		kind = "rebuild"
	}
	c.transportBuilds.WithLabelValues(kind).Inc()
}

// Started marks a request as in flight and returns the func that records
// its outcome. The returned func must be called exactly once.
func (c *Collector) Started(method string) func(statusCode int, d time.Duration) {
	if c == nil {
		return func(int, time.Duration) {}
	}

	c.requestsInFlight.Inc()

	return func(statusCode int, d time.Duration) {
		c.requestsInFlight.Dec()
		if statusCode == 0 {
			return
		}

		code := strconv.Itoa(statusCode)
		c.requestsTotal.WithLabelValues(method, code).Inc()
		c.requestDuration.WithLabelValues(method, code).Observe(d.Seconds())
	}
}

// Failed counts an error raised during stage.
func (c *Collector) Failed(stage string) {
	if c == nil {
		return
	}

	c.errorsTotal.WithLabelValues(stage).Inc()
}

// Downloaded adds n bytes to the download total.
func (c *Collector) Downloaded(n int64) {
	if c == nil || n <= 0 {
		return
	}

	c.downloadedBytes.Add(float64(n))
}

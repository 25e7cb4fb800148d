// Package metrics collects Prometheus metrics for the API client.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the recording surface used by the transport layer.
type Collector interface {
	RecordRequest(method string, statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordRefreshSuccess()
	RecordRefreshFailure()
}

// PrometheusCollector records client metrics into a Prometheus registry.
type PrometheusCollector struct {
	requests       *prometheus.CounterVec
	requestLatency prometheus.Histogram
	refreshOK      prometheus.Counter
	refreshFail    prometheus.Counter
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates a collector and registers its metrics with
// the given registerer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "motohub_client_requests_total",
			Help: "API requests by method and response status code",
		}, []string{"method", "status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "motohub_client_request_latency_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		refreshOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motohub_client_token_refresh_success_total",
			Help: "Successful access token refreshes",
		}),
		refreshFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motohub_client_token_refresh_failure_total",
			Help: "Failed access token refreshes",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.refreshOK,
		c.refreshFail,
	)

	return c
}

func (c *PrometheusCollector) RecordRequest(method string, statusCode int) {
	c.requests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
}

func (c *PrometheusCollector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordRefreshSuccess() {
	c.refreshOK.Inc()
}

func (c *PrometheusCollector) RecordRefreshFailure() {
	c.refreshFail.Inc()
}

// Noop is a Collector that records nothing. Used when no registry is wired.
type Noop struct{}

var _ Collector = Noop{}

func (Noop) RecordRequest(string, int)             {}
func (Noop) RecordRequestLatency(time.Duration)    {}
func (Noop) RecordRefreshSuccess()                 {}
func (Noop) RecordRefreshFailure()                 {}

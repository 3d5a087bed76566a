package metrics

import (
	"net/http"
	"time"

	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records dispatch outcomes. It satisfies publish.Recorder.
type Collector struct {
	success *prometheus.CounterVec
	failure *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		success: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosspost_publish_success_total",
			Help: "Successful publishes per platform.",
		}, []string{"platform"}),
		failure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosspost_publish_failure_total",
			Help: "Failed publishes per platform and error kind.",
		}, []string{"platform", "kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crosspost_publish_latency_seconds",
			Help:    "Latency of successful publishes.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"platform"}),
	}

	reg.MustRegister(c.success, c.failure, c.latency)
	return c
}

func (c *Collector) RecordSuccess(provider publish.Provider, latency time.Duration) {
	c.success.WithLabelValues(provider.String()).Inc()
	c.latency.WithLabelValues(provider.String()).Observe(latency.Seconds())
}

// RecordFailure counts the failure by kind. The message is not used as a
// label.
func (c *Collector) RecordFailure(provider publish.Provider, message string, kind publish.ErrorKind) {
	c.failure.WithLabelValues(provider.String(), string(kind)).Inc()
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

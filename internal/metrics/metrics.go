// Package metrics exposes Prometheus counters for the alert pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the alert runner's Metrics interface.
type Collector struct {
	registry *prometheus.Registry

	ticks          prometheus.Counter
	ticksSkipped   prometheus.Counter
	usersProcessed prometheus.Counter
	alertsSent     prometheus.Counter
	alertFailures  *prometheus.CounterVec
	tickDuration   prometheus.Histogram
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finwatch_alert_ticks_total",
			Help: "Completed alert pipeline ticks.",
		}),
		ticksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finwatch_alert_ticks_skipped_total",
			Help: "Scheduled ticks skipped because a run was in progress.",
		}),
		usersProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finwatch_alert_users_processed_total",
			Help: "Users processed across all ticks.",
		}),
		alertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finwatch_alerts_sent_total",
			Help: "Low-balance alerts delivered successfully.",
		}),
		alertFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finwatch_alert_failures_total",
			Help: "Per-user pipeline failures by reason.",
		}, []string{"reason"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "finwatch_alert_tick_duration_seconds",
			Help:    "Wall time of one alert pipeline tick.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	c.registry.MustRegister(
		c.ticks,
		c.ticksSkipped,
		c.usersProcessed,
		c.alertsSent,
		c.alertFailures,
		c.tickDuration,
	)

	return c
}

func (c *Collector) RecordTick(duration time.Duration) {
	c.ticks.Inc()
	c.tickDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordTickSkipped() {
	c.ticksSkipped.Inc()
}

func (c *Collector) RecordUserProcessed() {
	c.usersProcessed.Inc()
}

func (c *Collector) RecordAlertSent() {
	c.alertsSent.Inc()
}

func (c *Collector) RecordAlertFailure(reason string) {
	c.alertFailures.WithLabelValues(reason).Inc()
}

// Handler serves the /metrics endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

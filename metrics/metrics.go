// Package metrics exports router activity as Prometheus metrics.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bjaus/tgroute"
)

const namespace = "tgroute"

// Collector holds the router metrics. Wire it into a router with Options.
type Collector struct {
	dispatched *prometheus.CounterVec
	failed     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	unrouted   *prometheus.CounterVec
	webhook    *prometheus.CounterVec
}

// NewCollector creates the metrics and registers them with reg.
// A nil reg means prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		dispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handler_invocations_total",
				Help:      "Total number of handler invocations",
			},
			[]string{"category", "handler"},
		),
		failed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handler_failures_total",
				Help:      "Total number of handler invocations that returned an error",
			},
			[]string{"category", "handler"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_duration_seconds",
				Help:      "Handler execution time",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"category", "outcome"},
		),
		unrouted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unrouted_updates_total",
				Help:      "Total number of updates no handler fired for",
			},
			[]string{"category"},
		),
		webhook: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_requests_total",
				Help:      "Total number of webhook requests by response code",
			},
			[]string{"code"},
		),
	}
	for _, m := range []prometheus.Collector{c.dispatched, c.failed, c.duration, c.unrouted, c.webhook} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Options returns the router hooks that feed the collector.
func (c *Collector) Options() []tgroute.Option {
	return []tgroute.Option{
		tgroute.WithOnDispatch(func(_ context.Context, cat tgroute.Category, handler string) {
			c.dispatched.WithLabelValues(cat.String(), handler).Inc()
		}),
		tgroute.WithOnSuccess(func(_ context.Context, cat tgroute.Category, _ string, d time.Duration) {
			c.duration.WithLabelValues(cat.String(), "success").Observe(d.Seconds())
		}),
		tgroute.WithOnFailure(func(_ context.Context, cat tgroute.Category, handler string, _ error, d time.Duration) {
			c.failed.WithLabelValues(cat.String(), handler).Inc()
			c.duration.WithLabelValues(cat.String(), "failure").Observe(d.Seconds())
		}),
		tgroute.WithOnNoHandler(func(_ context.Context, cat tgroute.Category) {
			c.unrouted.WithLabelValues(cat.String()).Inc()
		}),
	}
}

// ObserveWebhook counts one webhook response.
func (c *Collector) ObserveWebhook(code int) {
	c.webhook.WithLabelValues(strconv.Itoa(code)).Inc()
}

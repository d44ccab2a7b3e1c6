package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry           *prometheus.Registry
	deliveriesTotal    *prometheus.CounterVec
	deliveryDuration   *prometheus.HistogramVec
	activeDeliveries   prometheus.Gauge
	verificationsTotal *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passportpix_worker_deliveries_total",
			Help: "Total delivery tasks by final status.",
		}, []string{"status"}),
		deliveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "passportpix_worker_delivery_duration_seconds",
			Help:    "End-to-end duration of each delivery task.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		activeDeliveries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "passportpix_worker_active_deliveries",
			Help: "Current number of in-flight delivery tasks.",
		}),
		verificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passportpix_worker_payment_verifications_total",
			Help: "Server-side payment re-verifications by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.deliveriesTotal,
		m.deliveryDuration,
		m.activeDeliveries,
		m.verificationsTotal,
	)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

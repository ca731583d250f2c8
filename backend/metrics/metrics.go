package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Requests           *prometheus.CounterVec
	LatencyMS          *prometheus.HistogramVec
	EnrollmentOutcomes *prometheus.CounterVec
	PaymentOutcomes    *prometheus.CounterVec
	PendingEnrollments prometheus.Gauge
}

// New builds collectors on a private registry so each app (and each test)
// owns its own set.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route", "method"}),
		EnrollmentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "enrollment",
			Name:      "initiations_total",
			Help:      "Enrollment initiations by outcome.",
		}, []string{"outcome"}),
		PaymentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "payment",
			Name:      "confirmations_total",
			Help:      "Payment confirmations by outcome.",
		}, []string{"outcome"}),
		PendingEnrollments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "enrollment",
			Name:      "pending",
			Help:      "Enrollments awaiting payment at the last report.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.Requests,
		m.LatencyMS,
		m.EnrollmentOutcomes,
		m.PaymentOutcomes,
		m.PendingEnrollments,
	)
	return m
}

func (m *Metrics) EnrollmentOutcome(outcome string) {
	m.EnrollmentOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PaymentOutcome(outcome string) {
	m.PaymentOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetPending(n int64) {
	m.PendingEnrollments.Set(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware counts requests per matched route.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fiberErr, ok := err.(*fiber.Error); ok {
			status = fiberErr.Code
		}
		route := c.Route().Path
		m.Requests.WithLabelValues(route, c.Method(), strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(route, c.Method()).Observe(float64(time.Since(start).Milliseconds()))
		return err
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported on /metrics.
type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	AuditRecorded *prometheus.CounterVec
	AuditQueue    prometheus.Gauge

	RateLimited *prometheus.CounterVec
	Orders      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Collectors that are
// already registered are reused so tests can build several instances.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuditRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "entries_total",
				Help:      "Audit entries by outcome (written, failed, dropped)",
			},
			[]string{"outcome"},
		),
		AuditQueue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "queue_size",
				Help:      "Audit entries waiting to be written",
			},
		),
		RateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),
		Orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "orders_total",
				Help:      "Orders placed, by whether a coupon was applied",
			},
			[]string{"coupon"},
		),
	}

	m.RequestCount = register(reg, m.RequestCount)
	m.RequestDuration = register(reg, m.RequestDuration)
	m.AuditRecorded = register(reg, m.AuditRecorded)
	m.AuditQueue = register(reg, m.AuditQueue)
	m.RateLimited = register(reg, m.RateLimited)
	m.Orders = register(reg, m.Orders)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			panic(err)
		}
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
		panic(err)
	}
	return c
}

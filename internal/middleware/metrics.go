package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "healthdesk"

// Metrics holds the Prometheus collectors of the API
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	LoginAttemptsTotal  *prometheus.CounterVec
	EnrollmentsTotal    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "login_attempts_total",
				Help:      "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		EnrollmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "enrollment_attempts_total",
				Help:      "Enrollment attempts by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.EnrollmentsTotal,
	)
	return m
}

// LoginAttempt counts one login by outcome
func (m *Metrics) LoginAttempt(outcome string) {
	m.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// EnrollmentAttempt counts one enroll call by outcome
func (m *Metrics) EnrollmentAttempt(outcome string) {
	m.EnrollmentsTotal.WithLabelValues(outcome).Inc()
}

// RegisterPoolGauges exposes connection pool statistics, sampled on scrape
func (m *Metrics) RegisterPoolGauges(stats func() *pgxpool.Stat) {
	gauge := func(name, help string, value func(*pgxpool.Stat) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(stats()) })
	}

	m.registry.MustRegister(
		gauge("connections_total", "Connections currently in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
		gauge("connections_acquired", "Connections currently checked out",
			func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
		gauge("connections_idle", "Idle connections",
			func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
		gauge("connections_max", "Maximum pool size",
			func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
	)
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMetrics instruments requests, labelled by chi route pattern so path
// parameters don't explode cardinality.
func HTTPMetrics(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}

			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

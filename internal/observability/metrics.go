package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts HTTP requests by route, method, and status label.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	// HTTPRequestDuration records request durations by route and method.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"route", "method"},
	)

	// PowChallengesIssuedTotal counts PoW challenges issued.
	PowChallengesIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pow_challenges_issued_total",
		Help: "Total number of PoW challenges issued",
	})
	// PowSolutionsVerifiedTotal counts PoW solution submissions by result.
	PowSolutionsVerifiedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pow_solutions_verified_total",
			Help: "Total number of PoW solution submissions by result",
		},
		[]string{"result"},
	)
	// AuthSigninsTotal counts sign-in attempts by result.
	AuthSigninsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_signins_total",
			Help: "Total number of sign-in attempts by result",
		},
		[]string{"result"},
	)
	// AuthLockoutsTotal counts accounts transitioning into lockout.
	AuthLockoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_lockouts_total",
		Help: "Total number of accounts locked out due to repeated failed sign-ins",
	})
	// AuthSessionsActive is a gauge approximating currently live sessions,
	// incremented on sign-in and decremented on sign-out/expiry discovery.
	AuthSessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auth_sessions_active",
		Help: "Approximate number of currently active auth sessions",
	})
)

// InitMetrics registers all Prometheus metrics with the default registry.
func InitMetrics() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		PowChallengesIssuedTotal,
		PowSolutionsVerifiedTotal,
		AuthSigninsTotal,
		AuthLockoutsTotal,
		AuthSessionsActive,
	)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamspace_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "teamspace_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	teamOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamspace_team_operations_total",
		Help: "Membership operations by operation and outcome kind",
	}, []string{"operation", "result"})

	dialogValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamspace_dialog_validation_failures_total",
		Help: "Rejected dialog configurations by reason",
	}, []string{"reason"})

	dialogDefaultsReverted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teamspace_dialog_reverted_fields_total",
		Help: "Supplied but empty dialog fields replaced by their default",
	})

	tenantModelSeeds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamspace_tenant_model_seeds_total",
		Help: "Tenant model rows seeded on team creation by result",
	}, []string{"result"})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamspace_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"backend"})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "teamspace_circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
	}, []string{"name"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveTeamOperation counts a membership operation. result is "ok" or an
// error kind.
func ObserveTeamOperation(operation, result string) {
	teamOperations.WithLabelValues(operation, result).Inc()
}

// ObserveDialogValidationFailure counts a rejected dialog.
func ObserveDialogValidationFailure(reason string) {
	dialogValidationFailures.WithLabelValues(reason).Inc()
}

// ObserveDialogReverted counts fields that fell back to defaults.
func ObserveDialogReverted(n int) {
	if n > 0 {
		dialogDefaultsReverted.Add(float64(n))
	}
}

// ObserveTenantModelSeed counts one seeded tenant model row.
func ObserveTenantModelSeed(result string) {
	tenantModelSeeds.WithLabelValues(result).Inc()
}

// ObserveRateLimited counts a rejected request.
func ObserveRateLimited(backend string) {
	rateLimited.WithLabelValues(backend).Inc()
}

// SetBreakerState records the state of a named circuit breaker.
func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}

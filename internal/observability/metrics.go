package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GateDecisionsTotal counts route gate outcomes by gate mode and outcome.
	GateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docdesk_gate_decisions_total",
			Help: "Total number of route gate decisions",
		},
		[]string{"mode", "outcome"},
	)

	// GateDeniedTotal tracks denials per route pattern for alerting.
	GateDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docdesk_gate_denied_total",
			Help: "Total number of route gate denials",
		},
		[]string{"route", "outcome"},
	)

	// LoginAttemptsTotal counts login attempts by result
	// ("success", "invalid_credentials", "inactive", "error").
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docdesk_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// RateLimitedTotal counts requests rejected by a named rate limiter.
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docdesk_rate_limited_total",
			Help: "Total number of requests rejected by rate limiting",
		},
		[]string{"limiter"},
	)

	// SessionDegradedTotal counts sessions resolved without user info.
	SessionDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docdesk_session_degraded_total",
			Help: "Total number of authenticated sessions resolved without user info",
		},
		[]string{"reason"},
	)

	// SessionRevokedTotal counts valid tokens whose account was deleted or may no longer sign in.
	SessionRevokedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docdesk_session_revoked_total",
			Help: "Total number of session tokens rejected because the account is gone or inactive",
		},
		[]string{"reason"},
	)

	// UserCacheHitsTotal and UserCacheMissesTotal measure the session user cache.
	UserCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docdesk_user_cache_hits_total",
			Help: "Total number of user cache hits",
		},
	)
	UserCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docdesk_user_cache_misses_total",
			Help: "Total number of user cache misses",
		},
	)
	UserCacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docdesk_user_cache_evictions_total",
			Help: "Total number of user cache evictions",
		},
	)
)

// RecordGateDecision records one gate outcome. route is the chi route pattern.
func RecordGateDecision(mode, outcome, route string) {
	GateDecisionsTotal.WithLabelValues(mode, outcome).Inc()
	if outcome != "allowed" && outcome != "pending" {
		GateDeniedTotal.WithLabelValues(route, outcome).Inc()
	}
}

// RecordLogin records a login attempt result.
func RecordLogin(result string) {
	LoginAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordSessionDegraded records a session that lost its user info.
func RecordSessionDegraded(reason string) {
	SessionDegradedTotal.WithLabelValues(reason).Inc()
}

// RecordSessionRevoked records a token ignored because its account is deleted or inactive.
func RecordSessionRevoked(reason string) {
	SessionRevokedTotal.WithLabelValues(reason).Inc()
}

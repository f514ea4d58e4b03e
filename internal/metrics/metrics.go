// Package metrics provides Prometheus metrics for Bullfrog.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "bullfrog"
)

// Alert engine metrics
var (
	// ReportsTotal counts engine reports by condition type and outcome.
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "reports_total",
			Help:      "Total condition reports by outcome",
		},
		[]string{"condition_type", "outcome"}, // sent, suppressed
	)

	// DeliveryFailuresTotal counts notifications the transport rejected.
	DeliveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "delivery_failures_total",
			Help:      "Total notifications that failed delivery",
		},
		[]string{"condition_type"},
	)

	// StoreErrorsTotal counts alert store failures seen by the engine.
	StoreErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "store_errors_total",
			Help:      "Total alert store failures",
		},
	)
)

// Webex metrics
var (
	// TokenRefreshesTotal counts access token refresh attempts.
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webex",
			Name:      "token_refreshes_total",
			Help:      "Total access token refresh attempts",
		},
		[]string{"result"}, // success, failure
	)

	// RefreshTokenRotationsTotal counts refreshes that returned a new refresh token.
	RefreshTokenRotationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webex",
			Name:      "refresh_token_rotations_total",
			Help:      "Total refresh responses carrying a rotated refresh token",
		},
	)
)

// License metrics
var (
	// SnapshotsRecordedTotal counts license snapshot rows written by the collector.
	SnapshotsRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "licenses",
			Name:      "snapshots_recorded_total",
			Help:      "Total license snapshot rows recorded",
		},
	)

	// Overages tracks licenses over entitlement in the latest evaluated batch.
	Overages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "licenses",
			Name:      "overages",
			Help:      "Licenses consuming more units than entitled in the latest snapshot",
		},
	)

	// JobRunsTotal counts scheduled job runs by job and result.
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total scheduled job runs",
		},
		[]string{"job", "result"}, // success, failure
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts API requests by route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// Info metric
var (
	// BuildInfo exposes build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APICalls tracks calls to the racing API per endpoint.
	APICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "racecollect_api_calls_total",
			Help: "Total number of racing API calls",
		},
		[]string{"call"},
	)

	// APIErrors tracks failed API calls per endpoint and error type.
	APIErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "racecollect_api_errors_total",
			Help: "Total number of failed racing API calls",
		},
		[]string{"call", "error_type"},
	)

	// RetryAttempts tracks attempts per region and operation, successful ones
	// included.
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "racecollect_retry_attempts_total",
			Help: "Total number of attempts made under the retry engine",
		},
		[]string{"region", "op"},
	)

	// RegionsFailed tracks budget-exhausted regions per job kind.
	RegionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "racecollect_regions_failed_total",
			Help: "Total number of regions that exhausted their retry budget",
		},
		[]string{"job"},
	)

	// CoveragePct is the BSP coverage of the most recent results run.
	CoveragePct = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "racecollect_bsp_coverage_pct",
			Help: "BSP rows fetched as a percentage of runs collected",
		},
		[]string{"job"},
	)

	// JobDuration tracks wall-clock duration per job kind and outcome.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "racecollect_job_duration_seconds",
			Help:    "Job phase duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"job", "status"},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal tracks attempted operations by outcome
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placewatch_operations_total",
			Help: "Total number of attempted target operations",
		},
		[]string{"operation", "outcome"},
	)

	// ProxyErrorsTotal tracks identity errors by fault kind
	ProxyErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placewatch_proxy_errors_total",
			Help: "Total number of errors reported against proxy identities",
		},
		[]string{"kind"},
	)

	// IdentitiesDead tracks identities marked dead this run
	IdentitiesDead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placewatch_identities_dead_total",
			Help: "Total number of proxy identities marked dead",
		},
	)

	// RotationsTotal tracks identity rotations by trigger
	RotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placewatch_rotations_total",
			Help: "Total number of identity rotations",
		},
		[]string{"reason"},
	)

	// RecordsAdmitted tracks records passed by the deduplicator
	RecordsAdmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placewatch_records_admitted_total",
			Help: "Total number of records admitted as new entities",
		},
	)

	// RecordsRejected tracks records rejected as duplicates
	RecordsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placewatch_records_rejected_total",
			Help: "Total number of records rejected as duplicates",
		},
	)

	// EmailsExtracted tracks email candidates surviving the blacklist
	EmailsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placewatch_emails_extracted_total",
			Help: "Total number of email addresses extracted",
		},
	)

	// OperationLatency tracks end-to-end operation latency
	OperationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placewatch_operation_latency_seconds",
			Help:    "Target operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

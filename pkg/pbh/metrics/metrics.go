// Package metrics holds the Prometheus collectors shared across the
// PBH validation, commit, and build paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ValidationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pbh",
		Name:      "validation_total",
		Help:      "PBH transaction validation outcomes by result.",
	}, []string{"result"})

	ValidationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pbh",
		Name:      "validation_duration_seconds",
		Help:      "Time spent validating a PBH transaction, including proof verification.",
		Buckets:   prometheus.DefBuckets,
	})

	NullifiersCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pbh",
		Name:      "nullifiers_committed_total",
		Help:      "Nullifiers moved from validated to executed on block canonicalization.",
	})

	NullifiersReverted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pbh",
		Name:      "nullifiers_reverted_total",
		Help:      "Nullifiers moved back out of executed due to a reorg.",
	})

	PayloadGasUsed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pbh",
		Name:      "payload_gas_used",
		Help:      "Gas consumed by the most recently built payload, by build phase.",
	}, []string{"phase"})

	StampFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pbh",
		Name:      "stamp_failures_total",
		Help:      "Block stamp signing or submission failures.",
	})
)

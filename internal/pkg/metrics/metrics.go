// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestedMessages counts scanned messages by classification outcome
	// (saved, duplicate, deleted, skipped, unsupported, errored).
	IngestedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "media_index",
		Subsystem: "ingest",
		Name:      "messages_total",
		Help:      "Messages processed by ingestion runs, by outcome.",
	}, []string{"outcome"})

	// IngestRuns counts finished ingestion runs by final status.
	IngestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "media_index",
		Subsystem: "ingest",
		Name:      "runs_total",
		Help:      "Ingestion runs finished, by status.",
	}, []string{"status"})

	// SearchesServed counts search requests answered.
	SearchesServed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "media_index",
		Subsystem: "search",
		Name:      "requests_total",
		Help:      "Search requests served.",
	})

	// PartitionRecords tracks the record count per partition as of the last
	// stats computation.
	PartitionRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "media_index",
		Subsystem: "store",
		Name:      "partition_records",
		Help:      "Records per storage partition.",
	}, []string{"partition"})
)

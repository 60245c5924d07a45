// Package telemetry exposes Prometheus counters and gauges for the
// collector and ingestor pipelines, and the HTTP handler that serves
// them.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RecordsCollected counts records persisted to the record store, by
	// source class (e.g. "user", "microsoft.compute/virtualmachines").
	RecordsCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stormspotter",
		Subsystem: "collector",
		Name:      "records_total",
		Help:      "Records appended to the record store, by class.",
	}, []string{"class"})

	// APIRequestsTotal counts outbound HTTP requests to AAD/ARM/RBAC
	// APIs, by target and outcome.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stormspotter",
		Subsystem: "collector",
		Name:      "api_requests_total",
		Help:      "Outbound API requests, by target and outcome.",
	}, []string{"target", "outcome"})

	// APIVersionRetries counts api-version negotiation retries per ARM
	// resource type.
	APIVersionRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stormspotter",
		Subsystem: "collector",
		Name:      "api_version_retries_total",
		Help:      "Api-version negotiation retries, by resource type.",
	}, []string{"resource_type"})

	// TokenGateWaitSeconds observes how long callers block waiting for
	// a token gate to open.
	TokenGateWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stormspotter",
		Subsystem: "collector",
		Name:      "token_gate_wait_seconds",
		Help:      "Time callers spent waiting on a token gate.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"audience"})

	// NodesWritten counts nodes merged into the graph store, by family
	// label.
	NodesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stormspotter",
		Subsystem: "ingestor",
		Name:      "nodes_written_total",
		Help:      "Nodes merged into the graph store, by family label.",
	}, []string{"family"})

	// RelationshipsWritten counts edges merged into the graph store, by
	// relation name.
	RelationshipsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stormspotter",
		Subsystem: "ingestor",
		Name:      "relationships_written_total",
		Help:      "Relationships merged into the graph store, by relation name.",
	}, []string{"relation"})

	// GraphWriteErrors counts dropped graph statements.
	GraphWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stormspotter",
		Subsystem: "ingestor",
		Name:      "graph_write_errors_total",
		Help:      "Graph statements dropped after a write error.",
	})

	// GraphQueueDepth reports the current depth of the graph writer's
	// submission queue.
	GraphQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stormspotter",
		Subsystem: "ingestor",
		Name:      "graph_queue_depth",
		Help:      "Pending items in the graph writer's submission queue.",
	})
)

// Handler returns the HTTP handler serving the default Prometheus
// registry in text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

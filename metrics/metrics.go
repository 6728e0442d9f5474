// Package metrics exposes Prometheus instrumentation for the sparse-vector
// index: promauto-registered counter vecs at package scope.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Inserts counts calls to Index.Insert, labeled by outcome ("ok" or
// "error").
var Inserts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sparseann_inserts_total",
		Help: "Inserts into the sparse dimension tree, by outcome",
	},
	[]string{"outcome"},
)

// Lookups counts calls to Index.Lookup, labeled by outcome ("hit" or
// "miss").
var Lookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sparseann_lookups_total",
		Help: "Lookups against the sparse dimension tree, by outcome",
	},
	[]string{"outcome"},
)

// NodesCreated counts implicit tree nodes materialized during traversal.
var NodesCreated = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "sparseann_nodes_created_total",
		Help: "Implicit tree nodes created during insert traversal",
	},
)

// FilterVerificationDivergence counts lookups where the acceleration-filter
// answer disagreed with the brute-force posting-bucket scan (expected
// occasionally, since the filters are approximate).
var FilterVerificationDivergence = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "sparseann_lookup_filter_divergence_total",
		Help: "Lookups where the filter path and the posting-bucket scan disagreed",
	},
)

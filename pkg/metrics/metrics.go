// Package metrics provides Prometheus metrics for the crosswalk service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionsTotal tracks resolved records by source, method and status
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dfs",
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of resolved source records by source, method and status",
		},
		[]string{"source", "method", "status"},
	)

	// SlateResolutionDuration tracks full slate resolution duration in seconds
	SlateResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dfs",
			Subsystem: "resolver",
			Name:      "slate_duration_seconds",
			Help:      "Duration of slate resolutions in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"source"},
	)

	// SlateMatchRate tracks the match rate of the most recent slate per source
	SlateMatchRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dfs",
			Subsystem: "resolver",
			Name:      "slate_match_rate",
			Help:      "Match rate percentage of the most recently resolved slate per source",
		},
		[]string{"source"},
	)

	// StoreConflictsTotal tracks refused external id writes
	StoreConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dfs",
			Subsystem: "crosswalk",
			Name:      "conflicts_total",
			Help:      "Total number of external id writes refused by conflict protection",
		},
		[]string{"source"},
	)

	// AliasesLearnedTotal tracks aliases written back by fuzzy matches
	AliasesLearnedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dfs",
			Subsystem: "crosswalk",
			Name:      "aliases_learned_total",
			Help:      "Total number of aliases learned automatically from fuzzy matches",
		},
		[]string{"source"},
	)

	// AliasCacheLookupsTotal tracks alias cache hits and misses
	AliasCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dfs",
			Subsystem: "cache",
			Name:      "alias_lookups_total",
			Help:      "Total number of alias cache lookups by result",
		},
		[]string{"result"},
	)

	// SuggestionsCreatedTotal tracks alias suggestions queued for review
	SuggestionsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dfs",
			Subsystem: "suggestions",
			Name:      "created_total",
			Help:      "Total number of alias suggestions queued for review",
		},
		[]string{"source"},
	)

	// KafkaMessagesConsumed tracks slate messages consumed from Kafka
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dfs",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of messages consumed from Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaMessagesPublished tracks event messages published to Kafka
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dfs",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

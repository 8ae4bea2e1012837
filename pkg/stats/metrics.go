package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActorRowsTotal counts visible rows an actor sent downstream.
	ActorRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamsql_actor_rows_total",
			Help: "Total number of rows emitted by an actor",
		},
		[]string{"actor"},
	)
	// ActorBarriersTotal counts barriers an actor forwarded.
	ActorBarriersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamsql_actor_barriers_total",
			Help: "Total number of barriers forwarded by an actor",
		},
		[]string{"actor"},
	)
	// EpochsCompletedTotal counts epochs collected from every actor.
	EpochsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamsql_epochs_completed_total",
			Help: "Total number of epochs collected by the barrier manager",
		},
	)
	// EpochDuration is the time from barrier injection to collection.
	EpochDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "streamsql_epoch_duration_seconds",
			Help:    "Time between barrier injection and epoch completion",
			Buckets: prometheus.DefBuckets,
		},
	)
	// StateFlushEntries counts the entries written per state store ingest.
	StateFlushEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamsql_state_flush_entries_total",
			Help: "Total number of key value entries ingested into the state store",
		},
		[]string{"store"},
	)
)

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_messages_received_total",
			Help: "Inbound text messages accepted by the reply pipeline",
		},
	)

	MoodTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_mood_resolved_total",
			Help: "Moods resolved by the emotion engine",
		},
		[]string{"mood"},
	)

	MemoriesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_memories_stored_total",
			Help: "Memories stored, by importance",
		},
		[]string{"importance"},
	)

	MemoriesPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_memories_pruned_total",
			Help: "Low-importance memories evicted by the retention cap",
		},
	)

	Generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_generations_total",
			Help: "Completion calls, by kind (reply, proactive) and outcome (ok, fallback)",
		},
		[]string{"kind", "outcome"},
	)

	GenerationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "companion_generation_latency_seconds",
			Help: "Completion call latency in seconds",
		},
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_deliveries_total",
			Help: "Outbound deliveries, by kind and status",
		},
		[]string{"kind", "status"},
	)

	ReplyDelay = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "companion_reply_delay_seconds",
			Help:    "Synthetic typing delay applied before replies",
			Buckets: prometheus.LinearBuckets(1, 1, 12),
		},
	)

	SchedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_scheduler_ticks_total",
			Help: "Scheduler ticks, by outcome",
		},
		[]string{"outcome"},
	)

	Recoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_energy_recoveries_total",
			Help: "Overnight recovery passes applied",
		},
	)

	SchedulerLeader = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "companion_scheduler_leader",
			Help: "1 if this process holds the scheduler lock",
		},
	)
)

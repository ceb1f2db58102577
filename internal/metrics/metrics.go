// Package metrics exposes the prometheus collectors for the publish pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crosspost"

var (
	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_passes_total",
			Help:      "Publish passes by outcome",
		},
		[]string{"outcome"}, // "completed", "skipped", "error"
	)

	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_pass_duration_seconds",
			Help:      "Duration of a publish pass in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	PostsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_dispatched_total",
			Help:      "Dispatched posts by final status",
		},
		[]string{"status"},
	)

	ClaimsLost = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_claims_lost_total",
			Help:      "Claims that found the post no longer pending",
		},
	)

	PlatformAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "platform_attempts_total",
			Help:      "Per-platform publish attempts by result",
		},
		[]string{"platform", "result"},
	)

	PlatformDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "platform_publish_duration_seconds",
			Help:      "Duration of per-platform publish attempts in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	StaleProcessing = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stale_processing_posts",
			Help:      "Posts stuck in processing longer than the stale threshold",
		},
	)

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Background job runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)
)

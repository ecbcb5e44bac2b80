package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "gigstream"

var (
	WebhooksReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_received_total",
			Help:      "Total task-completed webhooks received, labeled by ingress outcome.",
		},
		[]string{"outcome"},
	)

	ClaimsVerifiedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_verified_total",
			Help:      "Total verification verdicts returned by the oracle.",
		},
		[]string{"verdict"},
	)

	PaymentAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_attempts_total",
			Help:      "Total payment executor calls, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	StageRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_retries_total",
			Help:      "Total backoff retries, labeled by pipeline stage.",
		},
		[]string{"stage"},
	)

	DeadLetteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dead_lettered_total",
			Help:      "Total cycles that exhausted retries or failed permanently, labeled by stage.",
		},
		[]string{"stage"},
	)

	ReplaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replays_total",
			Help:      "Total dead-letter replays, labeled by terminal outcome.",
		},
		[]string{"outcome"},
	)

	CycleLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_latency_seconds",
			Help:      "End-to-end latency of one cycle from received to terminal state.",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"status"},
	)

	BackgroundQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "background_queue_depth",
			Help:      "Cycles waiting in the bounded background queue.",
		},
	)

	RateLimitHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests refused by the per-platform token bucket.",
		},
		[]string{"scope"},
	)
)

func init() {
	prometheus.MustRegister(
		WebhooksReceivedTotal,
		ClaimsVerifiedTotal,
		PaymentAttemptsTotal,
		StageRetriesTotal,
		DeadLetteredTotal,
		ReplaysTotal,
		CycleLatencySeconds,
		BackgroundQueueDepth,
		RateLimitHitsTotal,
	)
}

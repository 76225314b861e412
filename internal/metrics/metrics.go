package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "check_review"

// Registry is the Prometheus registry served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// SubmissionsTotal counts batch submissions by outcome and whether they were forced.
	SubmissionsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Batch submissions by outcome",
		},
		[]string{"outcome", "forced"},
	)

	// ConfirmationsTotal counts mismatch confirmations by decision (requested, accepted, declined, resolved).
	ConfirmationsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mismatch_confirmations_total",
			Help:      "Mismatch confirmation prompts by decision",
		},
		[]string{"decision"},
	)

	AutosavesTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosaves_total",
			Help:      "Field autosaves by result",
		},
		[]string{"result"},
	)

	ActiveSessions = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Review sessions currently open",
		},
	)

	UpstreamRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of calls to the check-processing service",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

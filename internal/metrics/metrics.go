package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// VettingRuns counts completed vetting runs by outcome (clean, infected,
	// plagiarism_rejected, failed).
	VettingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vetting_runs_total",
			Help: "Total number of vetting pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	// VettingDuration measures the full pipeline duration.
	VettingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vetting_duration_seconds",
			Help:    "Vetting pipeline duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// ScanPollAttempts measures how many report polls a scan needed.
	ScanPollAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scan_poll_attempts",
			Help:    "Number of report polls per malware scan",
			Buckets: prometheus.LinearBuckets(1, 1, 12),
		},
	)

	// PlagiarismScores tracks the distribution of computed scores.
	PlagiarismScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plagiarism_scores",
			Help:    "Distribution of computed plagiarism scores (0-100)",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)

// InitPrometheus registers all application metrics.
func InitPrometheus() {
	prometheus.MustRegister(VettingRuns)
	prometheus.MustRegister(VettingDuration)
	prometheus.MustRegister(ScanPollAttempts)
	prometheus.MustRegister(PlagiarismScores)
}

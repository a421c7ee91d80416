package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Collector metrics
	costRecordsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spendguard",
			Subsystem: "collector",
			Name:      "cost_records_total",
			Help:      "Total number of cost records collected",
		},
		[]string{"status"},
	)

	findingsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spendguard",
			Subsystem: "collector",
			Name:      "findings_total",
			Help:      "Total number of security findings collected",
		},
		[]string{"provider", "status"},
	)

	// Correlation metrics
	anomaliesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spendguard",
			Subsystem: "correlation",
			Name:      "anomalies_total",
			Help:      "Total number of cost anomalies detected",
		},
	)

	candidatesAssembled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spendguard",
			Subsystem: "correlation",
			Name:      "candidates_total",
			Help:      "Total number of correlation candidates with matched findings",
		},
	)

	alertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spendguard",
			Subsystem: "correlation",
			Name:      "alerts_total",
			Help:      "Total number of alerts emitted, by matched rule",
		},
		[]string{"rule"},
	)

	alertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spendguard",
			Subsystem: "correlation",
			Name:      "alerts_suppressed_total",
			Help:      "Total number of alerts removed by suppression rules",
		},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "spendguard",
			Subsystem: "correlation",
			Name:      "run_duration_seconds",
			Help:      "Duration of a full correlation run in seconds",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		},
	)
)

// RecordCostCollection records collected/skipped cost record counts
func RecordCostCollection(collected, skipped int) {
	costRecordsCollected.WithLabelValues("collected").Add(float64(collected))
	costRecordsCollected.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordFindingCollection records collected/skipped finding counts per provider
func RecordFindingCollection(provider string, collected, skipped int) {
	findingsCollected.WithLabelValues(provider, "collected").Add(float64(collected))
	findingsCollected.WithLabelValues(provider, "skipped").Add(float64(skipped))
}

// RecordAnomalies records detected anomaly count
func RecordAnomalies(n int) {
	anomaliesDetected.Add(float64(n))
}

// RecordCandidates records assembled candidate count
func RecordCandidates(n int) {
	candidatesAssembled.Add(float64(n))
}

// RecordAlert records an emitted alert with its matched rules
func RecordAlert(rules []string) {
	for _, rule := range rules {
		alertsEmitted.WithLabelValues(rule).Inc()
	}
}

// RecordSuppressed records suppressed alert count
func RecordSuppressed(n int) {
	alertsSuppressed.Add(float64(n))
}

// RecordRunDuration records the duration of a full correlation run
func RecordRunDuration(d time.Duration) {
	runDuration.Observe(d.Seconds())
}

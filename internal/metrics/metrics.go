package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels correlation runs that loaded every report.
	OutcomeSuccess = "success"
	// OutcomeDegraded labels runs where at least one report failed to load.
	OutcomeDegraded = "degraded"
)

var (
	correlationRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sochub",
			Name:      "correlation_runs_total",
			Help:      "Total number of correlation runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	correlationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sochub",
			Name:      "correlation_seconds",
			Help:      "Correlation latency in seconds, including report loading.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	correlatedIncidents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sochub",
			Name:      "correlated_incidents",
			Help:      "Number of unified incidents produced by the last correlation run.",
		},
	)

	lifecycleUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sochub",
			Name:      "lifecycle_updates_total",
			Help:      "Total number of incident lifecycle updates, partitioned by resulting status.",
		},
		[]string{"status"},
	)
)

// Collectors returns every sochub collector.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		correlationRunsTotal,
		correlationDurationSeconds,
		correlatedIncidents,
		lifecycleUpdatesTotal,
	}
}

// Register attaches sochub collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	for _, collector := range Collectors() {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveCorrelation records a correlation run duration, outcome and result size.
func ObserveCorrelation(duration time.Duration, outcome string, incidents int) {
	label := outcome
	if label != OutcomeDegraded {
		label = OutcomeSuccess
	}
	correlationRunsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	correlationDurationSeconds.Observe(duration.Seconds())
	correlatedIncidents.Set(float64(incidents))
}

// ObserveLifecycleUpdate counts a lifecycle update by its resulting status.
// Unknown labels are folded into "OTHER" to bound cardinality.
func ObserveLifecycleUpdate(status string) {
	label := "OTHER"
	switch status {
	case "NEW", "TRIAGED", "CONTAINED", "ERADICATED", "CLOSED":
		label = status
	}
	lifecycleUpdatesTotal.WithLabelValues(label).Inc()
}

// WriteTextfile writes the sochub collectors to path in the node-exporter
// textfile format. A fresh registry keeps Go runtime collectors out of the file.
func WriteTextfile(path string) error {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, reg)
}

package extract

import "github.com/prometheus/client_golang/prometheus"

var extractions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cv_file_extractions_total",
		Help: "Uploaded files processed, by extraction path and outcome.",
	},
	[]string{"kind", "outcome"},
)

// RegisterMetrics exposes the extraction counters on reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(extractions)
}

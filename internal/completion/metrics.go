package completion

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fedutinova/skeo/internal/common"
)

var completionDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "cv_completion_duration_seconds",
		Help:    "Latency of completion backend calls.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	},
	[]string{"backend", "outcome"},
)

// RegisterMetrics exposes the completion histogram on reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(completionDuration)
}

type instrumented struct {
	Provider
}

// Instrument wraps p so every Complete call is timed.
func Instrument(p Provider) Provider {
	return instrumented{Provider: p}
}

func (i instrumented) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := i.Provider.Complete(ctx, prompt)

	completionDuration.WithLabelValues(i.Name(), outcome(text, err)).Observe(time.Since(start).Seconds())
	return text, err
}

// outcome separates backend rejections from transport failures.
func outcome(text string, err error) string {
	switch {
	case common.IsBackend(err):
		return "backend_error"
	case err != nil:
		return "error"
	case text == NoResponse:
		return "empty"
	default:
		return "ok"
	}
}

package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bdougie/videojudge/internal/llm"
)

// Registry holds every videojudge collector. It is separate from the default
// registry so the textfile only carries our series.
var Registry = prometheus.NewRegistry()

var (
	ModelCallsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "videojudge_model_calls_total",
		Help: "Total number of model calls, by stage and outcome",
	}, []string{"stage", "outcome"})

	ModelCallDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videojudge_model_call_duration_seconds",
		Help:    "Duration of model calls",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	FramesJudgedTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "videojudge_frames_judged_total",
		Help: "Total number of frames judged, by final label",
	}, []string{"label"})

	ReflectionFallbackTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "videojudge_reflection_fallback_total",
		Help: "Frames where the reflection lost its confidence and the initial judgment was kept",
	})

	SummaryPasses = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "videojudge_summary_passes",
		Help: "Number of summarization passes in the last run",
	})

	SummaryChunksTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "videojudge_summary_chunks_total",
		Help: "Total number of chunks sent for summarization",
	})
)

// Instrument wraps c so that every call is counted and timed under stage.
func Instrument(c llm.Client, stage string) llm.Client {
	return llm.ClientFunc(func(ctx context.Context, model string, messages []llm.Message) (string, error) {
		start := time.Now()
		reply, err := c.Complete(ctx, model, messages)
		ModelCallDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		ModelCallsTotal.WithLabelValues(stage, outcome).Inc()
		return reply, err
	})
}

// WriteTextfile dumps the registry in the node exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

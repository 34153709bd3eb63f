package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	intentClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_intent_classifications_total",
			Help: "Total number of classified chat messages by routed intent.",
		},
		[]string{"intent"},
	)
	visualizationIntentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_visualization_intent_total",
			Help: "Total number of visualization intent decisions.",
		},
		[]string{"decision"},
	)
	queryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_query_attempts_total",
			Help: "Total number of SQL execution attempts by attempt number and outcome.",
		},
		[]string{"attempt", "outcome"},
	)
	queryRepairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_query_repairs_total",
			Help: "Total number of SQL repair rounds by outcome.",
		},
		[]string{"outcome"},
	)
	queryPipelineLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querychat_query_pipeline_latency_ms",
			Help:    "End to end latency of the generate, execute and repair pipeline in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		},
	)
	chartsRenderedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_charts_rendered_total",
			Help: "Total number of chart render outcomes by chart kind.",
		},
		[]string{"kind", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		intentClassificationsTotal,
		visualizationIntentTotal,
		queryAttemptsTotal,
		queryRepairsTotal,
		queryPipelineLatencyMs,
		chartsRenderedTotal,
	)
}

func ObserveIntent(intent string) {
	intentClassificationsTotal.WithLabelValues(intent).Inc()
}

func ObserveVisualizationIntent(wanted bool) {
	decision := "no"
	if wanted {
		decision = "yes"
	}
	visualizationIntentTotal.WithLabelValues(decision).Inc()
}

func ObserveQueryAttempt(attempt int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	queryAttemptsTotal.WithLabelValues(strconv.Itoa(attempt), outcome).Inc()
}

// ObserveQueryRepair records one repair round. outcome is one of
// "recovered", "failed" or "empty".
func ObserveQueryRepair(outcome string) {
	queryRepairsTotal.WithLabelValues(outcome).Inc()
}

func ObserveQueryPipeline(elapsed time.Duration) {
	queryPipelineLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveChartRender(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	chartsRenderedTotal.WithLabelValues(kind, status).Inc()
}

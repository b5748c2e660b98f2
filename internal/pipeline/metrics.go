package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysesTotal counts completed analyses.
	// Labels: source (llm, rules, llm_empty)
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carelog",
			Name:      "analyses_total",
			Help:      "Total number of transcript analyses by extraction source",
		},
		[]string{"source"},
	)

	// LLMFallbacksTotal counts model extractions that fell back to rules.
	// Labels: reason (call_error, parse_error, empty)
	LLMFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carelog",
			Name:      "llm_fallbacks_total",
			Help:      "Total number of model extractions that fell back to rules",
		},
		[]string{"reason"},
	)

	// PolicyTriggersTotal counts fired policy triggers.
	// Labels: trigger (contact_gp, call_999)
	PolicyTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carelog",
			Name:      "policy_triggers_total",
			Help:      "Total number of policy triggers that appended an advisory action",
		},
		[]string{"trigger"},
	)

	// AnalysisDuration tracks end-to-end analysis time.
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "carelog",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of transcript analyses in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_analyses_generated_total",
			Help: "Total number of market analyses derived from provider data",
		},
		[]string{"timeframe"},
	)

	AnalysisCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "market_analysis_cache_hits_total",
			Help: "Total number of market analysis cache hits",
		},
	)

	AnalysisCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "market_analysis_cache_misses_total",
			Help: "Total number of market analysis cache misses",
		},
	)

	IntentsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_intents_classified_total",
			Help: "Total number of utterances classified by intent and strategy",
		},
		[]string{"intent", "strategy"},
	)

	ClassifierFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_classifier_fallbacks_total",
			Help: "Total number of generative backend failures recovered into fallback responses",
		},
	)

	RateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genai_rate_limit_waits_total",
			Help: "Total number of generative calls delayed by the rate limiter",
		},
	)

	ChatTurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chat_turn_duration_seconds",
			Help: "Duration of chat turn processing in seconds",
		},
		[]string{"intent"},
	)
)

// Package metrics exposes Prometheus metrics for the voice pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice pipeline.
type Metrics struct {
	// Pipeline metrics
	RequestsTotal    *prometheus.CounterVec // by outcome
	StageDuration    *prometheus.HistogramVec
	ActiveRequests   prometheus.Gauge
	EmptyTranscripts prometheus.Counter

	// Reply metrics
	ReplyFallbacks prometheus.Counter

	// Synthesis metrics
	SynthesisAbsent prometheus.Counter

	// Store metrics
	ActiveConversations prometheus.Gauge
	SessionsSwept       prometheus.Counter
	CachedAudioSwept    prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lingualive_pipeline_requests_total",
			Help: "Total number of pipeline runs by outcome",
		}, []string{"outcome"}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lingualive_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		ActiveRequests: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lingualive_active_requests",
			Help: "Number of pipeline runs in flight",
		}),
		EmptyTranscripts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lingualive_empty_transcripts_total",
			Help: "Total number of uploads with no detected speech",
		}),
		ReplyFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lingualive_reply_fallbacks_total",
			Help: "Total number of replies served from fallback text",
		}),
		SynthesisAbsent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lingualive_synthesis_absent_total",
			Help: "Total number of replies returned without audio",
		}),
		ActiveConversations: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lingualive_active_conversations",
			Help: "Number of live conversation sessions",
		}),
		SessionsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lingualive_sessions_swept_total",
			Help: "Total number of conversation sessions removed by TTL sweep",
		}),
		CachedAudioSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lingualive_cached_audio_swept_total",
			Help: "Total number of cached reply-audio files removed by TTL sweep",
		}),
	}
}

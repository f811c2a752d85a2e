package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics of the triage service.
type Metrics struct {
	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsStarted prometheus.Counter
	SessionFailures *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	ConnectDuration prometheus.Histogram

	// Upstream metrics
	AudioBytes       prometheus.Counter
	TranscriptEvents *prometheus.CounterVec
	DecodeErrors     prometheus.Counter
	ReceiveTimeouts  prometheus.Counter

	// Generation metrics
	SuggestionBatches  prometheus.Counter
	GenerationDuration *prometheus.HistogramVec
	GenerationFailures *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "triage_active_sessions",
			Help: "Current number of live sessions",
		}),
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "triage_sessions_started_total",
			Help: "Total number of sessions accepted",
		}),
		SessionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_session_failures_total",
			Help: "Sessions that ended with a fatal error, by cause",
		}, []string{"cause"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "triage_session_duration_seconds",
			Help:    "Duration of sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		}),
		ConnectDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "triage_upstream_connect_duration_seconds",
			Help:    "Time to open the transcription stream",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms to ~6s
		}),

		AudioBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "triage_audio_bytes_total",
			Help: "Audio bytes relayed upstream",
		}),
		TranscriptEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_transcripts_total",
			Help: "Transcript events delivered, by finality",
		}, []string{"final"}),
		DecodeErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "triage_upstream_decode_errors_total",
			Help: "Malformed messages from the transcription service",
		}),
		ReceiveTimeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "triage_upstream_receive_timeouts_total",
			Help: "Receive timeouts answered with a liveness probe",
		}),

		SuggestionBatches: f.NewCounter(prometheus.CounterOpts{
			Name: "triage_suggestion_batches_total",
			Help: "Suggestion batches delivered",
		}),
		GenerationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triage_generation_duration_seconds",
			Help:    "Latency of generation calls, by flow",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to ~32s
		}, []string{"label"}),
		GenerationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_generation_failures_total",
			Help: "Failed generation calls, by flow",
		}, []string{"label"}),
	}
}

func (m *Metrics) ObserveGeneration(label string, d time.Duration, err error) {
	m.GenerationDuration.WithLabelValues(label).Observe(d.Seconds())
	if err != nil {
		m.GenerationFailures.WithLabelValues(label).Inc()
	}
}

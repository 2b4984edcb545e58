// Package metrics defines the Prometheus metrics for the translation
// service and helpers for recording them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the translation service.
type Metrics struct {
	// Translation pipeline metrics
	TranslateRequests  *prometheus.CounterVec
	TranslateFailures  *prometheus.CounterVec
	NormalizeDuration  prometheus.Histogram
	InferenceDuration  prometheus.Histogram
	EncodeDuration     prometheus.Histogram
	QueueWaitDuration  prometheus.Histogram
	InputAudioSeconds  prometheus.Histogram
	OutputAudioSeconds prometheus.Histogram

	// Model lifecycle metrics
	ModelReady        prometheus.Gauge
	ModelLoadAttempts prometheus.Counter
	ModelLoadFailures prometheus.Counter
	ModelLoadDuration prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Translation pipeline metrics
		TranslateRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "translate_requests_total",
			Help: "Total number of translation requests by language pair",
		}, []string{"src_lang", "tgt_lang"}),
		TranslateFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "translate_failures_total",
			Help: "Total number of failed translation requests by failure kind",
		}, []string{"reason"}),
		NormalizeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "translate_normalize_duration_seconds",
			Help:    "Time spent decoding and normalizing input audio",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
		}),
		InferenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "translate_inference_duration_seconds",
			Help:    "Time spent in model inference",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~3.5 minutes
		}),
		EncodeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "translate_encode_duration_seconds",
			Help:    "Time spent encoding the output waveform",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
		}),
		QueueWaitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "translate_queue_wait_seconds",
			Help:    "Time requests waited behind the inference lock",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		}),
		InputAudioSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "translate_input_audio_seconds",
			Help:    "Duration of normalized input audio",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s to ~1 minute
		}),
		OutputAudioSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "translate_output_audio_seconds",
			Help:    "Duration of synthesized output audio",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s to ~1 minute
		}),

		// Model lifecycle metrics
		ModelReady: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "translate_model_ready",
			Help: "Whether the translation model is loaded and serving (1 or 0)",
		}),
		ModelLoadAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "translate_model_load_attempts_total",
			Help: "Total number of model load attempts",
		}),
		ModelLoadFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "translate_model_load_failures_total",
			Help: "Total number of failed model load attempts",
		}),
		ModelLoadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "translate_model_load_duration_seconds",
			Help:    "Duration of model load attempts",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "translate_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "translate_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "translate_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordTranslateRequest counts a translation request for a language pair.
func (m *Metrics) RecordTranslateRequest(src, tgt string) {
	m.TranslateRequests.WithLabelValues(src, tgt).Inc()
}

// RecordTranslateFailure counts a failed request by taxonomy reason.
func (m *Metrics) RecordTranslateFailure(reason string) {
	m.TranslateFailures.WithLabelValues(reason).Inc()
}

// RecordNormalize records input normalization timing and audio length.
func (m *Metrics) RecordNormalize(durationSeconds, audioSeconds float64) {
	m.NormalizeDuration.Observe(durationSeconds)
	m.InputAudioSeconds.Observe(audioSeconds)
}

// RecordInference records inference timing, queue wait, and output length.
func (m *Metrics) RecordInference(durationSeconds, queueWaitSeconds, audioSeconds float64) {
	m.InferenceDuration.Observe(durationSeconds)
	m.QueueWaitDuration.Observe(queueWaitSeconds)
	m.OutputAudioSeconds.Observe(audioSeconds)
}

// RecordEncode records response encoding timing.
func (m *Metrics) RecordEncode(durationSeconds float64) {
	m.EncodeDuration.Observe(durationSeconds)
}

// SetModelReady sets the model readiness gauge.
func (m *Metrics) SetModelReady(ready bool) {
	if ready {
		m.ModelReady.Set(1)
	} else {
		m.ModelReady.Set(0)
	}
}

// RecordModelLoad records a load attempt and its outcome.
func (m *Metrics) RecordModelLoad(durationSeconds float64, success bool) {
	m.ModelLoadAttempts.Inc()
	m.ModelLoadDuration.Observe(durationSeconds)
	if !success {
		m.ModelLoadFailures.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error.
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

// Package metrics provides Prometheus instrumentation for the bot.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds the bot's Prometheus instruments.
type Collector struct {
	updatesTotal       *prometheus.CounterVec
	gateOutcomes       *prometheus.CounterVec
	editsTotal         *prometheus.CounterVec
	sendsTotal         *prometheus.CounterVec
	truncationsTotal   prometheus.Counter
	streamFailures     *prometheus.CounterVec
	sessionDuration    prometheus.Histogram
	sessionSize        prometheus.Histogram
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the bot's instruments on the given registerer.
// Pass prometheus.NewRegistry() in tests to avoid global registration
// conflicts.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.updatesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Total number of webhook updates received",
		},
		[]string{"kind"}, // text, command, duplicate, ignored
	)

	c.gateOutcomes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_outcomes_total",
			Help:      "Total number of gate classifications",
		},
		[]string{"outcome", "rule"},
	)

	c.editsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_edits_total",
			Help:      "Total number of message edit calls",
		},
		[]string{"status"}, // ok, not_modified, error
	)

	c.sendsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_sends_total",
			Help:      "Total number of message send calls",
		},
		[]string{"status"}, // ok, error
	)

	c.truncationsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_truncations_total",
			Help:      "Total number of replies cut at the streaming cap",
		},
	)

	c.streamFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_failures_total",
			Help:      "Total number of streaming sessions ending in error",
		},
		[]string{"reason"}, // upstream, transport, timeout
	)

	c.sessionDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Streaming session duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	c.sessionSize = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_reply_chars",
			Help:      "Final reply size in characters",
			Buckets:   prometheus.ExponentialBuckets(50, 2, 8),
		},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"}, // type: prompt, completion
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordUpdate counts one incoming webhook update.
func (c *Collector) RecordUpdate(kind string) {
	c.updatesTotal.WithLabelValues(kind).Inc()
}

// RecordGateOutcome counts one gate classification.
func (c *Collector) RecordGateOutcome(outcome, rule string) {
	c.gateOutcomes.WithLabelValues(outcome, rule).Inc()
}

// RecordEdit counts one edit call by result.
func (c *Collector) RecordEdit(status string) {
	c.editsTotal.WithLabelValues(status).Inc()
}

// RecordSend counts one send call by result.
func (c *Collector) RecordSend(status string) {
	c.sendsTotal.WithLabelValues(status).Inc()
}

// RecordTruncation counts one reply cut at the cap.
func (c *Collector) RecordTruncation() {
	c.truncationsTotal.Inc()
}

// RecordStreamFailure counts one failed streaming session.
func (c *Collector) RecordStreamFailure(reason string) {
	c.streamFailures.WithLabelValues(reason).Inc()
}

// RecordSession observes a completed streaming session.
func (c *Collector) RecordSession(duration time.Duration, replyChars int) {
	c.sessionDuration.Observe(duration.Seconds())
	c.sessionSize.Observe(float64(replyChars))
}

// RecordLLMRequest observes one upstream model call.
func (c *Collector) RecordLLMRequest(provider, model string, duration time.Duration, promptTokens, completionTokens int) {
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

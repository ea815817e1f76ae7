package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector("prepbot", prometheus.NewRegistry(), zap.NewNop())
}

func TestNewCollector(t *testing.T) {
	c := newTestCollector(t)

	assert.NotNil(t, c.updatesTotal)
	assert.NotNil(t, c.gateOutcomes)
	assert.NotNil(t, c.editsTotal)
	assert.NotNil(t, c.sendsTotal)
	assert.NotNil(t, c.sessionDuration)
	assert.NotNil(t, c.llmTokensUsed)
}

func TestCollector_RecordGateOutcome(t *testing.T) {
	c := newTestCollector(t)

	c.RecordGateOutcome("rejected", "no_scope_match")
	c.RecordGateOutcome("rejected", "no_scope_match")
	c.RecordGateOutcome("accepted", "core_token")

	rejected := c.gateOutcomes.WithLabelValues("rejected", "no_scope_match")
	assert.Equal(t, 2.0, testutil.ToFloat64(rejected))
	accepted := c.gateOutcomes.WithLabelValues("accepted", "core_token")
	assert.Equal(t, 1.0, testutil.ToFloat64(accepted))
}

func TestCollector_RecordEditsAndSends(t *testing.T) {
	c := newTestCollector(t)

	c.RecordEdit("ok")
	c.RecordEdit("not_modified")
	c.RecordSend("ok")
	c.RecordSend("error")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.editsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.editsTotal.WithLabelValues("not_modified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sendsTotal.WithLabelValues("error")))
}

func TestCollector_RecordSession(t *testing.T) {
	c := newTestCollector(t)

	c.RecordTruncation()
	c.RecordSession(3*time.Second, 900)
	c.RecordStreamFailure("upstream")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.truncationsTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(c.sessionDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.streamFailures.WithLabelValues("upstream")))
}

func TestCollector_RecordLLMRequest(t *testing.T) {
	c := newTestCollector(t)

	c.RecordLLMRequest("ollama", "qwen2.5", 500*time.Millisecond, 100, 50)

	prompt := c.llmTokensUsed.WithLabelValues("ollama", "qwen2.5", "prompt")
	assert.Equal(t, 100.0, testutil.ToFloat64(prompt))
	completion := c.llmTokensUsed.WithLabelValues("ollama", "qwen2.5", "completion")
	assert.Equal(t, 50.0, testutil.ToFloat64(completion))
}

func TestCollector_SeparateRegistries(t *testing.T) {
	a := NewCollector("prepbot", prometheus.NewRegistry(), zap.NewNop())
	b := NewCollector("prepbot", prometheus.NewRegistry(), zap.NewNop())

	a.RecordUpdate("text")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.updatesTotal.WithLabelValues("text")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.updatesTotal.WithLabelValues("text")))
}

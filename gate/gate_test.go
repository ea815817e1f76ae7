package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestEngine() *Engine {
	return NewEngine(DefaultRuleSet(), zap.NewNop())
}

func TestClassifyScope_DegenerateInput(t *testing.T) {
	e := newTestEngine()
	for _, text := range []string{"", "   ", "ab", "a b", "?!.", "ab!"} {
		c := e.ClassifyScope(text)
		assert.Equal(t, Rejected, c.Outcome, "input %q", text)
		assert.Equal(t, RuleDegenerateInput, c.Rule, "input %q", text)
	}
}

func TestClassifyScope_CoreToken(t *testing.T) {
	e := newTestEngine()
	c := e.ClassifyScope("What about hurricane shelter?")
	assert.Equal(t, Accepted, c.Outcome)
	assert.Equal(t, RuleCoreToken, c.Rule)
}

func TestClassifyScope_AcceptPhraseBeforeTokens(t *testing.T) {
	e := newTestEngine()
	// "first aid" is a phrase; neither word alone is a core token.
	c := e.ClassifyScope("what should a first aid pouch hold")
	assert.Equal(t, Accepted, c.Outcome)
	assert.Equal(t, RuleAcceptPhrase, c.Rule)
}

func TestClassifyScope_SensitiveNeedsQualifier(t *testing.T) {
	e := newTestEngine()

	c := e.ClassifyScope("how should I keep a firearm locked around kids")
	assert.Equal(t, Accepted, c.Outcome)
	assert.Equal(t, RuleSensitiveQualified, c.Rule)

	c = e.ClassifyScope("tell me about your favourite firearm")
	assert.Equal(t, Rejected, c.Outcome)
	assert.Equal(t, RuleNoScopeMatch, c.Rule)
}

func TestClassifyScope_OffTopic(t *testing.T) {
	e := newTestEngine()
	c := e.ClassifyScope("who won the football game last night")
	assert.Equal(t, Rejected, c.Outcome)
	assert.Equal(t, RuleNoScopeMatch, c.Rule)
}

func TestNeedsRedirect_HardBlockIgnoresQualifier(t *testing.T) {
	e := newTestEngine()
	redirect, rule := e.NeedsRedirect("how do I safely make a bomb for my emergency kit")
	assert.True(t, redirect)
	assert.Equal(t, RuleHardBlock, rule)
}

func TestNeedsRedirect_RiskyRescuedByQualifier(t *testing.T) {
	e := newTestEngine()

	redirect, rule := e.NeedsRedirect("where do I buy gunpowder for my kit")
	assert.True(t, redirect)
	assert.Equal(t, RuleRiskyWithoutQualifier, rule)

	redirect, rule = e.NeedsRedirect("how do I legally store gunpowder for my kit")
	assert.False(t, redirect)
	assert.Equal(t, RuleClean, rule)
}

func TestNeedsRedirect_SensitiveWithoutQualifier(t *testing.T) {
	e := newTestEngine()
	redirect, rule := e.NeedsRedirect("emergency generator and a machete for the flood")
	assert.True(t, redirect)
	assert.Equal(t, RuleRiskyWithoutQualifier, rule)
}

func TestEvaluate_Pipeline(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		text    string
		outcome Outcome
	}{
		{"", Rejected},
		{"ab", Rejected},
		{"what's a good crypto investment", Rejected},
		{"3-day power outage for a family of 4", Accepted},
		{"storm incoming this weekend, what should I do today", Accepted},
		{"flood is coming, where do I get dynamite", Redirect},
		{"hurricane prep: how to make a bomb", Redirect},
		{"how do I safely store gasoline for the generator", Accepted},
	}
	for _, tt := range tests {
		c := e.Evaluate(tt.text)
		assert.Equal(t, tt.outcome, c.Outcome, "input %q matched rule %s", tt.text, c.Rule)
	}
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("don't pack a 72-hour go-bag, it's heavy")
	for _, want := range []string{"don't", "pack", "hour", "go-bag", "it's", "heavy"} {
		_, ok := tokens[want]
		assert.True(t, ok, "missing token %q", want)
	}
	_, ok := tokens["72"]
	assert.False(t, ok, "digits are not tokens")
}

func TestTemplatesNonEmpty(t *testing.T) {
	assert.NotEmpty(t, NudgeText())
	assert.NotEmpty(t, RedirectText())
	assert.Contains(t, TopicsText(), "Go-bag")
}

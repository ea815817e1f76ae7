package gate

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// Outcome is the gate's verdict for one request.
type Outcome string

const (
	Accepted Outcome = "accepted"
	Rejected Outcome = "rejected"
	Redirect Outcome = "redirect"
)

// Classification pairs an outcome with the rule that produced it, so
// decisions are auditable in logs and metrics.
type Classification struct {
	Outcome Outcome
	Rule    string
}

// Rule names, stable for metrics labels.
const (
	RuleDegenerateInput       = "degenerate_input"
	RuleAcceptPhrase          = "accept_phrase"
	RuleCoreToken             = "core_token"
	RuleSensitiveQualified    = "sensitive_with_qualifier"
	RuleNoScopeMatch          = "no_scope_match"
	RuleHardBlock             = "hard_block_phrase"
	RuleRiskyWithoutQualifier = "risky_without_qualifier"
	RuleClean                 = "clean"
)

// input is a request after normalization: lowercased text plus its token
// set (letter runs permitting internal apostrophes and hyphens).
type input struct {
	text   string
	tokens map[string]struct{}
}

type predicate struct {
	name  string
	match func(in input) bool
}

// Engine evaluates the scope and redirect checks against one RuleSet.
// It is immutable after construction and safe for concurrent use.
type Engine struct {
	set    RuleSet
	logger *zap.Logger

	scopeRules    []predicate
	redirectRules []predicate

	core       map[string]struct{}
	sensitive  map[string]struct{}
	qualifiers map[string]struct{}
	risky      map[string]struct{}
}

// NewEngine builds an engine over the given tables.
func NewEngine(set RuleSet, logger *zap.Logger) *Engine {
	e := &Engine{
		set:        set,
		logger:     logger.With(zap.String("component", "gate")),
		core:       toSet(set.CoreTokens),
		sensitive:  toSet(set.SensitiveTopics),
		qualifiers: toSet(set.SafetyQualifiers),
		risky:      toSet(set.RiskyTerms),
	}

	// Scope: first matching rule accepts; no match rejects.
	e.scopeRules = []predicate{
		{RuleAcceptPhrase, func(in input) bool {
			return containsAnyPhrase(in.text, e.set.AcceptPhrases)
		}},
		{RuleCoreToken, func(in input) bool {
			return hasAnyToken(in.tokens, e.core)
		}},
		{RuleSensitiveQualified, func(in input) bool {
			return hasAnyToken(in.tokens, e.sensitive) && hasAnyToken(in.tokens, e.qualifiers)
		}},
	}

	// Redirect: first matching rule redirects. Hard blocks come first so
	// no qualifier can rescue them.
	e.redirectRules = []predicate{
		{RuleHardBlock, func(in input) bool {
			return containsAnyPhrase(in.text, e.set.HardBlockPhrases)
		}},
		{RuleRiskyWithoutQualifier, func(in input) bool {
			if !hasAnyToken(in.tokens, e.risky) && !hasAnyToken(in.tokens, e.sensitive) {
				return false
			}
			return !hasAnyToken(in.tokens, e.qualifiers)
		}},
	}

	return e
}

// ClassifyScope reports whether the request is in-domain at all.
// Empty or near-empty input is rejected before any table is consulted.
func (e *Engine) ClassifyScope(text string) Classification {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if degenerate(normalized) {
		return Classification{Outcome: Rejected, Rule: RuleDegenerateInput}
	}

	in := input{text: normalized, tokens: tokenize(normalized)}
	for _, r := range e.scopeRules {
		if r.match(in) {
			return Classification{Outcome: Accepted, Rule: r.name}
		}
	}
	return Classification{Outcome: Rejected, Rule: RuleNoScopeMatch}
}

// NeedsRedirect reports whether an accepted request must be steered to a
// safety answer instead of the model.
func (e *Engine) NeedsRedirect(text string) (bool, string) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	in := input{text: normalized, tokens: tokenize(normalized)}
	for _, r := range e.redirectRules {
		if r.match(in) {
			return true, r.name
		}
	}
	return false, RuleClean
}

// Evaluate runs the full pipeline: scope first, then the redirect check
// on accepted input.
func (e *Engine) Evaluate(text string) Classification {
	c := e.ClassifyScope(text)
	if c.Outcome != Accepted {
		return c
	}
	if redirect, rule := e.NeedsRedirect(text); redirect {
		return Classification{Outcome: Redirect, Rule: rule}
	}
	return c
}

// degenerate reports empty or near-empty input: at most three characters
// and at most three letters.
func degenerate(normalized string) bool {
	if normalized == "" {
		return true
	}
	letters := 0
	for _, r := range normalized {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return len([]rune(normalized)) <= 3 && letters <= 3
}

// tokenize splits normalized text into letter runs, keeping apostrophes
// and hyphens that sit between letters ("72-hour" yields "hour";
// "don't" stays whole).
func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	runes := []rune(s)
	for i := 0; i < len(runes); {
		if !unicode.IsLetter(runes[i]) {
			i++
			continue
		}
		j := i + 1
		for j < len(runes) {
			r := runes[j]
			if unicode.IsLetter(r) {
				j++
				continue
			}
			if (r == '\'' || r == '-') && j+1 < len(runes) && unicode.IsLetter(runes[j+1]) {
				j++
				continue
			}
			break
		}
		tokens[string(runes[i:j])] = struct{}{}
		i = j
	}
	return tokens
}

func toSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}

func hasAnyToken(tokens, table map[string]struct{}) bool {
	for t := range tokens {
		if _, ok := table[t]; ok {
			return true
		}
	}
	return false
}

func containsAnyPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Package gate decides whether an inbound request is in scope for the
// preparedness assistant and whether an in-scope request must be
// redirected to a safety answer before it reaches the model.
//
// The engine runs two independent pure checks over normalized text, each
// an ordered list of named predicate rules evaluated against immutable
// tables. Rule order is load-bearing: a hard-block phrase can never be
// rescued by a safety qualifier, while risky terms and sensitive topics
// can. This is a heuristic substring/token gate, not a semantic
// classifier, and must not be treated as a security boundary.
package gate

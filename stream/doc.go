// Package stream implements the delivery protocol that turns an
// incrementally generated reply into transport messages under a
// per-message length limit and an edit-rate limit.
//
// A Session accumulates fragments into a monotonically growing buffer
// with a hard character cap, renders rate-limited live updates that show
// the tail of the buffer once it outgrows the transport limit, and
// finalizes exactly once: the visible message is reconciled to the head
// of the final text and the remainder is sent as ordered overflow
// messages.
//
// Length arithmetic is in runes throughout, matching how the transport
// counts message characters.
package stream

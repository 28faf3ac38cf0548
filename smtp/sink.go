package smtp

import "context"

// Sink is the host-supplied event handler a Server invokes on accepted
// messages and for VRFY/EXPN, per spec.md §6. Implementations are
// responsible for their own synchronization (spec.md §5: "the sink is
// shared by a reference counted handle ... interior synchronisation is
// the sink's responsibility").
type Sink interface {
	// OnMail is called once per accepted message, with the raw DATA
	// payload (dot-stuffing untouched, per spec.md §4.5 and §9 — that is
	// the job of a downstream RFC 5322 parser, not this interface). A
	// non-nil error's text is surfaced verbatim to the peer as a 554.
	OnMail(ctx context.Context, env Envelope, body []byte) error

	// VerifyUser backs the VRFY command. Default: false.
	VerifyUser(ctx context.Context, localPart string) bool

	// ExpandMailingList backs the EXPN command. Default: nil (no such
	// list).
	ExpandMailingList(ctx context.Context, name string) []string
}

// Envelope carries the transaction's reverse path and accumulated
// recipients to the sink alongside the message body.
type Envelope struct {
	From       *Mailbox
	Recipients []Recipient
}

// NopSink is a zero-value-safe Sink that accepts every message and
// refuses every VRFY/EXPN, matching the defaults
// original_source/src/events.rs' EventHandler trait documents.
type NopSink struct{}

func (NopSink) OnMail(ctx context.Context, env Envelope, body []byte) error { return nil }
func (NopSink) VerifyUser(ctx context.Context, localPart string) bool       { return false }
func (NopSink) ExpandMailingList(ctx context.Context, name string) []string { return nil }

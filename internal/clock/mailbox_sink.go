package clock

import (
	"context"

	"github.com/roasbeef/quiver/internal/actor"
)

// MailboxSink adapts an actor mailbox into a clock Sink: each tick
// constructs a fresh message via NewTick and sends it through the mailbox,
// reporting failure when the mailbox has been closed (the actor on the other
// end is gone), matching spec.md §4.2's "receiver gone" rule. A send that
// is still blocked on a full mailbox when ctx expires (the Clock passes a
// one-period deadline) also reports failure.
type MailboxSink[M actor.Message, S any] struct {
	Mailbox actor.Mailbox[M, S]
	NewTick func() M
}

// SendTick implements Sink.
func (s MailboxSink[M, S]) SendTick(ctx context.Context) bool {
	return s.Mailbox.Send(ctx, s.NewTick())
}

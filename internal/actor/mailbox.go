package actor

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// envelope wraps either a user payload or an observe request, per spec.md
// §4.1's two logical message variants. observeReply is non-nil only for
// observe requests.
type envelope[M Message, S any] struct {
	payload      M
	isObserve    bool
	observeReply chan ObserveOutcome[S]
}

// Mailbox is a bounded FIFO for one actor, addressable by a stable UUID
// identity distinct from its underlying queue (spec.md §3). It is grounded
// on the teacher's ChannelMailbox (internal/baselib/actor/channel_mailbox.go):
// a buffered channel guarded by an RWMutex so Close() can never race a
// concurrent Send() into a panic, plus an iterator-based Receive/Drain pair.
//
// Mailboxes are cheaply clonable: Clone returns a new handle sharing the
// same underlying queue and id, so equality/hashing (via ID()) is stable
// across clones even though the queue is shared, not copied.
type Mailbox[M Message, S any] struct {
	id     uuid.UUID
	shared *mailboxCore[M, S]
}

type mailboxCore[M Message, S any] struct {
	ch        chan envelope[M, S]
	closed    atomic.Bool
	mu        sync.RWMutex
	closeOnce sync.Once
}

// NewMailbox creates a new mailbox with the given bounded capacity. A
// capacity <= 0 is treated as 1, guaranteeing the mailbox is always
// buffered (matching the teacher's NewChannelMailbox default).
func NewMailbox[M Message, S any](capacity int) Mailbox[M, S] {
	if capacity <= 0 {
		capacity = 1
	}

	return Mailbox[M, S]{
		id: uuid.New(),
		shared: &mailboxCore[M, S]{
			ch: make(chan envelope[M, S], capacity),
		},
	}
}

// ID returns the mailbox's stable UUID identity.
func (m Mailbox[M, S]) ID() uuid.UUID { return m.id }

// Equal reports whether two mailbox handles share the same identity.
func (m Mailbox[M, S]) Equal(other Mailbox[M, S]) bool { return m.id == other.id }

// Clone returns a new handle to the same underlying queue and identity.
func (m Mailbox[M, S]) Clone() Mailbox[M, S] { return m }

// Send blocks until the envelope is accepted, ctx is cancelled, or the
// mailbox is closed. Returns false (a SendError, per spec.md §4.1) iff the
// receiver is gone: the mailbox was already closed, or ctx was cancelled
// before the send landed.
func (m Mailbox[M, S]) Send(ctx context.Context, msg M) bool {
	return m.send(ctx, envelope[M, S]{payload: msg})
}

func (m Mailbox[M, S]) send(ctx context.Context, env envelope[M, S]) bool {
	c := m.shared

	if ctx.Err() != nil {
		return false
	}

	// Hold the read lock for the entire send so Close() (which takes the
	// write lock before closing the channel) can never race us into a
	// send-on-closed-channel panic.
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed.Load() {
		return false
	}

	select {
	case c.ch <- env:
		return true
	case <-ctx.Done():
		return false
	}
}

// TrySend attempts a non-blocking send. Returns false if the mailbox is
// full or closed.
func (m Mailbox[M, S]) TrySend(msg M) bool {
	c := m.shared

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed.Load() {
		return false
	}

	select {
	case c.ch <- envelope[M, S]{payload: msg}:
		return true
	default:
		return false
	}
}

// Receive returns an iterator over envelopes, stopping when ctx is
// cancelled or the mailbox is closed and drained.
func (m Mailbox[M, S]) Receive(ctx context.Context) iter.Seq[envelope[M, S]] {
	c := m.shared

	return func(yield func(envelope[M, S]) bool) {
		for {
			if ctx.Err() != nil {
				return
			}

			select {
			case env, ok := <-c.ch:
				if !ok {
					return
				}
				if !yield(env) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close closes the mailbox, preventing further sends. Idempotent.
func (m Mailbox[M, S]) Close() {
	c := m.shared
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.closed.Store(true)
		close(c.ch)
	})
}

// IsClosed reports whether Close has been called.
func (m Mailbox[M, S]) IsClosed() bool { return m.shared.closed.Load() }

// Drain returns an iterator over any envelopes left in the mailbox after
// Close. No-op if called before Close.
func (m Mailbox[M, S]) Drain() iter.Seq[envelope[M, S]] {
	c := m.shared

	return func(yield func(envelope[M, S]) bool) {
		if !c.closed.Load() {
			return
		}

		for {
			select {
			case env, ok := <-c.ch:
				if !ok {
					return
				}
				if !yield(env) {
					return
				}
			default:
				return
			}
		}
	}
}

// Package scheduler drives periodic campaign dispatch for every configured
// source, per spec.md §4.7: "For each configured SourceIndexingConfig the
// scheduler enqueues a campaign request every indexing_period into a unique
// queue." It owns no indexing logic of its own — it only decides when a new
// internal/indexing/campaign run should start for a given source, and hands
// the actual wiring off to a caller-supplied builder.
package scheduler

import (
	"context"
	"sync"
)

// uniqueItem pairs a dedup key with the value currently queued under it.
type uniqueItem[K comparable, V any] struct {
	key K
	val V
}

// UniqueQueue is an unbounded, multi-producer single-consumer queue keyed by
// K: Send is a no-op while a prior value for the same key is still pending,
// and Recv clears the pending marker the instant the item is dequeued. This
// is exactly spec.md §4.7's "unique queue" (§8 scenario 6): a source whose
// campaign is still running when its next tick fires collapses to a single
// outstanding request, instead of piling up one per missed tick.
//
// Grounded on the teacher's internal/baselib/actor ChannelMailbox: a mutex
// guarding a slice in place of a channel (since the queue must be genuinely
// unbounded, which a Go channel can't be), a closeOnce matching its
// close-is-idempotent rule, and a buffered size-1 signal channel standing in
// for the mailbox's own wakeup-on-send, woken exactly the way Drain()'s
// consumer loop expects.
type UniqueQueue[K comparable, V any] struct {
	mu      sync.Mutex
	items   []uniqueItem[K, V]
	pending map[K]struct{}
	signal  chan struct{}

	closeOnce sync.Once
	closed    bool
}

// NewUniqueQueue constructs an empty, open UniqueQueue.
func NewUniqueQueue[K comparable, V any]() *UniqueQueue[K, V] {
	return &UniqueQueue[K, V]{
		pending: make(map[K]struct{}),
		signal:  make(chan struct{}, 1),
	}
}

// Send enqueues val under key unless key is already pending or the queue is
// closed. It reports whether the value was actually enqueued.
func (q *UniqueQueue[K, V]) Send(key K, val V) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if _, ok := q.pending[key]; ok {
		return false
	}

	q.pending[key] = struct{}{}
	q.items = append(q.items, uniqueItem[K, V]{key: key, val: val})

	q.wake()
	return true
}

// wake must be called with q.mu held.
func (q *UniqueQueue[K, V]) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Recv blocks until an item is available, the queue is closed and drained,
// or ctx is cancelled. ok is false in the latter two cases.
func (q *UniqueQueue[K, V]) Recv(ctx context.Context) (val V, ok bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it := q.items[0]
			q.items = q.items[1:]
			delete(q.pending, it.key)
			q.mu.Unlock()
			return it.val, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			var zero V
			return zero, false
		}

		select {
		case <-q.signal:
		case <-ctx.Done():
			var zero V
			return zero, false
		}
	}
}

// Close marks the queue closed; pending Recv calls drain whatever is left
// then return ok=false. Close is idempotent, matching ChannelMailbox's
// closeOnce.
func (q *UniqueQueue[K, V]) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.wake()
		q.mu.Unlock()
	})
}

// Len reports the number of items currently queued. Intended for tests and
// observability, not for control flow.
func (q *UniqueQueue[K, V]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUniqueQueueDedupsPendingKey(t *testing.T) {
	t.Parallel()

	q := NewUniqueQueue[string, int]()

	require.True(t, q.Send("a", 1))
	require.False(t, q.Send("a", 2), "second send for a pending key must be a no-op")
	require.Equal(t, 1, q.Len())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	val, ok := q.Recv(ctx)
	require.True(t, ok)
	require.Equal(t, 1, val)

	// Now that "a" has been dequeued, it's no longer pending: a fresh send
	// under the same key must succeed.
	require.True(t, q.Send("a", 3))
}

func TestUniqueQueueFIFOAcrossDistinctKeys(t *testing.T) {
	t.Parallel()

	q := NewUniqueQueue[string, int]()
	require.True(t, q.Send("a", 1))
	require.True(t, q.Send("b", 2))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, ok := q.Recv(ctx)
	require.True(t, ok)
	require.Equal(t, 1, first)

	second, ok := q.Recv(ctx)
	require.True(t, ok)
	require.Equal(t, 2, second)
}

func TestUniqueQueueRecvBlocksUntilSend(t *testing.T) {
	t.Parallel()

	q := NewUniqueQueue[string, int]()

	type result struct {
		val int
		ok  bool
	}
	resultCh := make(chan result, 1)
	go func() {
		val, ok := q.Recv(context.Background())
		resultCh <- result{val, ok}
	}()

	select {
	case <-resultCh:
		t.Fatal("Recv returned before any Send")
	case <-time.After(50 * time.Millisecond):
	}

	require.True(t, q.Send("x", 42))

	select {
	case r := <-resultCh:
		require.True(t, r.ok)
		require.Equal(t, 42, r.val)
	case <-time.After(time.Second):
		t.Fatal("Recv did not wake up after Send")
	}
}

func TestUniqueQueueRecvReturnsOnContextCancel(t *testing.T) {
	t.Parallel()

	q := NewUniqueQueue[string, int]()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, ok := q.Recv(ctx)
	require.False(t, ok)
}

func TestUniqueQueueCloseDrainsThenReturnsFalse(t *testing.T) {
	t.Parallel()

	q := NewUniqueQueue[string, int]()
	require.True(t, q.Send("a", 1))
	q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	val, ok := q.Recv(ctx)
	require.True(t, ok, "a value queued before Close must still be delivered")
	require.Equal(t, 1, val)

	_, ok = q.Recv(ctx)
	require.False(t, ok, "once drained, a closed queue reports ok=false")

	require.False(t, q.Send("b", 2), "Send after Close is a no-op")
}

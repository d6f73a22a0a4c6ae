package actor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testMsg struct {
	BaseMessage
	value int
}

func (testMsg) MessageType() string { return "testMsg" }

func TestMailboxSendReceive(t *testing.T) {
	t.Parallel()

	mb := NewMailbox[testMsg, string](4)
	defer mb.Close()

	ok := mb.Send(context.Background(), testMsg{value: 42})
	require.True(t, ok)

	for env := range mb.Receive(context.Background()) {
		require.Equal(t, 42, env.payload.value)
		break
	}
}

func TestMailboxSendCancelledContext(t *testing.T) {
	t.Parallel()

	mb := NewMailbox[testMsg, string](0)
	defer mb.Close()

	// Fill the single buffer slot so the next send must block on the
	// channel, then race it against a context already cancelled.
	require.True(t, mb.Send(context.Background(), testMsg{value: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok := mb.Send(ctx, testMsg{value: 2})
	require.False(t, ok)
}

func TestMailboxSendToClosed(t *testing.T) {
	t.Parallel()

	mb := NewMailbox[testMsg, string](1)
	mb.Close()

	ok := mb.Send(context.Background(), testMsg{value: 1})
	require.False(t, ok)
}

func TestMailboxCloseIdempotent(t *testing.T) {
	t.Parallel()

	mb := NewMailbox[testMsg, string](1)
	require.False(t, mb.IsClosed())

	mb.Close()
	require.True(t, mb.IsClosed())

	require.NotPanics(t, func() {
		mb.Close()
	})
}

func TestMailboxDrainAfterClose(t *testing.T) {
	t.Parallel()

	mb := NewMailbox[testMsg, string](4)

	for i := 0; i < 3; i++ {
		require.True(t, mb.Send(context.Background(), testMsg{value: i}))
	}
	mb.Close()

	var drained []int
	for env := range mb.Drain() {
		drained = append(drained, env.payload.value)
	}
	require.Equal(t, []int{0, 1, 2}, drained)
}

func TestMailboxCloneSharesIdentity(t *testing.T) {
	t.Parallel()

	mb := NewMailbox[testMsg, string](1)
	clone := mb.Clone()

	require.True(t, mb.Equal(clone))
	require.Equal(t, mb.ID(), clone.ID())

	require.True(t, clone.Send(context.Background(), testMsg{value: 7}))

	for env := range mb.Receive(context.Background()) {
		require.Equal(t, 7, env.payload.value)
		break
	}
}

func TestMailboxTrySendFullOrClosed(t *testing.T) {
	t.Parallel()

	mb := NewMailbox[testMsg, string](1)
	require.True(t, mb.TrySend(testMsg{value: 1}))
	require.False(t, mb.TrySend(testMsg{value: 2}))

	mb.Close()
	require.False(t, mb.TrySend(testMsg{value: 3}))
}

func TestMailboxReceiveStopsOnContextDeadline(t *testing.T) {
	t.Parallel()

	mb := NewMailbox[testMsg, string](1)
	defer mb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	for range mb.Receive(ctx) {
		t.Fatal("no message was sent, should not yield")
	}
	require.Less(t, time.Since(start), time.Second)
}

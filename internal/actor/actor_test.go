package actor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// counterBehavior is a minimal ActorBehavior for testing: it increments an
// internal counter per message and reports it as its observable state.
type counterBehavior struct {
	count atomic.Int64
	hang  atomic.Bool // if set, ProcessMessage blocks without marking progress
}

func (b *counterBehavior) ProcessMessage(ctx context.Context, msg testMsg, progress *Progress) ProcessResult {
	if b.hang.Load() {
		<-ctx.Done()
		return ResultOK()
	}
	b.count.Add(1)
	progress.Mark()
	return ResultOK()
}

func (b *counterBehavior) ObservableState() int64 {
	return b.count.Load()
}

func newTestActor(t *testing.T, ks *KillSwitchGroup, behavior *counterBehavior) (*Actor[testMsg, int64], Mailbox[testMsg, int64]) {
	t.Helper()

	mb := NewMailbox[testMsg, int64](8)
	a := NewActor(Config[testMsg, int64]{
		ID:         "counter",
		Flavor:     Async,
		Behavior:   behavior,
		Mailbox:    mb,
		KillSwitch: ks,
	})
	return a, mb
}

func TestActorProcessesMessagesInOrder(t *testing.T) {
	t.Parallel()

	ks := NewKillSwitchGroup()
	behavior := &counterBehavior{}
	a, mb := newTestActor(t, ks, behavior)
	a.Start()

	for i := 0; i < 5; i++ {
		require.True(t, a.Tell(context.Background(), testMsg{value: i}))
	}

	outcome := a.Observe(context.Background())
	require.Equal(t, "running", outcome.Kind)
	require.Equal(t, int64(5), outcome.State)

	mb.Close()
	<-a.Done()
}

// TestActorObserveIsBarrier verifies spec.md's observe()-as-synchronization
// guarantee: by the time Observe returns Running, every message sent before
// it has already been processed, because the observe marker travels through
// the same FIFO mailbox.
func TestActorObserveIsBarrier(t *testing.T) {
	t.Parallel()

	ks := NewKillSwitchGroup()
	behavior := &counterBehavior{}
	a, _ := newTestActor(t, ks, behavior)
	a.Start()

	const n = 100
	for i := 0; i < n; i++ {
		require.True(t, a.Tell(context.Background(), testMsg{value: i}))
	}

	outcome := a.Observe(context.Background())
	require.Equal(t, "running", outcome.Kind)
	require.Equal(t, int64(n), outcome.State)

	a.Stop()
	<-a.Done()
}

// TestActorKillSwitchPropagation verifies spec.md §3's "killing one actor
// kills all actors at the same or lower step" rule across a small pipeline
// of actors sharing one KillSwitchGroup.
func TestActorKillSwitchPropagation(t *testing.T) {
	// Mutates the package-level HEARTBEAT var below; must not run in
	// parallel with other tests that depend on its default value.
	old := HEARTBEAT
	HEARTBEAT = 30 * time.Millisecond
	defer func() { HEARTBEAT = old }()

	ks := NewKillSwitchGroup()

	var actors []*Actor[testMsg, int64]
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		mb := NewMailbox[testMsg, int64](1)
		a := NewActor(Config[testMsg, int64]{
			ID:         "member",
			Flavor:     Async,
			Behavior:   &counterBehavior{},
			Mailbox:    mb,
			KillSwitch: ks,
			Wg:         &wg,
		})
		a.Start()
		actors = append(actors, a)
	}

	// Kill the second actor's step; every actor allocated a step at or
	// before it must terminate, later ones stay alive.
	actors[1].Stop()

	for i, a := range actors {
		select {
		case <-a.Done():
			require.LessOrEqual(t, i, 1, "actor %d terminated unexpectedly early", i)
			require.Equal(t, CauseKillSwitch, a.Termination().Cause)
		case <-time.After(2 * HEARTBEAT):
			require.Greater(t, i, 1, "actor %d should have been killed", i)
		}
	}

	for _, a := range actors[2:] {
		a.Stop()
		<-a.Done()
	}
	wg.Wait()
}

// TestActorHeartbeatTimeout reproduces spec.md §8's worked scenario: an
// actor whose ProcessMessage never marks progress is killed by the
// heartbeat watchdog within roughly two HEARTBEATs (the first tick clears
// the mark the main loop set before dispatch, the second finds it unset),
// and Observe() reports Terminated soon after. HEARTBEAT is shrunk for the test so this runs
// quickly.
func TestActorHeartbeatTimeout(t *testing.T) {
	old := HEARTBEAT
	HEARTBEAT = 30 * time.Millisecond
	defer func() { HEARTBEAT = old }()

	ks := NewKillSwitchGroup()
	behavior := &counterBehavior{}
	behavior.hang.Store(true)

	a, _ := newTestActor(t, ks, behavior)
	a.Start()

	require.True(t, a.Tell(context.Background(), testMsg{value: 1}))

	select {
	case <-a.Done():
		require.True(t, a.Termination().Cause.IsFailure())
	case <-time.After(4 * HEARTBEAT):
		t.Fatal("hung actor should have been killed within roughly two HEARTBEATs")
	}

	outcome := a.Observe(context.Background())
	require.Equal(t, "terminated", outcome.Kind)
}

// TestActorDisconnectRunsFinalizer verifies that closing an actor's mailbox
// from the outside (simulating every sender handle being dropped) drives a
// CauseDisconnect termination and runs Finalize.
type finalizingBehavior struct {
	counterBehavior
	finalized atomic.Bool
}

func (b *finalizingBehavior) Finalize(ctx context.Context) error {
	b.finalized.Store(true)
	return nil
}

func TestActorDisconnectRunsFinalizer(t *testing.T) {
	t.Parallel()

	ks := NewKillSwitchGroup()
	behavior := &finalizingBehavior{}
	mb := NewMailbox[testMsg, int64](1)
	a := NewActor(Config[testMsg, int64]{
		ID:         "finalizer",
		Flavor:     Async,
		Behavior:   behavior,
		Mailbox:    mb,
		KillSwitch: ks,
	})
	a.Start()

	mb.Close()
	<-a.Done()

	require.Equal(t, CauseDisconnect, a.Termination().Cause)
	require.False(t, a.Termination().Cause.IsFailure())
	require.True(t, behavior.finalized.Load())
}

// TestActorSyncFlavorUsesWorkerPool verifies a Sync actor blocks until it
// can reserve a pool slot, and releases it on termination.
func TestActorSyncFlavorUsesWorkerPool(t *testing.T) {
	t.Parallel()

	ks := NewKillSwitchGroup()
	pool := NewWorkerPool(1)

	mb := NewMailbox[testMsg, int64](1)
	a := NewActor(Config[testMsg, int64]{
		ID:         "sync-actor",
		Flavor:     Sync,
		Behavior:   &counterBehavior{},
		Mailbox:    mb,
		KillSwitch: ks,
		Pool:       pool,
	})
	a.Start()

	require.True(t, a.Tell(context.Background(), testMsg{value: 1}))
	outcome := a.Observe(context.Background())
	require.Equal(t, int64(1), outcome.State)

	a.Stop()
	<-a.Done()

	// The slot must be free again now that the actor has terminated.
	acquireCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Acquire(acquireCtx))
	pool.Release()
}

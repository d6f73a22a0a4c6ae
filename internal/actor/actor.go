package actor

import (
	"context"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/roasbeef/quiver/internal/quivererr"
)

type receiveStatus int

const (
	receiveOK receiveStatus = iota
	receiveTimeout
	receiveDisconnected
)

func (m Mailbox[M, S]) receiveOne(ctx context.Context) (envelope[M, S], receiveStatus) {
	c := m.shared

	select {
	case env, ok := <-c.ch:
		if !ok {
			return envelope[M, S]{}, receiveDisconnected
		}
		return env, receiveOK

	case <-ctx.Done():
		return envelope[M, S]{}, receiveTimeout
	}
}

func (m Mailbox[M, S]) sendObserve(ctx context.Context) (chan ObserveOutcome[S], bool) {
	replyCh := make(chan ObserveOutcome[S], 1)
	ok := m.send(ctx, envelope[M, S]{isObserve: true, observeReply: replyCh})
	return replyCh, ok
}

// Config holds everything needed to construct and start an Actor.
type Config[M Message, S any] struct {
	// ID identifies this actor in logs and observation.
	ID string

	// Flavor selects the Async or Sync execution strategy (spec.md
	// §4.1).
	Flavor Flavor

	// Behavior implements the actor's message handling logic.
	Behavior ActorBehavior[M, S]

	// Mailbox is the actor's receiving end. The caller retains a clone
	// to send messages.
	Mailbox Mailbox[M, S]

	// KillSwitch is the group this actor joins. Required.
	KillSwitch *KillSwitchGroup

	// Pool is the dedicated worker pool a Sync actor reserves a slot
	// from for its entire lifetime. Required when Flavor == Sync.
	Pool *WorkerPool

	// Wg, if non-nil, is incremented on Start and decremented when the
	// actor's goroutine exits, enabling deterministic shutdown waits
	// (mirrors the teacher's ActorConfig.Wg).
	Wg *sync.WaitGroup
}

// Actor runs one ActorBehavior against messages from its Mailbox, honoring
// the kill-switch group and heartbeat liveness contract of spec.md §4.1.
type Actor[M Message, S any] struct {
	id       string
	flavor   Flavor
	behavior ActorBehavior[M, S]
	mailbox  Mailbox[M, S]

	killSwitch *KillSwitchGroup
	step       int64

	pool *WorkerPool
	wg   *sync.WaitGroup

	progress Progress

	ctx    context.Context
	cancel context.CancelFunc

	doneCh chan struct{}

	mu          sync.RWMutex
	lastState   S
	termination Termination
}

// NewActor constructs an Actor. It allocates a fresh step from the
// kill-switch group. Call Start to begin processing.
func NewActor[M Message, S any](cfg Config[M, S]) *Actor[M, S] {
	ctx, cancel := context.WithCancel(context.Background())

	return &Actor[M, S]{
		id:         cfg.ID,
		flavor:     cfg.Flavor,
		behavior:   cfg.Behavior,
		mailbox:    cfg.Mailbox,
		killSwitch: cfg.KillSwitch,
		step:       cfg.KillSwitch.NextStep(),
		pool:       cfg.Pool,
		wg:         cfg.Wg,
		ctx:        ctx,
		cancel:     cancel,
		doneCh:     make(chan struct{}),
	}
}

// ID returns the actor's identifier.
func (a *Actor[M, S]) ID() string { return a.id }

// Step returns the kill-switch step this actor was allocated.
func (a *Actor[M, S]) Step() int64 { return a.step }

// Done returns a channel closed once the actor has fully terminated
// (including any Finalize/cleanup work).
func (a *Actor[M, S]) Done() <-chan struct{} { return a.doneCh }

// Termination returns the actor's termination cause. Only valid after Done()
// is closed.
func (a *Actor[M, S]) Termination() Termination {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.termination
}

// Start launches the actor's main loop on its own goroutine and returns
// immediately. For a Sync actor that goroutine first waits until a worker
// slot is available, then holds it for the remainder of the actor's life,
// releasing the slot on exit.
func (a *Actor[M, S]) Start() {
	if a.wg != nil {
		a.wg.Add(1)
	}

	go a.run()
}

func (a *Actor[M, S]) run() {
	defer func() {
		if a.wg != nil {
			a.wg.Done()
		}
	}()

	if a.flavor == Sync {
		if err := a.pool.Acquire(context.Background()); err != nil {
			a.finish(Termination{Cause: CauseKillSwitch, Err: err})
			return
		}
		defer a.pool.Release()
	}

	watchdogDone := make(chan struct{})
	go func() {
		heartbeatWatchdog(a.ctx, a.cancel, &a.progress, a.killSwitch, a.step, watchdogDone)
	}()
	defer close(watchdogDone)

	cause := a.loop()

	a.mailbox.Close()
	a.drain()

	if cause.Cause == CauseDisconnect {
		if finalizer, ok := a.behavior.(Finalizer); ok {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := finalizer.Finalize(cleanupCtx)
			cancel()

			if err != nil {
				cause = Termination{Cause: CauseActorError, Err: err}
			}
		}
	}

	a.finish(cause)
}

func (a *Actor[M, S]) finish(cause Termination) {
	a.publishState()

	a.mu.Lock()
	a.termination = cause
	a.mu.Unlock()

	close(a.doneCh)
}

func (a *Actor[M, S]) loop() Termination {
	recvTimeout := HEARTBEAT / 5

	for {
		// Step 1: if the kill-switch tripped, terminate.
		if !a.killSwitch.IsAlive(a.step) {
			return Termination{Cause: CauseKillSwitch}
		}

		// Step 2: record progress.
		a.progress.Mark()

		// Step 3: wait for the next message with a bounded timeout so
		// we keep revisiting the kill-switch even while idle.
		recvCtx, cancel := context.WithTimeout(context.Background(), recvTimeout)
		env, status := a.mailbox.receiveOne(recvCtx)
		cancel()

		// Step 4: record progress again.
		a.progress.Mark()

		// Step 5: re-check the kill-switch; it may have tripped while
		// we were blocked.
		if !a.killSwitch.IsAlive(a.step) {
			return Termination{Cause: CauseKillSwitch}
		}

		switch status {
		case receiveTimeout:
			continue

		case receiveDisconnected:
			return Termination{Cause: CauseDisconnect}

		case receiveOK:
			if env.isObserve {
				state := a.behavior.ObservableState()
				a.setLastState(state)
				env.observeReply <- Running(state)
				continue
			}

			result := a.behavior.ProcessMessage(a.ctx, env.payload, &a.progress)
			if result.ok {
				continue
			}

			switch result.cause {
			case CauseOnDemand:
				return Termination{Cause: CauseOnDemand}

			case CauseDownstreamClosed:
				a.killSwitch.Kill(a.step)
				return Termination{Cause: CauseDownstreamClosed}

			default:
				a.killSwitch.Kill(a.step)
				return Termination{Cause: CauseActorError, Err: result.err}
			}
		}
	}
}

// drain is called after the mailbox is closed: remaining envelopes are
// dropped. Observe requests left in the mailbox are answered Terminated so
// any caller still waiting gets a definitive, non-hanging answer.
func (a *Actor[M, S]) drain() {
	state := a.behavior.ObservableState()
	a.setLastState(state)

	for env := range a.mailbox.Drain() {
		if env.isObserve {
			env.observeReply <- Terminated(state)
		}
	}
}

func (a *Actor[M, S]) setLastState(s S) {
	a.mu.Lock()
	a.lastState = s
	a.mu.Unlock()
}

func (a *Actor[M, S]) snapshotState() S {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastState
}

// publishState caches the latest observable state in the watch register so
// late observers (those who call Observe after the actor has already
// terminated) still get a meaningful snapshot rather than a zero value.
func (a *Actor[M, S]) publishState() {
	select {
	case <-a.doneCh:
		return
	default:
	}

	a.setLastState(a.behavior.ObservableState())
}

// Observe pushes an observe marker through the mailbox and awaits an
// acknowledgement, per spec.md §4.1. Because the marker travels on the same
// FIFO mailbox, every message sent before this call is guaranteed to have
// been processed once Running is returned.
func (a *Actor[M, S]) Observe(ctx context.Context) ObserveOutcome[S] {
	select {
	case <-a.doneCh:
		return Terminated(a.snapshotState())
	default:
	}

	sendCtx, sendCancel := context.WithTimeout(ctx, HEARTBEAT)
	defer sendCancel()

	replyCh, ok := a.mailbox.sendObserve(sendCtx)
	if !ok {
		return Terminated(a.snapshotState())
	}

	waitCtx, waitCancel := context.WithTimeout(ctx, HEARTBEAT)
	defer waitCancel()

	select {
	case outcome := <-replyCh:
		return outcome

	case <-a.doneCh:
		// The actor terminated and drained the mailbox while we were
		// waiting; drain() already answered any pending observe, but
		// guard against a race where our send landed just after Close.
		select {
		case outcome := <-replyCh:
			return outcome
		default:
			return Terminated(a.snapshotState())
		}

	case <-waitCtx.Done():
		if a.killSwitch.IsAlive(a.step) {
			return Timeout(a.snapshotState())
		}

		// The kill-switch is tripped; Go cannot forcibly abort a
		// stuck goroutine the way an async-task runtime could, so we
		// report Terminated on the strength of the kill-switch and
		// rely on the actor's own loop to exit within one HEARTBEAT
		// (see heartbeat.go) rather than literally cancelling the
		// in-flight call.
		return Terminated(a.snapshotState())
	}
}

// Tell sends a message without waiting for a response. Equivalent to
// calling the actor's Mailbox.Send directly; provided for symmetry with
// Observe.
func (a *Actor[M, S]) Tell(ctx context.Context, msg M) bool {
	return a.mailbox.Send(ctx, msg)
}

// Ask sends msg and then observes the actor, returning both steps as a
// single fn.Result the way the teacher's ActorRef.Ask returns a
// future/promise-flavored Result rather than a bare bool plus a separate
// Observe call the caller has to sequence by hand (see
// internal/baselib/actor/interface.go's Ask). A Tell that fails because the
// mailbox is already gone becomes an error Result instead of a silently
// discarded false.
func (a *Actor[M, S]) Ask(ctx context.Context, msg M) fn.Result[ObserveOutcome[S]] {
	if !a.Tell(ctx, msg) {
		return fn.Err[ObserveOutcome[S]](quivererr.ErrActorTerminated)
	}
	return resultOf(a.Observe(ctx), error(nil))
}

// Stop trips the kill-switch at this actor's own step, which causes the
// main loop to terminate (as CauseKillSwitch) at its next iteration.
func (a *Actor[M, S]) Stop() {
	a.killSwitch.Kill(a.step)
}

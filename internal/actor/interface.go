// Package actor implements the fixed-topology actor runtime described in
// spec.md §4.1: mailboxes with UUID identity, a kill-switch group shared by a
// whole pipeline, a heartbeat/progress liveness watchdog, and a
// synchronization-barrier observe() primitive. It generalizes the teacher's
// internal/baselib/actor (Actor[M,R], ChannelMailbox, ActorRef/TellOnlyRef,
// Future/Promise over github.com/lightningnetwork/lnd/fn/v2) with the two
// signals the teacher's plain context-cancellation lifecycle doesn't model:
// a monotonic kill-switch floor distinct from context.Context, and a
// single-bit progress flag a heartbeat ticker can observe.
package actor

import (
	"context"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// BaseMessage is embedded by concrete message types to satisfy the sealed
// Message interface, exactly as in the teacher's actor package.
type BaseMessage struct{}

func (BaseMessage) messageMarker() {}

// Message is the sealed interface every actor payload must satisfy.
type Message interface {
	messageMarker()

	// MessageType returns the message's type name for logging/routing.
	MessageType() string
}

// TerminationCause enumerates why an actor's main loop exited, per
// spec.md §4.1's process_message result taxonomy plus the main-loop's own
// termination reasons.
type TerminationCause int

const (
	// CauseOnDemand means the actor chose to stop; never a pipeline
	// failure.
	CauseOnDemand TerminationCause = iota

	// CauseDownstreamClosed means a send to a downstream mailbox failed;
	// trips the kill-switch.
	CauseDownstreamClosed

	// CauseActorError means process_message returned an application
	// error; trips the kill-switch.
	CauseActorError

	// CauseKillSwitch means the actor observed a tripped kill-switch
	// (possibly tripped by a sibling actor).
	CauseKillSwitch

	// CauseDisconnect means the actor's mailbox was disconnected (every
	// sender handle dropped) and fully drained; never a pipeline
	// failure.
	CauseDisconnect
)

func (c TerminationCause) String() string {
	switch c {
	case CauseOnDemand:
		return "on-demand-stop"
	case CauseDownstreamClosed:
		return "downstream-closed"
	case CauseActorError:
		return "actor-error"
	case CauseKillSwitch:
		return "kill-switch"
	case CauseDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// IsFailure reports whether a supervisor should treat this termination as a
// pipeline failure. Per spec.md §7, anything other than OnDemand and
// Disconnect is a failure.
func (c TerminationCause) IsFailure() bool {
	return c != CauseOnDemand && c != CauseDisconnect
}

// Termination is recorded once the main loop exits and is read back via
// Actor.Termination.
type Termination struct {
	Cause TerminationCause
	Err   error
}

func (t Termination) Error() string {
	if t.Err != nil {
		return fmt.Sprintf("%s: %v", t.Cause, t.Err)
	}
	return t.Cause.String()
}

// ProcessResult is what ActorBehavior.ProcessMessage returns for each
// message, per spec.md §4.1.
type ProcessResult struct {
	cause TerminationCause
	err   error
	ok    bool
}

// ResultOK continues the main loop.
func ResultOK() ProcessResult { return ProcessResult{ok: true} }

// ResultOnDemandStop terminates the actor gracefully without tripping the
// kill-switch.
func ResultOnDemandStop() ProcessResult {
	return ProcessResult{cause: CauseOnDemand}
}

// ResultDownstreamClosed terminates the actor as DownstreamClosed and trips
// the kill-switch.
func ResultDownstreamClosed() ProcessResult {
	return ProcessResult{cause: CauseDownstreamClosed}
}

// ResultError terminates the actor as ActorError and trips the kill-switch.
func ResultError(err error) ProcessResult {
	return ProcessResult{cause: CauseActorError, err: err}
}

// ResultFrom adapts an fn.Result (the teacher's ActorBehavior.Receive
// return idiom) into a ProcessResult: a failed Result becomes ResultError,
// a successful one becomes ResultOK. Useful for behaviors that compute
// their outcome as an fn.Result internally (e.g. a storage/metastore call
// already returns one).
func ResultFrom[R any](res fn.Result[R]) ProcessResult {
	if _, err := res.Unpack(); err != nil {
		return ResultError(err)
	}
	return ResultOK()
}

// IsOK reports whether the main loop should continue processing.
func (p ProcessResult) IsOK() bool { return p.ok }

// ActorBehavior defines one actor role's message handling and observable
// state, generic over message type M and observable-state type S.
type ActorBehavior[M Message, S any] interface {
	// ProcessMessage handles one message. ctx carries the actor's
	// lifecycle (cancelled when the kill-switch trips). The Progress
	// handle must be marked at least once per HEARTBEAT during any long
	// computation; see Progress.Mark.
	ProcessMessage(ctx context.Context, msg M, progress *Progress) ProcessResult

	// ObservableState returns a snapshot of the actor's current state,
	// used to answer Observe() calls.
	ObservableState() S
}

// Finalizer is an optional extension a sync ActorBehavior can implement to
// run cleanup when its mailbox disconnects (spec.md §4.5's indexer
// finalize()).
type Finalizer interface {
	// Finalize is called once, after the mailbox disconnects and drains,
	// before the actor terminates as CauseDisconnect.
	Finalize(ctx context.Context) error
}

// ObserveOutcome is the result of calling Observe() on an actor, per
// spec.md §4.1.
type ObserveOutcome[S any] struct {
	// Kind is one of "running", "terminated", or "timeout".
	Kind  string
	State S
}

// Running builds a Running outcome.
func Running[S any](s S) ObserveOutcome[S] { return ObserveOutcome[S]{Kind: "running", State: s} }

// Terminated builds a Terminated outcome.
func Terminated[S any](s S) ObserveOutcome[S] {
	return ObserveOutcome[S]{Kind: "terminated", State: s}
}

// Timeout builds a Timeout outcome.
func Timeout[S any](s S) ObserveOutcome[S] { return ObserveOutcome[S]{Kind: "timeout", State: s} }

// Flavor distinguishes the two actor execution strategies spec.md §4.1
// requires: async actors run on the Go runtime's cooperative scheduler,
// sync actors run on a dedicated bounded worker pool and receive with a
// timeout so they keep revisiting the kill-switch even while idle.
type Flavor int

const (
	// Async actors process messages inline on their own goroutine,
	// awaiting freely between messages (storage calls, mailbox sends).
	Async Flavor = iota

	// Sync actors reserve one slot of a shared bounded worker pool for
	// their whole lifetime, modeling a dedicated blocking worker.
	Sync
)

// resultOf adapts a fn.Result-shaped outcome for callers that prefer that
// idiom (mirrors the teacher's ActorBehavior.Receive return type).
func resultOf[R any](v R, err error) fn.Result[R] {
	if err != nil {
		return fn.Err[R](err)
	}
	return fn.Ok(v)
}

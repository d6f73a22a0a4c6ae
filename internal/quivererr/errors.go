// Package quivererr defines the error taxonomy shared across quiver's
// components, following the teacher's convention of small sentinel errors
// (see internal/baselib/actor.ErrActorTerminated) rather than a generic
// error-code framework.
package quivererr

import "errors"

// ConfigError indicates a problem in static configuration, detected at
// startup. It is never recoverable without operator intervention.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

// MetastoreError wraps a failure from the metastore (IO, parse, or a
// conflicting state transition). The metastore guarantees that on
// MetastoreError the on-disk state was not partially applied.
type MetastoreError struct {
	Op  string
	Err error
}

func (e *MetastoreError) Error() string {
	return "metastore: " + e.Op + ": " + e.Err.Error()
}

func (e *MetastoreError) Unwrap() error {
	return e.Err
}

// StorageError wraps a per-object storage failure. Storage errors are
// logged and reported in a leaf search's failed_requests; they are only
// fatal in the GC path.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Path + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IndexError indicates a document failed to parse against the index config.
// Raised by the indexer; it trips the pipeline's kill-switch.
type IndexError struct {
	Err error
}

func (e *IndexError) Error() string {
	return "index error: " + e.Err.Error()
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// SearchErrorKind enumerates the kinds of errors the search path can
// surface to a client.
type SearchErrorKind int

const (
	// SearchErrorIndexDoesNotExist indicates the requested index_id has
	// no metastore entry.
	SearchErrorIndexDoesNotExist SearchErrorKind = iota

	// SearchErrorInternal wraps an unexpected internal failure.
	SearchErrorInternal

	// SearchErrorUnavailable indicates a leaf node could not be reached.
	// No code path in this module returns it; root search has no retry
	// pass.
	SearchErrorUnavailable
)

func (k SearchErrorKind) String() string {
	switch k {
	case SearchErrorIndexDoesNotExist:
		return "index-does-not-exist"
	case SearchErrorUnavailable:
		return "unavailable"
	default:
		return "internal-error"
	}
}

// SearchError is returned to search clients. Root search returns one only
// for a missing index; leaf node failures are not converted into a
// SearchError, not even when every node fails: the failed nodes' hits are
// left out and the result is returned as a success.
type SearchError struct {
	Kind SearchErrorKind
	Msg  string
}

func (e *SearchError) Error() string {
	return "search error (" + e.Kind.String() + "): " + e.Msg
}

// NewSearchError builds a SearchError of the given kind.
func NewSearchError(kind SearchErrorKind, msg string) *SearchError {
	return &SearchError{Kind: kind, Msg: msg}
}

// Sentinel actor-termination-cause errors. These mirror the teacher's
// ErrActorTerminated but are extended with the spec's distinct termination
// causes (DownstreamClosed, KillSwitch, OnDemand, Disconnect) so supervisors
// can tell apart a deliberate stop from a failure.
var (
	// ErrActorTerminated indicates an operation failed because the
	// target actor was already stopped.
	ErrActorTerminated = errors.New("actor terminated")

	// ErrDownstreamClosed indicates an actor's send to its downstream
	// mailbox failed because the downstream actor is gone.
	ErrDownstreamClosed = errors.New("downstream mailbox closed")

	// ErrKillSwitch indicates an actor observed a tripped kill-switch.
	ErrKillSwitch = errors.New("kill-switch tripped")

	// ErrDisconnect indicates an actor's mailbox was disconnected (all
	// senders dropped) after being drained.
	ErrDisconnect = errors.New("mailbox disconnected")

	// ErrOnDemandStop indicates the actor chose to stop gracefully; this
	// is never treated as a pipeline failure by a supervisor.
	ErrOnDemandStop = errors.New("actor stopped on demand")
)

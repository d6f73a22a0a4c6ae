package indexing

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/roasbeef/quiver/internal/actor"
)

// SourceObservableState reports a Source's progress.
type SourceObservableState struct {
	BatchesEmitted uint64
	DocsEmitted    uint64
	Done           bool
}

// SourceBehavior drives a DocSource, forwarding each batch to the Indexer
// and re-enqueuing itself until the source is exhausted or errors. It is
// async: spec.md §4.5 never has it block anything downstream of it on its
// own pace, and self re-enqueuing (rather than a bespoke driving loop)
// models "keep running" atop the same mailbox contract every other actor
// uses.
type SourceBehavior struct {
	source     DocSource
	downstream actor.Mailbox[Batch, IndexerObservableState]
	self       actor.Mailbox[Pump, SourceObservableState]

	mu    sync.Mutex
	state SourceObservableState
}

// NewSourceBehavior builds a SourceBehavior. self must be the same mailbox
// the owning Actor is constructed with, so ProcessMessage can re-enqueue
// its own next step.
func NewSourceBehavior(
	source DocSource,
	downstream actor.Mailbox[Batch, IndexerObservableState],
	self actor.Mailbox[Pump, SourceObservableState],
) *SourceBehavior {

	return &SourceBehavior{source: source, downstream: downstream, self: self}
}

func (b *SourceBehavior) ProcessMessage(ctx context.Context, _ Pump, progress *actor.Progress) actor.ProcessResult {
	progress.Mark()

	docs, cp, err := b.source.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			b.downstream.Close()

			b.mu.Lock()
			b.state.Done = true
			b.mu.Unlock()

			return actor.ResultOnDemandStop()
		}
		return actor.ResultError(err)
	}

	if !b.downstream.Send(ctx, Batch{Docs: docs, CheckpointUpdate: cp}) {
		return actor.ResultDownstreamClosed()
	}

	b.mu.Lock()
	b.state.BatchesEmitted++
	b.state.DocsEmitted += uint64(len(docs))
	b.mu.Unlock()

	progress.Mark()

	if !b.self.Send(ctx, Pump{}) {
		return actor.ResultOnDemandStop()
	}

	return actor.ResultOK()
}

func (b *SourceBehavior) ObservableState() SourceObservableState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

var _ actor.ActorBehavior[Pump, SourceObservableState] = (*SourceBehavior)(nil)

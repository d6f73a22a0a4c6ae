package indexing

import (
	"context"
	"sync"

	"github.com/roasbeef/quiver/internal/actor"
	"github.com/roasbeef/quiver/internal/metastore"
)

// PublisherObservableState reports how many splits a Publisher has
// published, and whether the campaign it belongs to has finished.
type PublisherObservableState struct {
	SplitsPublished uint64
	Done            bool
}

// PublisherBehavior flips a staged split to Published and merges its
// checkpoint update into the metastore. PublishSplits and UpdateCheckpoint
// are both idempotent (spec.md §3, §4.5), so a retried PublishRequest after
// a crash never double-applies anything observable.
//
// The Publisher is the end of the pipeline: once its mailbox disconnects,
// onComplete (if set) signals the owning campaign that the chain has fully
// drained.
type PublisherBehavior struct {
	meta       *metastore.Store
	onComplete func()

	mu        sync.Mutex
	published uint64
	done      bool
}

// NewPublisherBehavior builds a PublisherBehavior. onComplete may be nil.
func NewPublisherBehavior(meta *metastore.Store, onComplete func()) *PublisherBehavior {
	return &PublisherBehavior{meta: meta, onComplete: onComplete}
}

func (b *PublisherBehavior) ProcessMessage(ctx context.Context, msg PublishRequest, progress *actor.Progress) actor.ProcessResult {
	if err := b.meta.PublishSplits([]string{msg.SplitID}); err != nil {
		return actor.ResultError(err)
	}
	if err := b.meta.UpdateCheckpoint(msg.SplitID, msg.Checkpoint); err != nil {
		return actor.ResultError(err)
	}

	b.mu.Lock()
	b.published++
	b.mu.Unlock()

	return actor.ResultOK()
}

func (b *PublisherBehavior) ObservableState() PublisherObservableState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return PublisherObservableState{SplitsPublished: b.published, Done: b.done}
}

// Finalize marks the campaign done and invokes onComplete. It never sends
// anywhere: there is no actor downstream of the Publisher.
func (b *PublisherBehavior) Finalize(ctx context.Context) error {
	b.mu.Lock()
	b.done = true
	b.mu.Unlock()

	if b.onComplete != nil {
		b.onComplete()
	}
	return nil
}

var _ actor.ActorBehavior[PublishRequest, PublisherObservableState] = (*PublisherBehavior)(nil)
var _ actor.Finalizer = (*PublisherBehavior)(nil)

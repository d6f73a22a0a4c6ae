// Package campaign wires the five internal/indexing actors into one
// running pipeline instance, per spec.md §4.6: "one ingestion attempt for
// one source on one index, bounded by a shared kill-switch." It owns the
// mailbox sizing and flavor assignment the indexing package's behaviors
// themselves stay agnostic to.
//
// Grounded on the teacher's internal/baselib/actor/system.go wiring style,
// simplified: a campaign's topology is fixed (five roles, one linear
// chain), so there's no receptionist or router to thread through — refs are
// wired by hand exactly the way the teacher's own cmd/substrated wires its
// concrete actors before anything is registered with a receptionist.
package campaign

import (
	"context"
	"sync"

	"github.com/roasbeef/quiver/internal/actor"
	"github.com/roasbeef/quiver/internal/indexiface"
	"github.com/roasbeef/quiver/internal/indexing"
	"github.com/roasbeef/quiver/internal/metastore"
	"github.com/roasbeef/quiver/internal/metastore/ledger"
	"github.com/roasbeef/quiver/internal/storageiface"
)

// Mailbox capacities from spec.md §4.6: publisher 3, uploader 1, packager
// 1, indexer 100. The indexer's large buffer absorbs bursts from an async
// source that can outrun sync indexing momentarily; the other stages are
// kept tight since each only ever holds the one in-flight split.
const (
	publisherMailboxSize = 3
	uploaderMailboxSize  = 1
	packagerMailboxSize  = 1
	indexerMailboxSize   = 100
	sourceMailboxSize    = 1
)

// Config holds everything one campaign run needs.
type Config struct {
	// SourceID and IndexID identify the campaign for logging, per
	// spec.md §9's "Campaign: one ingestion attempt for one source on
	// one index."
	SourceID string
	IndexID  string

	Source         indexing.DocSource
	Schema         *indexiface.Schema
	MemBudgetBytes uint64

	// Scratch is the Indexer's local work area. One campaign owns one
	// scratch area for its whole run, matching one campaign producing
	// one split.
	Scratch indexing.ScratchDirectory

	// Storage is the index's root storage location; the uploader writes
	// each split under Storage.WithPrefix(splitID).
	Storage storageiface.Storage

	Metastore *metastore.Store

	// Ledger records each split's staged_at time so gc.GarbageCollectIndex
	// can tell an orphaned Staged split from one a campaign just staged a
	// moment ago. May be nil; then every split this campaign stages has
	// unknown age to GC's minimum-age filter.
	Ledger *ledger.Ledger

	MaxConcurrentUploads int

	// Pool is the dedicated worker pool the Indexer and Packager (the
	// sync stages) run on. If nil, a campaign-private pool of size 2 is
	// created.
	Pool *actor.WorkerPool
}

// Campaign is one running instance of the five-actor indexing pipeline.
type Campaign struct {
	killSwitch *actor.KillSwitchGroup
	wg         sync.WaitGroup

	source    *actor.Actor[indexing.Pump, indexing.SourceObservableState]
	indexerA  *actor.Actor[indexing.Batch, indexing.IndexerObservableState]
	packagerA *actor.Actor[indexing.IndexedSplit, indexing.PackagerObservableState]
	uploaderA *actor.Actor[indexing.PackagedSplit, indexing.UploaderObservableState]
	publisher *actor.Actor[indexing.PublishRequest, indexing.PublisherObservableState]

	done chan struct{}
}

// Start builds and launches one campaign: all five actors are started, the
// source is kicked off with its first Pump, and the whole chain shares one
// kill-switch group that Start allocates fresh for this campaign (spec.md
// §4.6's "one fresh KillSwitchGroup per campaign"); Config has no field for
// supplying a shared one.
func Start(cfg Config) *Campaign {
	ks := actor.NewKillSwitchGroup()

	pool := cfg.Pool
	if pool == nil {
		pool = actor.NewWorkerPool(2)
	}

	c := &Campaign{killSwitch: ks, done: make(chan struct{})}

	publisherMbx := actor.NewMailbox[indexing.PublishRequest, indexing.PublisherObservableState](publisherMailboxSize)
	publisherBehavior := indexing.NewPublisherBehavior(cfg.Metastore, nil)
	c.publisher = actor.NewActor(actor.Config[indexing.PublishRequest, indexing.PublisherObservableState]{
		ID:         "publisher[" + cfg.SourceID + "]",
		Flavor:     actor.Async,
		Behavior:   publisherBehavior,
		Mailbox:    publisherMbx,
		KillSwitch: ks,
		Wg:         &c.wg,
	})
	c.publisher.Start()

	uploaderMbx := actor.NewMailbox[indexing.PackagedSplit, indexing.UploaderObservableState](uploaderMailboxSize)
	uploaderBehavior := indexing.NewUploaderBehavior(
		indexing.UploaderConfig{MaxConcurrentUploads: cfg.MaxConcurrentUploads},
		cfg.Storage, cfg.Metastore, cfg.Ledger, publisherMbx.Clone(),
	)
	c.uploaderA = actor.NewActor(actor.Config[indexing.PackagedSplit, indexing.UploaderObservableState]{
		ID:         "uploader[" + cfg.SourceID + "]",
		Flavor:     actor.Async,
		Behavior:   uploaderBehavior,
		Mailbox:    uploaderMbx,
		KillSwitch: ks,
		Wg:         &c.wg,
	})
	c.uploaderA.Start()

	packagerMbx := actor.NewMailbox[indexing.IndexedSplit, indexing.PackagerObservableState](packagerMailboxSize)
	packagerBehavior := indexing.NewPackagerBehavior(uploaderMbx.Clone())
	c.packagerA = actor.NewActor(actor.Config[indexing.IndexedSplit, indexing.PackagerObservableState]{
		ID:         "packager[" + cfg.SourceID + "]",
		Flavor:     actor.Sync,
		Behavior:   packagerBehavior,
		Mailbox:    packagerMbx,
		KillSwitch: ks,
		Pool:       pool,
		Wg:         &c.wg,
	})
	c.packagerA.Start()

	indexerMbx := actor.NewMailbox[indexing.Batch, indexing.IndexerObservableState](indexerMailboxSize)
	indexerBehavior := indexing.NewIndexerBehavior(
		indexing.IndexerConfig{
			Schema:         cfg.Schema,
			MemBudgetBytes: cfg.MemBudgetBytes,
			Label:          cfg.IndexID + "/" + cfg.SourceID,
		},
		cfg.Scratch, packagerMbx.Clone(),
	)
	c.indexerA = actor.NewActor(actor.Config[indexing.Batch, indexing.IndexerObservableState]{
		ID:         "indexer[" + cfg.SourceID + "]",
		Flavor:     actor.Sync,
		Behavior:   indexerBehavior,
		Mailbox:    indexerMbx,
		KillSwitch: ks,
		Pool:       pool,
		Wg:         &c.wg,
	})
	c.indexerA.Start()

	sourceMbx := actor.NewMailbox[indexing.Pump, indexing.SourceObservableState](sourceMailboxSize)
	sourceBehavior := indexing.NewSourceBehavior(cfg.Source, indexerMbx.Clone(), sourceMbx.Clone())
	c.source = actor.NewActor(actor.Config[indexing.Pump, indexing.SourceObservableState]{
		ID:         "source[" + cfg.SourceID + "]",
		Flavor:     actor.Async,
		Behavior:   sourceBehavior,
		Mailbox:    sourceMbx,
		KillSwitch: ks,
		Wg:         &c.wg,
	})
	c.source.Start()

	// Ask rather than a bare Tell: Start only returns once the source has
	// actually taken delivery of its first Pump (the actor's Observe
	// round-trip guarantees the message was dequeued), and a failed
	// hand-off — the mailbox already gone — trips the kill-switch
	// immediately instead of leaving a campaign that silently never
	// ingests anything.
	if _, err := c.source.Ask(context.Background(), indexing.Pump{}).Unpack(); err != nil {
		c.killSwitch.KillAll()
	}

	// Done closes once every actor has terminated, regardless of cause:
	// a clean run ends with the Disconnect cascade reaching the
	// Publisher, while a failure ends with every actor observing the
	// tripped kill-switch independently (Finalize, and so the Publisher's
	// onComplete hook, never runs in that path since it's only invoked on
	// CauseDisconnect) — waiting on the shared WaitGroup is the one signal
	// that covers both.
	go func() {
		c.wg.Wait()
		close(c.done)
	}()

	return c
}

// Done returns a channel closed once every actor in the campaign has
// terminated, whether because the source drained cleanly or because the
// pipeline was torn down by a failure.
func (c *Campaign) Done() <-chan struct{} { return c.done }

// Stop trips the campaign's kill-switch, tearing down every actor in the
// chain at their next iteration.
func (c *Campaign) Stop() { c.killSwitch.KillAll() }

// Failed reports whether the campaign ended in a pipeline failure (anything
// other than the source draining on demand and the disconnect cascading
// cleanly to the Publisher), per spec.md §9's failure-cause rule.
func (c *Campaign) Failed() bool {
	return c.publisher.Termination().Cause.IsFailure()
}

// Wait blocks until every actor in the campaign has fully terminated (not
// just the Publisher), or ctx is cancelled.
func (c *Campaign) Wait(ctx context.Context) error {
	waitDone := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

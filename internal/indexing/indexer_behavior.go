package indexing

import (
	"context"
	"sync"

	"github.com/roasbeef/quiver/internal/actor"
	"github.com/roasbeef/quiver/internal/indexiface"
	"github.com/roasbeef/quiver/internal/metastore"
	"github.com/roasbeef/quiver/internal/quivererr"
)

// IndexerConfig configures one Indexer's split, per spec.md §4.5's
// {index_id, index_config, mem_budget_in_bytes}.
type IndexerConfig struct {
	Schema         *indexiface.Schema
	MemBudgetBytes uint64

	// Label identifies the split this Indexer is building, for logging
	// and for the manifest the Packager later builds from it.
	Label string
}

// IndexerObservableState reports an Indexer's in-flight split, including
// the num_docs_in_split counter spec.md §4.5 calls out as observable.
type IndexerObservableState struct {
	NumDocsInSplit uint64
}

// IndexerBehavior buffers documents into an indexiface.IndexWriter and
// commits them to a scratch directory once its mailbox disconnects. It's
// sync: building postings is CPU-bound work that belongs on the dedicated
// worker pool, not interleaved with other actors' async I/O waits.
type IndexerBehavior struct {
	cfg     IndexerConfig
	writer  indexiface.IndexWriter
	scratch ScratchDirectory

	downstream actor.Mailbox[IndexedSplit, PackagerObservableState]

	mu         sync.Mutex
	checkpoint metastore.Checkpoint
	numDocs    uint64
}

// NewIndexerBehavior builds an IndexerBehavior over a fresh scratch
// directory. Each Indexer instance owns exactly one scratch area for its
// whole lifetime; recreating one mid-split isn't a state this type exposes.
func NewIndexerBehavior(
	cfg IndexerConfig,
	scratch ScratchDirectory,
	downstream actor.Mailbox[IndexedSplit, PackagerObservableState],
) *IndexerBehavior {

	return &IndexerBehavior{
		cfg:        cfg,
		writer:     indexiface.NewMemoryWriter(cfg.Schema, cfg.MemBudgetBytes),
		scratch:    scratch,
		downstream: downstream,
	}
}

func (b *IndexerBehavior) ProcessMessage(ctx context.Context, msg Batch, progress *actor.Progress) actor.ProcessResult {
	for _, raw := range msg.Docs {
		doc, err := indexiface.ParseDocument(b.cfg.Schema, raw)
		if err != nil {
			return actor.ResultError(&quivererr.IndexError{Err: err})
		}
		if err := b.writer.AddDocument(doc); err != nil {
			return actor.ResultError(&quivererr.IndexError{Err: err})
		}
		progress.Mark()
	}

	b.mu.Lock()
	b.numDocs += uint64(len(msg.Docs))
	b.checkpoint.Merge(msg.CheckpointUpdate)
	b.mu.Unlock()

	return actor.ResultOK()
}

func (b *IndexerBehavior) ObservableState() IndexerObservableState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return IndexerObservableState{NumDocsInSplit: b.numDocs}
}

// Finalize commits the writer's buffered documents to the scratch
// directory, forwards the result to the Packager, and closes the
// Packager's mailbox so CauseDisconnect cascades one stage further once
// this, the only message it will ever send, has landed.
func (b *IndexerBehavior) Finalize(ctx context.Context) error {
	fileNames, err := b.writer.Commit(ctx, b.scratch)
	if err != nil {
		return &quivererr.IndexError{Err: err}
	}

	b.mu.Lock()
	checkpoint := b.checkpoint
	numDocs := b.numDocs
	b.mu.Unlock()

	sent := b.downstream.Send(ctx, IndexedSplit{
		Label:      b.cfg.Label,
		NumDocs:    numDocs,
		Checkpoint: checkpoint,
		Scratch:    b.scratch,
		FileNames:  fileNames,
	})
	b.downstream.Close()

	if !sent {
		return quivererr.ErrDownstreamClosed
	}
	return nil
}

var _ actor.ActorBehavior[Batch, IndexerObservableState] = (*IndexerBehavior)(nil)
var _ actor.Finalizer = (*IndexerBehavior)(nil)

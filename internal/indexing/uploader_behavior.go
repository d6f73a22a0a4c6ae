package indexing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/errgroup"

	"github.com/roasbeef/quiver/internal/actor"
	"github.com/roasbeef/quiver/internal/directory"
	"github.com/roasbeef/quiver/internal/metastore"
	"github.com/roasbeef/quiver/internal/metastore/ledger"
	"github.com/roasbeef/quiver/internal/storageiface"
)

// UploaderObservableState reports how many splits an Uploader has staged
// and copied to durable storage.
type UploaderObservableState struct {
	SplitsUploaded uint64
}

// UploaderConfig configures an Uploader's concurrency, per spec.md §4.5's
// MAX_CONCURRENT_SPLIT_TASKS knob.
type UploaderConfig struct {
	MaxConcurrentUploads int
}

// UploaderBehavior allocates a split id, stages it in the metastore, copies
// every manifest file (and the hot-cache) to storage with bounded
// concurrency, then hands off to the Publisher. It's async: uploads are
// I/O-bound and benefit from overlapping with the rest of the pipeline
// rather than occupying a dedicated sync worker.
type UploaderBehavior struct {
	cfg     UploaderConfig
	storage storageiface.Storage
	meta    *metastore.Store
	ledger  *ledger.Ledger

	downstream actor.Mailbox[PublishRequest, PublisherObservableState]

	mu       sync.Mutex
	uploaded uint64
}

// NewUploaderBehavior builds an UploaderBehavior. storage is the index's
// root storage location; each split is uploaded under storage.WithPrefix(splitID).
// led may be nil, in which case no ledger record is written, so GC's
// minimum-age filter treats every split staged by this uploader as having
// unknown age and leaves it alone (see gc.GarbageCollectIndex).
func NewUploaderBehavior(
	cfg UploaderConfig,
	storage storageiface.Storage,
	meta *metastore.Store,
	led *ledger.Ledger,
	downstream actor.Mailbox[PublishRequest, PublisherObservableState],
) *UploaderBehavior {

	if cfg.MaxConcurrentUploads <= 0 {
		cfg.MaxConcurrentUploads = 4
	}

	return &UploaderBehavior{cfg: cfg, storage: storage, meta: meta, ledger: led, downstream: downstream}
}

func (b *UploaderBehavior) ProcessMessage(ctx context.Context, msg PackagedSplit, progress *actor.Progress) actor.ProcessResult {
	splitID := uuid.New().String()

	splitMeta := metastore.SplitMetadata{
		SplitID:         splitID,
		NumRecords:      msg.NumDocs,
		Generation:      1,
		UpdateTimestamp: time.Now().Unix(),
		FooterStartEnd:  []uint64{0, msg.Manifest.SplitFooterSize},
	}
	if err := b.meta.StageSplit(splitMeta); err != nil {
		return actor.ResultError(err)
	}
	if b.ledger != nil {
		if err := b.ledger.RecordStaged(splitID, time.Now()); err != nil {
			return actor.ResultError(err)
		}
	}

	splitStorage := b.storage.WithPrefix(splitID)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.MaxConcurrentUploads)

	for _, file := range msg.Manifest.Files {
		file := file
		g.Go(func() error {
			data, err := msg.Scratch.ReadFile(gctx, file.Name)
			if err != nil {
				return err
			}
			progress.Mark()
			return splitStorage.Put(gctx, file.Name, data)
		})
	}
	g.Go(func() error {
		progress.Mark()
		return splitStorage.Put(gctx, directory.HotCacheFileName, msg.Manifest.HotCache)
	})

	var uploadResult fn.Result[struct{}]
	if err := g.Wait(); err != nil {
		uploadResult = fn.Err[struct{}](err)
	} else {
		uploadResult = fn.Ok(struct{}{})
	}

	// The split stays Staged on failure; a later garbage-collection pass
	// reclaims it since it was never published.
	if result := actor.ResultFrom(uploadResult); !result.IsOK() {
		return result
	}

	sent := b.downstream.Send(ctx, PublishRequest{SplitID: splitID, Checkpoint: msg.Checkpoint})
	if !sent {
		return actor.ResultDownstreamClosed()
	}

	b.mu.Lock()
	b.uploaded++
	b.mu.Unlock()

	return actor.ResultOK()
}

func (b *UploaderBehavior) ObservableState() UploaderObservableState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return UploaderObservableState{SplitsUploaded: b.uploaded}
}

// Finalize closes the Publisher's mailbox, cascading CauseDisconnect the
// final stage down the pipeline.
func (b *UploaderBehavior) Finalize(ctx context.Context) error {
	b.downstream.Close()
	return nil
}

var _ actor.ActorBehavior[PackagedSplit, UploaderObservableState] = (*UploaderBehavior)(nil)
var _ actor.Finalizer = (*UploaderBehavior)(nil)

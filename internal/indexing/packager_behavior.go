package indexing

import (
	"context"
	"sync"

	"github.com/roasbeef/quiver/internal/actor"
	"github.com/roasbeef/quiver/internal/directory"
	"github.com/roasbeef/quiver/internal/storageiface"
)

// PackagerObservableState reports how many splits a Packager has built a
// manifest for.
type PackagerObservableState struct {
	SplitsPackaged uint64
}

// PackagerBehavior reads back every file an Indexer committed, builds the
// split's manifest and hot-cache blob (internal/directory.BuildHotCache),
// and forwards the result to the Uploader. It's sync: building the hot-cache
// means reading every committed file back into memory, matching the
// Indexer's CPU/IO-bound profile.
type PackagerBehavior struct {
	downstream actor.Mailbox[PackagedSplit, UploaderObservableState]

	mu       sync.Mutex
	packaged uint64
}

// NewPackagerBehavior builds a PackagerBehavior.
func NewPackagerBehavior(downstream actor.Mailbox[PackagedSplit, UploaderObservableState]) *PackagerBehavior {
	return &PackagerBehavior{downstream: downstream}
}

func (b *PackagerBehavior) ProcessMessage(ctx context.Context, msg IndexedSplit, progress *actor.Progress) actor.ProcessResult {
	files := make([]ManifestFile, 0, len(msg.FileNames))
	hotEntries := make([]directory.HotCacheEntry, 0, len(msg.FileNames))

	for _, name := range msg.FileNames {
		data, err := msg.Scratch.ReadFile(ctx, name)
		if err != nil {
			return actor.ResultError(err)
		}

		files = append(files, ManifestFile{Name: name, SizeBytes: uint64(len(data))})
		hotEntries = append(hotEntries, directory.HotCacheEntry{
			Path:  name,
			Range: storageiface.WholeObject,
			Data:  data,
		})
		progress.Mark()
	}

	hotCache, err := directory.BuildHotCache(hotEntries)
	if err != nil {
		return actor.ResultError(err)
	}

	manifest := Manifest{
		Label:           msg.Label,
		Files:           files,
		HotCache:        hotCache,
		SplitFooterSize: uint64(len(hotCache)),
	}

	sent := b.downstream.Send(ctx, PackagedSplit{
		Label:      msg.Label,
		NumDocs:    msg.NumDocs,
		Checkpoint: msg.Checkpoint,
		Manifest:   manifest,
		Scratch:    msg.Scratch,
	})
	if !sent {
		return actor.ResultDownstreamClosed()
	}

	b.mu.Lock()
	b.packaged++
	b.mu.Unlock()

	return actor.ResultOK()
}

func (b *PackagerBehavior) ObservableState() PackagerObservableState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return PackagerObservableState{SplitsPackaged: b.packaged}
}

// Finalize closes the Uploader's mailbox, cascading CauseDisconnect one
// stage further down the pipeline. The Packager has nothing left to send
// once its own mailbox disconnects: it forwards every split inline from
// ProcessMessage.
func (b *PackagerBehavior) Finalize(ctx context.Context) error {
	b.downstream.Close()
	return nil
}

var _ actor.ActorBehavior[IndexedSplit, PackagerObservableState] = (*PackagerBehavior)(nil)
var _ actor.Finalizer = (*PackagerBehavior)(nil)

package indexing

import (
	"context"

	"github.com/roasbeef/quiver/internal/indexiface"
	"github.com/roasbeef/quiver/internal/storageiface"
)

// ScratchDirectory is the local work area one Indexer commits a split's
// files to, and the Packager and Uploader subsequently read them back from.
// It extends indexiface.WriteDirectory with a read path, since unlike a
// published split's storage location, the scratch area is read back from
// the same process that wrote it.
type ScratchDirectory interface {
	indexiface.WriteDirectory

	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// storageScratch adapts a storageiface.Storage (typically a LocalStorage
// rooted at a fresh temp directory) into a ScratchDirectory, reusing the
// same collaborator the teacher's storage layer already provides instead of
// inventing a parallel scratch abstraction.
type storageScratch struct {
	storage storageiface.Storage
}

// NewStorageScratch wraps storage as a ScratchDirectory. Callers are
// expected to hand each Indexer a freshly rooted storage (e.g. via
// WithPrefix or a fresh LocalStorage directory) so scratch areas never
// overlap between concurrently running splits.
func NewStorageScratch(storage storageiface.Storage) ScratchDirectory {
	return storageScratch{storage: storage}
}

func (s storageScratch) WriteFile(ctx context.Context, name string, data []byte) error {
	return s.storage.Put(ctx, name, data)
}

func (s storageScratch) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return s.storage.Get(ctx, name, storageiface.WholeObject)
}

var _ ScratchDirectory = storageScratch{}

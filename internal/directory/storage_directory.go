package directory

import (
	"context"

	"github.com/roasbeef/quiver/internal/storageiface"
)

// StorageDirectory is the base of the read directory stack: it reads
// straight through to object storage with no caching of its own.
type StorageDirectory struct {
	storage storageiface.Storage
}

// NewStorageDirectory wraps storage as a Directory.
func NewStorageDirectory(storage storageiface.Storage) *StorageDirectory {
	return &StorageDirectory{storage: storage}
}

func (d *StorageDirectory) ReadRange(ctx context.Context, path string, r storageiface.ByteRange) ([]byte, error) {
	return d.storage.Get(ctx, path, r)
}

var _ Directory = (*StorageDirectory)(nil)

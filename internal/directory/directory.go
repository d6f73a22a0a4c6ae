// Package directory implements spec.md §4.4: a read-only, byte-range cache
// layered over storageiface.Storage, plus the hot-cache sidecar file
// format and the StorageDirectory -> CachingDirectory -> HotDirectory
// stack spec.md §4.8 opens every split through.
package directory

import (
	"context"

	"github.com/roasbeef/quiver/internal/storageiface"
)

// Directory is a byte-range read collaborator. Its signature matches
// indexiface.ReaderSource, so any Directory backs a Searcher directly.
type Directory interface {
	ReadRange(ctx context.Context, path string, r storageiface.ByteRange) ([]byte, error)
}

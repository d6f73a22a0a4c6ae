package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/roasbeef/quiver/internal/storageiface"
)

// HotCacheFileName is the conventional sidecar file name spec.md §4.4
// requires alongside every split.
const HotCacheFileName = "hotcache"

// HotCacheEntry is one pre-fetched byte range bundled into a split's
// hot-cache blob: a terms dictionary header, a fast-field header, a
// segment meta block, or similar.
type HotCacheEntry struct {
	Path  string
	Range storageiface.ByteRange
	Data  []byte
}

// BuildHotCache serializes entries into the blob a split's hotcache file
// holds, in a deterministic (path, range) order so identical inputs
// always produce identical bytes — splits are content-addressed and
// immutable, so the hot-cache build must be reproducible.
func BuildHotCache(entries []HotCacheEntry) ([]byte, error) {
	sorted := append([]HotCacheEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Path != sorted[j].Path {
			return sorted[i].Path < sorted[j].Path
		}
		return sorted[i].Range.Start < sorted[j].Range.Start
	})

	blob, err := json.Marshal(sorted)
	if err != nil {
		return nil, fmt.Errorf("directory: build hot cache: %w", err)
	}
	return blob, nil
}

// FetchHotCache fetches a split's hotcache file in one request, per
// spec.md §4.4's "fetched in one request" step.
func FetchHotCache(ctx context.Context, storage storageiface.Storage) ([]byte, error) {
	return storage.Get(ctx, HotCacheFileName, storageiface.WholeObject)
}

type hotKey struct {
	path string
	r    storageiface.ByteRange
}

// HotDirectory pre-seeds a fixed set of (path, range) reads from a
// decoded hot-cache blob; every other read falls through to below. Once
// built, a HotDirectory never re-fetches its preseeded entries.
type HotDirectory struct {
	below     Directory
	preseeded map[hotKey][]byte
}

// NewHotDirectory decodes hotCacheBlob (as produced by BuildHotCache) and
// wraps below with it.
func NewHotDirectory(below Directory, hotCacheBlob []byte) (*HotDirectory, error) {
	var entries []HotCacheEntry
	if err := json.Unmarshal(hotCacheBlob, &entries); err != nil {
		return nil, fmt.Errorf("directory: decode hot cache: %w", err)
	}

	preseeded := make(map[hotKey][]byte, len(entries))
	for _, e := range entries {
		preseeded[hotKey{path: e.Path, r: e.Range}] = e.Data
	}

	return &HotDirectory{below: below, preseeded: preseeded}, nil
}

func (h *HotDirectory) ReadRange(ctx context.Context, path string, r storageiface.ByteRange) ([]byte, error) {
	if data, ok := h.preseeded[hotKey{path: path, r: r}]; ok {
		return data, nil
	}
	return h.below.ReadRange(ctx, path, r)
}

var _ Directory = (*HotDirectory)(nil)

// OpenSplitDirectory builds the read stack spec.md §4.8 step 3 prescribes
// for opening one split: storage-backed base, an unbounded caching layer
// (finite in practice because hot-cache-listed ranges are answered by the
// layer above it, so only reads outside the hot cache reach it), and a
// hot-cache layer pre-seeded
// from the split's hotcache blob (fetched here in one request, step 2).
func OpenSplitDirectory(ctx context.Context, storage storageiface.Storage) (Directory, error) {
	hotCacheBlob, err := FetchHotCache(ctx, storage)
	if err != nil {
		return nil, err
	}

	base := NewStorageDirectory(storage)
	caching := NewCachingDirectory(base, 0)
	return NewHotDirectory(caching, hotCacheBlob)
}

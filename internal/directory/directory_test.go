package directory

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/quiver/internal/storageiface"
)

// countingDirectory wraps another Directory and counts ReadRange calls,
// used to assert on cache hit/miss behavior.
type countingDirectory struct {
	below Directory
	calls atomic.Int64
}

func (d *countingDirectory) ReadRange(ctx context.Context, path string, r storageiface.ByteRange) ([]byte, error) {
	d.calls.Add(1)
	return d.below.ReadRange(ctx, path, r)
}

func newLocalStorage(t *testing.T) storageiface.Storage {
	t.Helper()
	s, err := storageiface.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestCachingDirectoryUnboundedHitsCacheOnSecondRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newLocalStorage(t)
	require.NoError(t, storage.Put(ctx, "obj", []byte("0123456789")))

	counting := &countingDirectory{below: NewStorageDirectory(storage)}
	caching := NewCachingDirectory(counting, 0)

	r := storageiface.ByteRange{Start: 2, Length: 3}

	got1, err := caching.ReadRange(ctx, "obj", r)
	require.NoError(t, err)
	require.Equal(t, "234", string(got1))

	got2, err := caching.ReadRange(ctx, "obj", r)
	require.NoError(t, err)
	require.Equal(t, "234", string(got2))

	require.EqualValues(t, 1, counting.calls.Load())
	require.Equal(t, 1, caching.Len())
}

func TestCachingDirectoryBoundedEvictsLRU(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newLocalStorage(t)
	require.NoError(t, storage.Put(ctx, "a", []byte("aaaaa")))
	require.NoError(t, storage.Put(ctx, "b", []byte("bbbbb")))
	require.NoError(t, storage.Put(ctx, "c", []byte("ccccc")))

	counting := &countingDirectory{below: NewStorageDirectory(storage)}
	// Budget fits exactly two 5-byte entries.
	caching := NewCachingDirectory(counting, 10)

	whole := storageiface.WholeObject
	_, err := caching.ReadRange(ctx, "a", whole)
	require.NoError(t, err)
	_, err = caching.ReadRange(ctx, "b", whole)
	require.NoError(t, err)
	require.Equal(t, 2, caching.Len())

	// Touch "a" so "b" becomes the least-recently-used entry.
	_, err = caching.ReadRange(ctx, "a", whole)
	require.NoError(t, err)
	require.EqualValues(t, 2, counting.calls.Load())

	// Fetching "c" should evict "b", not "a".
	_, err = caching.ReadRange(ctx, "c", whole)
	require.NoError(t, err)
	require.Equal(t, 2, caching.Len())

	baseline := counting.calls.Load()
	_, err = caching.ReadRange(ctx, "a", whole)
	require.NoError(t, err)
	require.Equal(t, baseline, counting.calls.Load(), "a should still be cached")

	_, err = caching.ReadRange(ctx, "b", whole)
	require.NoError(t, err)
	require.Equal(t, baseline+1, counting.calls.Load(), "b should have been evicted")
}

func TestCachingDirectoryOversizedResultNotCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newLocalStorage(t)
	require.NoError(t, storage.Put(ctx, "big", make([]byte, 100)))

	counting := &countingDirectory{below: NewStorageDirectory(storage)}
	caching := NewCachingDirectory(counting, 10)

	_, err := caching.ReadRange(ctx, "big", storageiface.WholeObject)
	require.NoError(t, err)
	require.Equal(t, 0, caching.Len())

	_, err = caching.ReadRange(ctx, "big", storageiface.WholeObject)
	require.NoError(t, err)
	require.EqualValues(t, 2, counting.calls.Load())
}

func TestHotDirectoryServesPreseededEntriesWithoutDelegating(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newLocalStorage(t)
	require.NoError(t, storage.Put(ctx, "obj", []byte("hello hot cache")))

	r := storageiface.ByteRange{Start: 0, Length: 5}
	blob, err := BuildHotCache([]HotCacheEntry{
		{Path: "obj", Range: r, Data: []byte("hello")},
	})
	require.NoError(t, err)

	counting := &countingDirectory{below: NewStorageDirectory(storage)}
	hot, err := NewHotDirectory(counting, blob)
	require.NoError(t, err)

	got, err := hot.ReadRange(ctx, "obj", r)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
	require.Zero(t, counting.calls.Load(), "preseeded read should never reach below")

	got, err = hot.ReadRange(ctx, "obj", storageiface.ByteRange{Start: 6, Length: 3})
	require.NoError(t, err)
	require.Equal(t, "hot", string(got))
	require.EqualValues(t, 1, counting.calls.Load(), "non-preseeded read should delegate")
}

func TestOpenSplitDirectoryLayersHotOverCachingOverStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newLocalStorage(t)
	require.NoError(t, storage.Put(ctx, "segment.json", []byte(`{"docs":[]}`)))

	blob, err := BuildHotCache([]HotCacheEntry{
		{Path: "segment.json", Range: storageiface.WholeObject, Data: []byte(`{"docs":[]}`)},
	})
	require.NoError(t, err)
	require.NoError(t, storage.Put(ctx, HotCacheFileName, blob))

	dir, err := OpenSplitDirectory(ctx, storage)
	require.NoError(t, err)

	got, err := dir.ReadRange(ctx, "segment.json", storageiface.WholeObject)
	require.NoError(t, err)
	require.Equal(t, `{"docs":[]}`, string(got))
}

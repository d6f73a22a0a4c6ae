package storageiface

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLocalStorage(t *testing.T) *LocalStorage {
	t.Helper()

	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	return s
}

func TestLocalStoragePutGetWholeObject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestLocalStorage(t)

	require.NoError(t, s.Put(ctx, "splits/a/split.data", []byte("hello world")))

	got, err := s.Get(ctx, "splits/a/split.data", WholeObject)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))
}

func TestLocalStorageByteRangeRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestLocalStorage(t)

	require.NoError(t, s.Put(ctx, "object", []byte("0123456789")))

	got, err := s.Get(ctx, "object", ByteRange{Start: 3, Length: 4})
	require.NoError(t, err)
	require.Equal(t, "3456", string(got))
}

func TestLocalStorageByteRangePastEOFTruncates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestLocalStorage(t)

	require.NoError(t, s.Put(ctx, "object", []byte("short")))

	got, err := s.Get(ctx, "object", ByteRange{Start: 2, Length: 100})
	require.NoError(t, err)
	require.Equal(t, "ort", string(got))
}

func TestLocalStorageGetMissingPath(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestLocalStorage(t)

	_, err := s.Get(ctx, "nope", WholeObject)
	require.Error(t, err)
}

func TestLocalStorageDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestLocalStorage(t)

	require.NoError(t, s.Put(ctx, "object", []byte("data")))
	require.NoError(t, s.Delete(ctx, "object"))
	// Deleting again, and deleting something that never existed, are both
	// fine.
	require.NoError(t, s.Delete(ctx, "object"))
	require.NoError(t, s.Delete(ctx, "never-existed"))

	_, err := s.Get(ctx, "object", WholeObject)
	require.Error(t, err)
}

func TestLocalStorageListPrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestLocalStorage(t)

	require.NoError(t, s.Put(ctx, "idx-a/split-1/data", []byte("1")))
	require.NoError(t, s.Put(ctx, "idx-a/split-2/data", []byte("2")))
	require.NoError(t, s.Put(ctx, "idx-b/split-3/data", []byte("3")))

	got, err := s.ListPrefix(ctx, "idx-a/")
	require.NoError(t, err)
	sort.Strings(got)
	require.Equal(t, []string{"idx-a/split-1/data", "idx-a/split-2/data"}, got)
}

func TestLocalStorageListPrefixEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestLocalStorage(t)

	got, err := s.ListPrefix(ctx, "nothing-here/")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestLocalStorageWithPrefixRootsSubsequentPaths(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := newTestLocalStorage(t)

	indexView := root.WithPrefix("idx-a")
	splitView := indexView.WithPrefix("split-1")

	require.NoError(t, splitView.Put(ctx, "manifest.json", []byte("{}")))

	got, err := root.Get(ctx, "idx-a/split-1/manifest.json", WholeObject)
	require.NoError(t, err)
	require.Equal(t, "{}", string(got))
}

func TestNewLocalStorageCreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "data")

	s, err := NewLocalStorage(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "obj", []byte("x")))
}

package indexiface

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/quiver/internal/storageiface"
)

// testDirectory is a minimal in-memory WriteDirectory + ReaderSource,
// standing in for the real caching-directory stack so this package's
// tests don't depend on it.
type testDirectory struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newTestDirectory() *testDirectory {
	return &testDirectory{files: make(map[string][]byte)}
}

func (d *testDirectory) WriteFile(ctx context.Context, name string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.files[name] = append([]byte(nil), data...)
	return nil
}

func (d *testDirectory) ReadRange(ctx context.Context, path string, r storageiface.ByteRange) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, ok := d.files[path]
	if !ok {
		return nil, &fileNotFoundError{path: path}
	}
	if r.IsWhole() {
		return append([]byte(nil), data...), nil
	}

	end := int(r.Start + r.Length)
	if end > len(data) {
		end = len(data)
	}
	return append([]byte(nil), data[r.Start:end]...), nil
}

type fileNotFoundError struct{ path string }

func (e *fileNotFoundError) Error() string { return "file not found: " + e.path }

func mustSchema(t *testing.T) *Schema {
	t.Helper()

	schema, err := NewSchema(
		FieldEntry{Name: "body", Type: FieldText, Indexed: true},
		FieldEntry{Name: "score", Type: FieldI64, Fast: true},
	)
	require.NoError(t, err)
	return schema
}

func TestSchemaRejectsDuplicateFields(t *testing.T) {
	t.Parallel()

	_, err := NewSchema(
		FieldEntry{Name: "body", Type: FieldText},
		FieldEntry{Name: "body", Type: FieldText},
	)
	require.Error(t, err)
}

func TestParseDocumentDropsUnknownFieldsAndChecksFastFields(t *testing.T) {
	t.Parallel()

	schema := mustSchema(t)

	doc, err := ParseDocument(schema, json.RawMessage(`{"body":"hello world","score":7,"unknown":"x"}`))
	require.NoError(t, err)
	require.Equal(t, "hello world", doc["body"])
	require.Equal(t, float64(7), doc["score"])
	require.NotContains(t, doc, "unknown")

	_, err = ParseDocument(schema, json.RawMessage(`{"score":"not-a-number"}`))
	require.Error(t, err)
}

func buildTestIndex(t *testing.T, schema *Schema, docs []map[string]any) (Index, *testDirectory) {
	t.Helper()

	dir := newTestDirectory()
	w := NewMemoryWriter(schema, 1<<20)
	for _, raw := range docs {
		blob, err := json.Marshal(raw)
		require.NoError(t, err)
		doc, err := ParseDocument(schema, blob)
		require.NoError(t, err)
		require.NoError(t, w.AddDocument(doc))
	}

	paths, err := w.Commit(context.Background(), dir)
	require.NoError(t, err)

	return NewMemoryIndex(schema, paths), dir
}

func TestMemoryIndexEndToEndTermQuery(t *testing.T) {
	t.Parallel()

	schema := mustSchema(t)
	idx, dir := buildTestIndex(t, schema, []map[string]any{
		{"body": "the quick fox", "score": 3},
		{"body": "the slow fox", "score": 2},
		{"body": "a dog", "score": 1},
	})

	searcher, err := idx.Open(context.Background(), dir)
	require.NoError(t, err)

	query := &TermQuery{Field: "body", Term: "fox"}
	collector := &TopKCollector{SortField: "score", K: 10}

	require.NoError(t, searcher.WarmTerms(context.Background(), query.Terms()))
	require.NoError(t, searcher.WarmFastFields(context.Background(), collector.FastFields()))

	fruit, err := collector.Collect(context.Background(), searcher, query)
	require.NoError(t, err)
	top := fruit.(*TopKFruit)

	require.EqualValues(t, 2, top.NumHits)
	require.Len(t, top.Hits, 2)
	require.Equal(t, int64(3), top.Hits[0].SortValue)
	require.Equal(t, int64(2), top.Hits[1].SortValue)
}

func TestMemoryIndexBooleanQueryIntersects(t *testing.T) {
	t.Parallel()

	schema := mustSchema(t)
	idx, dir := buildTestIndex(t, schema, []map[string]any{
		{"body": "quick brown fox", "score": 1},
		{"body": "quick fox only", "score": 2},
		{"body": "brown only", "score": 3},
	})

	searcher, err := idx.Open(context.Background(), dir)
	require.NoError(t, err)

	query := &BooleanQuery{Must: []Query{
		&TermQuery{Field: "body", Term: "quick"},
		&TermQuery{Field: "body", Term: "fox"},
	}}
	collector := &TopKCollector{SortField: "score", K: 10}

	require.NoError(t, searcher.WarmTerms(context.Background(), query.Terms()))
	require.NoError(t, searcher.WarmFastFields(context.Background(), collector.FastFields()))

	fruit, err := collector.Collect(context.Background(), searcher, query)
	require.NoError(t, err)
	top := fruit.(*TopKFruit)
	require.EqualValues(t, 2, top.NumHits)
}

func TestWarmFastFieldsRejectsUnknownOrNonFastField(t *testing.T) {
	t.Parallel()

	schema := mustSchema(t)
	idx, dir := buildTestIndex(t, schema, nil)

	searcher, err := idx.Open(context.Background(), dir)
	require.NoError(t, err)

	require.Error(t, searcher.WarmFastFields(context.Background(), []string{"nope"}))
	require.Error(t, searcher.WarmFastFields(context.Background(), []string{"body"}))
}

func TestMergeFruitsAcrossMultipleSplits(t *testing.T) {
	t.Parallel()

	schema := mustSchema(t)
	collector := &TopKCollector{SortField: "score", K: 2}

	idxA, dirA := buildTestIndex(t, schema, []map[string]any{
		{"body": "fox a", "score": 5},
		{"body": "fox b", "score": 1},
	})
	idxB, dirB := buildTestIndex(t, schema, []map[string]any{
		{"body": "fox c", "score": 4},
	})

	query := &TermQuery{Field: "body", Term: "fox"}

	var fruits []Fruit
	for _, pair := range []struct {
		idx Index
		dir *testDirectory
	}{{idxA, dirA}, {idxB, dirB}} {
		searcher, err := pair.idx.Open(context.Background(), pair.dir)
		require.NoError(t, err)
		require.NoError(t, searcher.WarmTerms(context.Background(), query.Terms()))
		require.NoError(t, searcher.WarmFastFields(context.Background(), collector.FastFields()))

		fruit, err := collector.Collect(context.Background(), searcher, query)
		require.NoError(t, err)
		fruits = append(fruits, fruit)
	}

	merged, err := collector.MergeFruits(fruits)
	require.NoError(t, err)
	top := merged.(*TopKFruit)

	require.EqualValues(t, 3, top.NumHits)
	require.Len(t, top.Hits, 2)
	require.Equal(t, int64(5), top.Hits[0].SortValue)
	require.Equal(t, int64(4), top.Hits[1].SortValue)
}

func TestDocFetchesOriginalDocument(t *testing.T) {
	t.Parallel()

	schema := mustSchema(t)
	idx, dir := buildTestIndex(t, schema, []map[string]any{
		{"body": "only doc", "score": 9},
	})

	searcher, err := idx.Open(context.Background(), dir)
	require.NoError(t, err)
	require.NoError(t, searcher.WarmTerms(context.Background(), nil))

	doc, err := searcher.Doc(0, 0)
	require.NoError(t, err)
	require.Equal(t, "only doc", doc["body"])

	_, err = searcher.Doc(0, 5)
	require.Error(t, err)
}

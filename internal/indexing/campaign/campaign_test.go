package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/quiver/internal/indexiface"
	"github.com/roasbeef/quiver/internal/indexing"
	"github.com/roasbeef/quiver/internal/metastore"
	"github.com/roasbeef/quiver/internal/storageiface"
)

// sliceSource is a minimal in-memory indexing.DocSource for campaign tests.
type sliceSource struct {
	mu        sync.Mutex
	remaining []json.RawMessage
	batchSize int
}

func newSliceSource(docs []json.RawMessage, batchSize int) *sliceSource {
	return &sliceSource{remaining: docs, batchSize: batchSize}
}

func (s *sliceSource) Next(ctx context.Context) ([]json.RawMessage, metastore.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.remaining) == 0 {
		return nil, metastore.Checkpoint{}, io.EOF
	}

	n := s.batchSize
	if n > len(s.remaining) {
		n = len(s.remaining)
	}
	batch := s.remaining[:n]
	s.remaining = s.remaining[n:]

	return batch, metastore.Checkpoint{}, nil
}

// failingSource always errors, used to exercise the kill-switch failure
// path end to end.
type failingSource struct{}

func (failingSource) Next(ctx context.Context) ([]json.RawMessage, metastore.Checkpoint, error) {
	return nil, metastore.Checkpoint{}, errUpstream
}

var errUpstream = errors.New("upstream read failed")

func testSchema(t *testing.T) *indexiface.Schema {
	t.Helper()
	schema, err := indexiface.NewSchema(
		indexiface.FieldEntry{Name: "body", Type: indexiface.FieldText, Indexed: true},
	)
	require.NoError(t, err)
	return schema
}

func newConfig(t *testing.T, source indexing.DocSource) Config {
	t.Helper()

	metaPath := t.TempDir() + "/metastore.json"
	store, err := metastore.Create(metaPath, metastore.IndexMetadata{IndexID: "campaign-test"})
	require.NoError(t, err)

	storage, err := storageiface.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	scratchStorage, err := storageiface.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	return Config{
		SourceID:             "src-1",
		IndexID:              "campaign-test",
		Source:               source,
		Schema:               testSchema(t),
		MemBudgetBytes:       1 << 20,
		Scratch:              indexing.NewStorageScratch(scratchStorage),
		Storage:              storage,
		Metastore:            store,
		MaxConcurrentUploads: 2,
	}
}

func TestCampaignPublishesOneSplitOnCleanDrain(t *testing.T) {
	t.Parallel()

	docs := make([]json.RawMessage, 0, 12)
	for i := 0; i < 12; i++ {
		docs = append(docs, json.RawMessage(`{"body":"hello"}`))
	}

	cfg := newConfig(t, newSliceSource(docs, 5))
	store := cfg.Metastore

	c := Start(cfg)

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("campaign did not complete in time")
	}

	require.False(t, c.Failed())

	published := store.ListSplits(metastore.SplitPublished, nil)
	require.Len(t, published, 1)
	require.EqualValues(t, 12, published[0].NumRecords)
}

func TestCampaignFailsWhenSourceErrors(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t, failingSource{})
	store := cfg.Metastore

	c := Start(cfg)

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("campaign did not complete in time")
	}

	require.True(t, c.Failed())
	require.Empty(t, store.ListSplits(metastore.SplitPublished, nil))
}

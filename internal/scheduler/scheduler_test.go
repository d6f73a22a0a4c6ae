package scheduler

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/quiver/internal/indexiface"
	"github.com/roasbeef/quiver/internal/indexing"
	"github.com/roasbeef/quiver/internal/indexing/campaign"
	"github.com/roasbeef/quiver/internal/metastore"
	"github.com/roasbeef/quiver/internal/storageiface"
)

// sliceSource is a minimal in-memory indexing.DocSource for scheduler tests.
type sliceSource struct {
	mu        sync.Mutex
	remaining []json.RawMessage
}

func newSliceSource(docs []json.RawMessage) *sliceSource {
	return &sliceSource{remaining: docs}
}

func (s *sliceSource) Next(ctx context.Context) ([]json.RawMessage, metastore.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.remaining) == 0 {
		return nil, metastore.Checkpoint{}, io.EOF
	}
	batch := s.remaining
	s.remaining = nil
	return batch, metastore.Checkpoint{}, nil
}

func testSchema(t *testing.T) *indexiface.Schema {
	t.Helper()
	schema, err := indexiface.NewSchema(
		indexiface.FieldEntry{Name: "body", Type: indexiface.FieldText, Indexed: true},
	)
	require.NoError(t, err)
	return schema
}

// TestSchedulerDispatchesOneCampaignPerTick wires one source with a short
// indexing period and asserts the builder gets invoked and the resulting
// campaign runs to completion.
func TestSchedulerDispatchesOneCampaignPerTick(t *testing.T) {
	t.Parallel()

	var builds int32

	build := func(ctx context.Context, req CampaignRequest) (campaign.Config, error) {
		atomic.AddInt32(&builds, 1)

		metaPath := t.TempDir() + "/metastore.json"
		store, err := metastore.Create(metaPath, metastore.IndexMetadata{IndexID: req.IndexID})
		require.NoError(t, err)

		storage, err := storageiface.NewLocalStorage(t.TempDir())
		require.NoError(t, err)

		scratchStorage, err := storageiface.NewLocalStorage(t.TempDir())
		require.NoError(t, err)

		docs := []json.RawMessage{json.RawMessage(`{"body":"hello"}`)}

		return campaign.Config{
			SourceID:             req.SourceID,
			IndexID:              req.IndexID,
			Source:               newSliceSource(docs),
			Schema:               testSchema(t),
			MemBudgetBytes:       1 << 20,
			Scratch:              indexing.NewStorageScratch(scratchStorage),
			Storage:              storage,
			Metastore:            store,
			MaxConcurrentUploads: 2,
		}, nil
	}

	sched := New(build)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	sched.Start(ctx, []SourceIndexingConfig{
		{SourceID: "src-1", IndexID: "idx-1", IndexingPeriod: 20 * time.Millisecond},
	})

	<-ctx.Done()
	sched.Stop()

	require.GreaterOrEqual(t, atomic.LoadInt32(&builds), int32(1))
	require.Empty(t, sched.Active())
}

// TestSchedulerDedupsBurstsWhileCampaignRuns stands in for the ticks that
// fire while a campaign is still running: it sends 20 requests for one
// source straight into a UniqueQueue and asserts that they collapse to
// exactly one queued request, per spec.md §4.7's "a slow campaign will never
// be scheduled more than one-behind."
func TestSchedulerDedupsBurstsWhileCampaignRuns(t *testing.T) {
	t.Parallel()

	q := NewUniqueQueue[string, CampaignRequest]()
	cfg := SourceIndexingConfig{
		SourceID: "src-1", IndexID: "idx-1", IndexingPeriod: 5 * time.Millisecond,
	}

	// Drive the dedup queue directly (bypassing the campaign machinery
	// entirely) to isolate the collapsing behavior from scheduling timing.
	for i := 0; i < 20; i++ {
		q.Send(cfg.SourceID, CampaignRequest{SourceID: cfg.SourceID, IndexID: cfg.IndexID})
	}
	require.Equal(t, 1, q.Len())
}

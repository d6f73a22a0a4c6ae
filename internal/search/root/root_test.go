package root

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/quiver/internal/actor"
	"github.com/roasbeef/quiver/internal/directory"
	"github.com/roasbeef/quiver/internal/indexiface"
	"github.com/roasbeef/quiver/internal/indexing"
	"github.com/roasbeef/quiver/internal/metastore"
	"github.com/roasbeef/quiver/internal/search/leaf"
	"github.com/roasbeef/quiver/internal/storageiface"
	"github.com/roasbeef/quiver/internal/wire"
)

func testSchema(t *testing.T) *indexiface.Schema {
	t.Helper()
	schema, err := indexiface.NewSchema(
		indexiface.FieldEntry{Name: "body", Type: indexiface.FieldText, Indexed: true},
		indexiface.FieldEntry{Name: "score", Type: indexiface.FieldI64, Fast: true},
	)
	require.NoError(t, err)
	return schema
}

func buildSplit(
	t *testing.T, indexStorage storageiface.Storage, schema *indexiface.Schema,
	splitID string, docs []indexiface.Document,
) {
	t.Helper()

	ctx := context.Background()
	splitStorage := indexStorage.WithPrefix(splitID)
	scratch := indexing.NewStorageScratch(splitStorage)

	writer := indexiface.NewMemoryWriter(schema, 1<<20)
	for _, d := range docs {
		require.NoError(t, writer.AddDocument(d))
	}

	fileNames, err := writer.Commit(ctx, scratch)
	require.NoError(t, err)

	entries := make([]directory.HotCacheEntry, 0, len(fileNames))
	for _, name := range fileNames {
		data, err := scratch.ReadFile(ctx, name)
		require.NoError(t, err)
		entries = append(entries, directory.HotCacheEntry{
			Path: name, Range: storageiface.WholeObject, Data: data,
		})
	}

	blob, err := directory.BuildHotCache(entries)
	require.NoError(t, err)
	require.NoError(t, splitStorage.Put(ctx, directory.HotCacheFileName, blob))
}

// singleIndexResolver resolves every lookup to the same schema/storage,
// enough for a single-index test fixture.
type singleIndexResolver struct {
	schema  *indexiface.Schema
	storage storageiface.Storage
}

func (r singleIndexResolver) ResolveIndex(context.Context, string) (*indexiface.Schema, storageiface.Storage, error) {
	return r.schema, r.storage, nil
}

func newTopKCollector() indexiface.Collector {
	return &indexiface.TopKCollector{SortField: "score", K: 10}
}

func TestRootSearchSingleSplitOrdersHitsDescending(t *testing.T) {
	t.Parallel()

	storage, err := storageiface.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	schema := testSchema(t)

	buildSplit(t, storage, schema, "split1", []indexiface.Document{
		indexiface.Document{"body": "hello world", "score": float64(3)},
		indexiface.Document{"body": "hello there", "score": float64(2)},
		indexiface.Document{"body": "hello again", "score": float64(1)},
	})

	ms, err := metastore.Create(filepath.Join(t.TempDir(), "metastore.json"), metastore.IndexMetadata{
		IndexID:  "idx",
		IndexURI: "mem://idx",
	})
	require.NoError(t, err)
	require.NoError(t, ms.StageSplit(metastore.SplitMetadata{SplitID: "split1"}))
	require.NoError(t, ms.PublishSplits([]string{"split1"}))

	workerPool := actor.NewWorkerPool(2)
	node := leaf.NewServer(singleIndexResolver{schema: schema, storage: storage}, workerPool, newTopKCollector)
	pool := NewPool([]Client{{Addr: "only-node", Client: NewLocalClient(node)}})

	r := &Root{Metastore: ms, Pool: pool}

	result, err := r.Search(context.Background(), wire.RootSearchRequest{
		SearchRequest: wire.SearchRequest{
			IndexID: "idx",
			Query:   wire.TermQuery("body", "hello"),
			MaxHits: 10,
		},
	})
	require.NoError(t, err)

	require.EqualValues(t, 3, result.NumHits)
	require.Len(t, result.Hits, 3)
	require.Equal(t, int64(3), result.Hits[0].PartialHit.SortingFieldValue)
	require.Equal(t, int64(2), result.Hits[1].PartialHit.SortingFieldValue)
	require.Equal(t, int64(1), result.Hits[2].PartialHit.SortingFieldValue)
}

func TestRootSearchMaxHitsZeroStillReportsTrueCount(t *testing.T) {
	t.Parallel()

	storage, err := storageiface.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	schema := testSchema(t)

	buildSplit(t, storage, schema, "split1", []indexiface.Document{
		indexiface.Document{"body": "hello world", "score": float64(3)},
		indexiface.Document{"body": "hello there", "score": float64(2)},
	})

	ms, err := metastore.Create(filepath.Join(t.TempDir(), "metastore.json"), metastore.IndexMetadata{
		IndexID: "idx", IndexURI: "mem://idx",
	})
	require.NoError(t, err)
	require.NoError(t, ms.StageSplit(metastore.SplitMetadata{SplitID: "split1"}))
	require.NoError(t, ms.PublishSplits([]string{"split1"}))

	workerPool := actor.NewWorkerPool(2)
	node := leaf.NewServer(singleIndexResolver{schema: schema, storage: storage}, workerPool, newTopKCollector)
	pool := NewPool([]Client{{Addr: "only-node", Client: NewLocalClient(node)}})

	r := &Root{Metastore: ms, Pool: pool}

	result, err := r.Search(context.Background(), wire.RootSearchRequest{
		SearchRequest: wire.SearchRequest{
			IndexID: "idx",
			Query:   wire.TermQuery("body", "hello"),
			MaxHits: 0,
		},
	})
	require.NoError(t, err)

	require.EqualValues(t, 2, result.NumHits)
	require.Empty(t, result.Hits)
}

func TestRootSearchFansOutAcrossTwoSplitsAndTwoNodes(t *testing.T) {
	t.Parallel()

	// Both leaf nodes resolve the same shared object storage, mirroring a
	// real deployment where every node reads splits from the same
	// external store rather than a node-local disk.
	storage, err := storageiface.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	schema := testSchema(t)

	buildSplit(t, storage, schema, "split1", []indexiface.Document{
		indexiface.Document{"body": "hello world", "score": float64(5)},
		indexiface.Document{"body": "hello there", "score": float64(1)},
	})
	buildSplit(t, storage, schema, "split2", []indexiface.Document{
		indexiface.Document{"body": "hello again", "score": float64(4)},
		indexiface.Document{"body": "hello once more", "score": float64(2)},
	})

	ms, err := metastore.Create(filepath.Join(t.TempDir(), "metastore.json"), metastore.IndexMetadata{
		IndexID: "idx", IndexURI: "mem://idx",
	})
	require.NoError(t, err)
	require.NoError(t, ms.StageSplit(metastore.SplitMetadata{SplitID: "split1"}))
	require.NoError(t, ms.StageSplit(metastore.SplitMetadata{SplitID: "split2"}))
	require.NoError(t, ms.PublishSplits([]string{"split1", "split2"}))

	resolver := singleIndexResolver{schema: schema, storage: storage}
	workerPool := actor.NewWorkerPool(2)
	nodeA := leaf.NewServer(resolver, workerPool, newTopKCollector)
	nodeB := leaf.NewServer(resolver, workerPool, newTopKCollector)

	pool := NewPool([]Client{
		{Addr: "node-a", Client: NewLocalClient(nodeA)},
		{Addr: "node-b", Client: NewLocalClient(nodeB)},
	})

	r := &Root{Metastore: ms, Pool: pool}

	result, err := r.Search(context.Background(), wire.RootSearchRequest{
		SearchRequest: wire.SearchRequest{
			IndexID: "idx",
			Query:   wire.TermQuery("body", "hello"),
			MaxHits: 2,
		},
	})
	require.NoError(t, err)

	require.EqualValues(t, 4, result.NumHits)
	require.Len(t, result.Hits, 2)
	require.Equal(t, int64(5), result.Hits[0].PartialHit.SortingFieldValue)
	require.Equal(t, int64(4), result.Hits[1].PartialHit.SortingFieldValue)
	require.Equal(t, "split1", result.Hits[0].PartialHit.SplitID)
	require.Equal(t, "split2", result.Hits[1].PartialHit.SplitID)
}

func TestPoolAssignJobsIsDeterministicAndBalanced(t *testing.T) {
	t.Parallel()

	pool := NewPool([]Client{
		{Addr: "node-a", Client: nil},
		{Addr: "node-b", Client: nil},
	})

	jobs := []Job{
		{SplitID: "split1", Cost: 1},
		{SplitID: "split2", Cost: 1},
		{SplitID: "split3", Cost: 1},
		{SplitID: "split4", Cost: 1},
	}

	first := pool.AssignJobs(jobs)
	second := pool.AssignJobs(jobs)
	require.Equal(t, first, second, "assignment must be deterministic for the same pool membership")

	total := 0
	for _, cj := range first {
		require.Len(t, cj.Jobs, 2, "four equal-cost jobs must split evenly across two clients")
		total += len(cj.Jobs)
	}
	require.Equal(t, len(jobs), total, "every job must be placed on exactly one client")
}

func TestAnalyzeErrorsPrefersHealthyNodesAsRetryCandidates(t *testing.T) {
	t.Parallel()

	outcomes := map[string]NodeOutcome{
		"healthy": {
			Result: &wire.LeafSearchResult{
				NumAttemptedSplits: 2,
				FailedRequests:     []wire.FailedSplitRequest{{SplitID: "split1", Error: "boom"}},
			},
		},
		"down": {Err: context.DeadlineExceeded},
	}

	analysis := Analyze(outcomes)

	require.ElementsMatch(t, []string{"down"}, analysis.CompleteFailureAddrs)
	require.ElementsMatch(t, []string{"healthy"}, analysis.PartialOrNoFailureAddrs)
	require.ElementsMatch(t, []string{"healthy"}, analysis.RetryCandidateAddrs)
	require.ElementsMatch(t, []string{"split1"}, analysis.RetrySplitIDs)
}

func TestAnalyzeErrorsFallsBackToCompleteFailureSetWhenNoneHealthy(t *testing.T) {
	t.Parallel()

	outcomes := map[string]NodeOutcome{
		"down-a": {Err: context.DeadlineExceeded},
		"down-b": {
			Result: &wire.LeafSearchResult{
				NumAttemptedSplits: 1,
				FailedRequests:     []wire.FailedSplitRequest{{SplitID: "split9", Error: "boom"}},
			},
		},
	}

	analysis := Analyze(outcomes)

	require.Empty(t, analysis.PartialOrNoFailureAddrs)
	require.ElementsMatch(t, []string{"down-a", "down-b"}, analysis.CompleteFailureAddrs)
	require.ElementsMatch(t, []string{"down-a", "down-b"}, analysis.RetryCandidateAddrs)
}

// Package leaf runs one query+collector against however many splits a
// single node was asked to cover: open each split's storage-rooted view,
// warm up the terms and fast fields it needs, run the collector
// synchronously on a blocking worker, then merge the successful splits'
// results while isolating any per-split failure.
package leaf

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roasbeef/quiver/internal/actor"
	"github.com/roasbeef/quiver/internal/directory"
	"github.com/roasbeef/quiver/internal/indexiface"
	"github.com/roasbeef/quiver/internal/storageiface"
)

// FailedRequest records one split whose search attempt errored. Recording
// it here rather than failing the whole call is deliberate: one bad split
// shouldn't blank out every other split's hits.
type FailedRequest struct {
	SplitID string
	Err     error
}

// PartialHit is one matching document, addressed by the split it came from
// plus its position within that split's own segments.
type PartialHit struct {
	SplitID    string
	SortValue  int64
	SegmentOrd uint32
	DocID      uint32
}

// Result is one node's answer to a Request spanning however many splits it
// covered.
type Result struct {
	NumHits            uint64
	PartialHits        []PartialHit
	NumAttemptedSplits int
	FailedRequests     []FailedRequest
}

// Request is one batch of splits to search with the same query and
// collector.
type Request struct {
	Query     indexiface.Query
	Collector indexiface.Collector
	SplitIDs  []string

	// IndexStorage is the index-root storage location; each split is
	// opened at IndexStorage.WithPrefix(splitID).
	IndexStorage storageiface.Storage
	Schema       *indexiface.Schema

	// Pool is the blocking worker pool the collector's Collect and
	// MergeFruits calls run on. Required.
	Pool *actor.WorkerPool
}

type scoredKey struct {
	sortValue  int64
	segmentOrd uint32
	docID      uint32
}

// Search runs req's query+collector across every configured split
// concurrently. A split whose open, warm-up, or collect step fails is
// recorded in Result.FailedRequests and otherwise ignored; every
// successfully-collected split's Fruit is merged via the collector's own
// MergeFruits.
func Search(ctx context.Context, req Request) (Result, error) {
	type splitOutcome struct {
		splitID string
		fruit   indexiface.Fruit
		err     error
	}

	outcomes := make([]splitOutcome, len(req.SplitIDs))

	var wg sync.WaitGroup
	for i, splitID := range req.SplitIDs {
		i, splitID := i, splitID
		wg.Add(1)
		go func() {
			defer wg.Done()
			fruit, err := searchSplit(ctx, req, splitID)
			outcomes[i] = splitOutcome{splitID: splitID, fruit: fruit, err: err}
		}()
	}
	wg.Wait()

	result := Result{NumAttemptedSplits: len(req.SplitIDs)}

	var fruits []indexiface.Fruit
	hitOrigin := make(map[scoredKey]string)
	hl, hasHitLister := req.Collector.(indexiface.HitLister)

	for _, o := range outcomes {
		if o.err != nil {
			result.FailedRequests = append(result.FailedRequests, FailedRequest{
				SplitID: o.splitID,
				Err:     o.err,
			})
			continue
		}
		fruits = append(fruits, o.fruit)

		if !hasHitLister {
			continue
		}
		hits, _, err := hl.ListHits(o.fruit)
		if err != nil {
			continue
		}
		for _, h := range hits {
			key := scoredKey{h.SortValue, h.SegmentOrd, h.DocID}
			hitOrigin[key] = o.splitID
		}
	}

	if len(fruits) == 0 {
		return result, nil
	}

	merged, err := runOnPool(ctx, req.Pool, func() (indexiface.Fruit, error) {
		return req.Collector.MergeFruits(fruits)
	})
	if err != nil {
		return Result{}, fmt.Errorf("leaf: merge fruits: %w", err)
	}

	if !hasHitLister {
		return result, nil
	}

	hits, numHits, err := hl.ListHits(merged)
	if err != nil {
		return Result{}, fmt.Errorf("leaf: list merged hits: %w", err)
	}

	result.NumHits = numHits
	result.PartialHits = make([]PartialHit, 0, len(hits))
	for _, h := range hits {
		key := scoredKey{h.SortValue, h.SegmentOrd, h.DocID}
		result.PartialHits = append(result.PartialHits, PartialHit{
			SplitID:    hitOrigin[key],
			SortValue:  h.SortValue,
			SegmentOrd: h.SegmentOrd,
			DocID:      h.DocID,
		})
	}

	return result, nil
}

// searchSplit opens one split, warms it, and runs req's collector against
// it, returning the split's own Fruit.
func searchSplit(ctx context.Context, req Request, splitID string) (indexiface.Fruit, error) {
	splitStorage := req.IndexStorage.WithPrefix(splitID)

	dir, err := directory.OpenSplitDirectory(ctx, splitStorage)
	if err != nil {
		return nil, fmt.Errorf("open split directory: %w", err)
	}

	segmentPaths, err := listSegmentFiles(ctx, splitStorage)
	if err != nil {
		return nil, fmt.Errorf("list segment files: %w", err)
	}

	idx := indexiface.NewMemoryIndex(req.Schema, segmentPaths)
	searcher, err := idx.Open(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("open searcher: %w", err)
	}

	if err := warmUp(ctx, searcher, req.Query, req.Collector); err != nil {
		return nil, fmt.Errorf("warm up: %w", err)
	}

	return runOnPool(ctx, req.Pool, func() (indexiface.Fruit, error) {
		return req.Collector.Collect(ctx, searcher, req.Query)
	})
}

// warmUp fetches a query's postings and a collector's fast fields
// concurrently; the first failure of either aborts both.
func warmUp(
	ctx context.Context, searcher indexiface.Searcher, query indexiface.Query,
	collector indexiface.Collector,
) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return searcher.WarmTerms(gctx, query.Terms())
	})
	g.Go(func() error {
		return searcher.WarmFastFields(gctx, collector.FastFields())
	})

	return g.Wait()
}

// listSegmentFiles enumerates a split's segment files by listing its whole
// storage prefix and excluding the hot-cache sidecar, since nothing else is
// ever written alongside a split's segments.
func listSegmentFiles(ctx context.Context, splitStorage storageiface.Storage) ([]string, error) {
	names, err := splitStorage.ListPrefix(ctx, "")
	if err != nil {
		return nil, err
	}

	segments := make([]string, 0, len(names))
	for _, name := range names {
		if name == directory.HotCacheFileName {
			continue
		}
		segments = append(segments, name)
	}
	return segments, nil
}

// runOnPool acquires a worker-pool slot, runs fn, and releases the slot
// before returning — every synchronous search/merge call runs this way,
// never directly on the caller's goroutine.
func runOnPool[T any](ctx context.Context, pool *actor.WorkerPool, fn func() (T, error)) (T, error) {
	var zero T
	if err := pool.Acquire(ctx); err != nil {
		return zero, err
	}
	defer pool.Release()
	return fn()
}

package root

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roasbeef/quiver/internal/metastore"
	"github.com/roasbeef/quiver/internal/quivererr"
	"github.com/roasbeef/quiver/internal/wire"
)

// Root executes spec.md §4.9's two-phase distributed search: a metastore
// lookup, job assignment over the pool, a parallel leaf-search fan-out, a
// merge of the returned partial hits, and a second parallel fan-out to
// fetch the winning hits' document payloads.
type Root struct {
	Metastore *metastore.Store
	Pool      *Pool
}

// Search runs req to completion and returns the final, ordered,
// paginated SearchResult of spec.md §6.
func (r *Root) Search(ctx context.Context, req wire.RootSearchRequest) (*wire.SearchResult, error) {
	sr := req.SearchRequest

	splits := r.Metastore.ListSplits(metastore.SplitPublished, timeRangeOf(sr))
	if len(splits) == 0 {
		return &wire.SearchResult{}, nil
	}

	jobs := make([]Job, len(splits))
	for i, s := range splits {
		jobs[i] = Job{SplitID: s.SplitID, Cost: 1}
	}
	assignment := r.Pool.AssignJobs(jobs)

	leafReq := sr
	leafReq.StartOffset = 0
	leafReq.MaxHits = sr.MaxHits + sr.StartOffset

	outcomes := r.dispatchLeafSearch(ctx, assignment, leafReq)

	// Error analysis is computed but its result is discarded: nothing
	// logs it and no retry pass consumes it (spec.md §9), so it never
	// blocks the current result.
	_ = Analyze(outcomes)

	var numHits uint64
	var merged []wire.PartialHit
	for _, o := range outcomes {
		if o.Result == nil {
			continue
		}
		numHits += o.Result.NumHits
		merged = append(merged, o.Result.PartialHits...)
	}

	sortHitsDesc(merged)
	if uint64(len(merged)) > uint64(leafReq.MaxHits) {
		merged = merged[:leafReq.MaxHits]
	}

	hitsBySplit := make(map[string][]wire.PartialHit)
	for _, h := range merged {
		hitsBySplit[h.SplitID] = append(hitsBySplit[h.SplitID], h)
	}

	hits := r.dispatchFetchDocs(ctx, assignment, sr.IndexID, hitsBySplit)

	sortHitsDesc2(hits)
	hits = paginate(hits, sr.StartOffset, sr.MaxHits)

	return &wire.SearchResult{
		NumHits: numHits,
		Hits:    hits,
	}, nil
}

// dispatchLeafSearch fires one LeafSearch RPC per client with a non-empty
// job list, in parallel, and collects every outcome keyed by client addr
// regardless of success or failure — spec.md §4.9 step 4/5's "fire all leaf
// requests in parallel; collect per-client results", with a per-client
// failure recorded rather than aborting the others.
func (r *Root) dispatchLeafSearch(
	ctx context.Context, assignment []ClientJobs, leafSR wire.SearchRequest,
) map[string]NodeOutcome {
	outcomes := make(map[string]NodeOutcome, len(assignment))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, cj := range assignment {
		if len(cj.Jobs) == 0 {
			continue
		}
		cj := cj

		splitIDs := make([]string, len(cj.Jobs))
		for i, j := range cj.Jobs {
			splitIDs[i] = j.SplitID
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			result, err := cj.Client.Client.LeafSearch(ctx, &wire.LeafSearchRequest{
				SearchRequest: leafSR,
				SplitIDs:      splitIDs,
			})

			mu.Lock()
			outcomes[cj.Client.Addr] = NodeOutcome{Result: result, Err: err, SplitIDs: splitIDs}
			mu.Unlock()
		}()
	}

	wg.Wait()
	return outcomes
}

// dispatchFetchDocs implements spec.md §4.9 step 8: for each (client, job)
// pair whose assigned splits have any surviving partial hits, fetch their
// documents. Runs in parallel; an individual client's fetch failure is
// dropped rather than failing the whole search (spec.md step 8's "logged
// and skipped").
func (r *Root) dispatchFetchDocs(
	ctx context.Context, assignment []ClientJobs, indexID string, hitsBySplit map[string][]wire.PartialHit,
) []wire.Hit {
	var mu sync.Mutex
	var wg sync.WaitGroup
	var hits []wire.Hit

	for _, cj := range assignment {
		var want []wire.PartialHit
		for _, j := range cj.Jobs {
			want = append(want, hitsBySplit[j.SplitID]...)
		}
		if len(want) == 0 {
			continue
		}
		cj := cj
		want := want

		wg.Add(1)
		go func() {
			defer wg.Done()

			resp, err := cj.Client.Client.FetchDocs(ctx, &wire.FetchDocsRequest{
				IndexID:     indexID,
				PartialHits: want,
			})
			if err != nil {
				log.Errorf("fetch docs failed against %s: %v", cj.Client.Addr, err)
				return
			}

			mu.Lock()
			hits = append(hits, resp.Hits...)
			mu.Unlock()
		}()
	}

	wg.Wait()
	return hits
}

func timeRangeOf(sr wire.SearchRequest) *metastore.TimeRange {
	if sr.StartTimestamp == nil && sr.EndTimestamp == nil {
		return nil
	}

	tr := &metastore.TimeRange{}
	if sr.StartTimestamp != nil {
		tr.Min = *sr.StartTimestamp
	}
	if sr.EndTimestamp != nil {
		tr.Max = *sr.EndTimestamp
	} else {
		tr.Max = tr.Min
	}
	return tr
}

func sortHitsDesc(hits []wire.PartialHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].SortingFieldValue > hits[j].SortingFieldValue
	})
}

func sortHitsDesc2(hits []wire.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].PartialHit.SortingFieldValue > hits[j].PartialHit.SortingFieldValue
	})
}

// paginate applies start_offset/max_hits to an already-sorted hit slice,
// per spec.md §4.9 step 9.
func paginate(hits []wire.Hit, startOffset, maxHits uint32) []wire.Hit {
	start := int(startOffset)
	if start > len(hits) {
		return nil
	}
	hits = hits[start:]

	end := int(maxHits)
	if end > len(hits) {
		end = len(hits)
	}
	return hits[:end]
}

// IndexDoesNotExistError is returned by a caller-facing wrapper (e.g.
// cmd/quiverd's gRPC handler) that looks up an index_id before routing into
// Root.Search, converting a metastore miss into a SearchError per spec.md
// §7's "root-search layer converts a single remaining-node failure into a
// SearchError".
func IndexDoesNotExistError(indexID string) error {
	return quivererr.NewSearchError(
		quivererr.SearchErrorIndexDoesNotExist,
		fmt.Sprintf("index %q does not exist", indexID),
	)
}

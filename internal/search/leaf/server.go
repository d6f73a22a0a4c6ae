package leaf

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roasbeef/quiver/internal/actor"
	"github.com/roasbeef/quiver/internal/directory"
	"github.com/roasbeef/quiver/internal/indexiface"
	"github.com/roasbeef/quiver/internal/storageiface"
	"github.com/roasbeef/quiver/internal/wire"
)

// IndexResolver resolves an index_id into the schema and storage root a
// leaf node needs to search it, mirroring how a real node would look these
// up from a locally-cached copy of the metastore's IndexMetadata.
type IndexResolver interface {
	ResolveIndex(ctx context.Context, indexID string) (*indexiface.Schema, storageiface.Storage, error)
}

// Server answers the LeafSearch and FetchDocs RPCs of spec.md §6 against
// whatever splits the request names, using resolver to find each
// request's index storage root and Pool to bound blocking-worker
// concurrency for Collect/MergeFruits (spec.md §5's "collector's
// merge_fruits ... always run on the blocking pool").
type Server struct {
	resolver  IndexResolver
	pool      *actor.WorkerPool
	collector func() indexiface.Collector
}

// NewServer builds a leaf Server. newCollector is called once per request
// to build a fresh indexiface.Collector for that request's query. It
// receives nothing from the request, so every request on this Server runs
// the same collector shape (e.g. a *indexiface.TopKCollector with a fixed
// K, whatever the request's max_hits).
func NewServer(resolver IndexResolver, pool *actor.WorkerPool, newCollector func() indexiface.Collector) *Server {
	return &Server{resolver: resolver, pool: pool, collector: newCollector}
}

// LeafSearch implements wire.SearchServiceServer.
func (s *Server) LeafSearch(ctx context.Context, req *wire.LeafSearchRequest) (*wire.LeafSearchResult, error) {
	schema, storage, err := s.resolver.ResolveIndex(ctx, req.SearchRequest.IndexID)
	if err != nil {
		return nil, fmt.Errorf("leaf: resolve index %q: %w", req.SearchRequest.IndexID, err)
	}

	query, err := wire.BuildQuery(req.SearchRequest.Query)
	if err != nil {
		return nil, fmt.Errorf("leaf: build query: %w", err)
	}

	result, err := Search(ctx, Request{
		Query:        query,
		Collector:    s.collector(),
		SplitIDs:     req.SplitIDs,
		IndexStorage: storage,
		Schema:       schema,
		Pool:         s.pool,
	})
	if err != nil {
		return nil, err
	}

	return toWireResult(result), nil
}

// FetchDocs implements wire.SearchServiceServer: it re-resolves every
// partial hit's split directly (a fetch-docs call has no query or
// collector to warm up with, just a handful of (segment, doc) coordinates
// to read back, so each split's segments are loaded whole before reading).
func (s *Server) FetchDocs(ctx context.Context, req *wire.FetchDocsRequest) (*wire.FetchDocsResult, error) {
	schema, storage, err := s.resolver.ResolveIndex(ctx, req.IndexID)
	if err != nil {
		return nil, fmt.Errorf("leaf: resolve index %q: %w", req.IndexID, err)
	}

	out := &wire.FetchDocsResult{Hits: make([]wire.Hit, 0, len(req.PartialHits))}

	searchers := make(map[string]indexiface.Searcher)
	for _, ph := range req.PartialHits {
		searcher, ok := searchers[ph.SplitID]
		if !ok {
			splitStorage := storage.WithPrefix(ph.SplitID)
			dir, err := directory.OpenSplitDirectory(ctx, splitStorage)
			if err != nil {
				return nil, fmt.Errorf("fetch docs: open split %s: %w", ph.SplitID, err)
			}
			segments, err := listSegmentFiles(ctx, splitStorage)
			if err != nil {
				return nil, fmt.Errorf("fetch docs: list split %s: %w", ph.SplitID, err)
			}
			searcher, err = indexiface.NewMemoryIndex(schema, segments).Open(ctx, dir)
			if err != nil {
				return nil, fmt.Errorf("fetch docs: open searcher %s: %w", ph.SplitID, err)
			}
			if err := searcher.WarmTerms(ctx, nil); err != nil {
				return nil, fmt.Errorf("fetch docs: load split %s: %w", ph.SplitID, err)
			}
			searchers[ph.SplitID] = searcher
		}

		doc, err := searcher.Doc(ph.SegmentOrd, ph.DocID)
		if err != nil {
			return nil, fmt.Errorf("fetch docs: split %s doc %d/%d: %w",
				ph.SplitID, ph.SegmentOrd, ph.DocID, err)
		}

		payload, err := marshalDoc(doc)
		if err != nil {
			return nil, err
		}

		out.Hits = append(out.Hits, wire.Hit{PartialHit: ph, JSON: payload})
	}

	return out, nil
}

// RootSearch is not answered by a leaf Server; a node wanting to act as
// root wires internal/search/root.Root instead. It is implemented here
// only so *Server satisfies wire.SearchServiceServer for registration
// convenience against a node that is leaf-only.
func (s *Server) RootSearch(ctx context.Context, req *wire.RootSearchRequest) (*wire.SearchResult, error) {
	return nil, fmt.Errorf("leaf: this node does not answer RootSearch")
}

var _ wire.SearchServiceServer = (*Server)(nil)

func toWireResult(r Result) *wire.LeafSearchResult {
	out := &wire.LeafSearchResult{
		NumHits:            r.NumHits,
		NumAttemptedSplits: uint64(r.NumAttemptedSplits),
	}
	for _, h := range r.PartialHits {
		out.PartialHits = append(out.PartialHits, wire.PartialHit{
			SortingFieldValue: h.SortValue,
			SplitID:           h.SplitID,
			SegmentOrd:        h.SegmentOrd,
			DocID:             h.DocID,
		})
	}
	for _, f := range r.FailedRequests {
		out.FailedRequests = append(out.FailedRequests, wire.FailedSplitRequest{
			SplitID: f.SplitID,
			Error:   f.Err.Error(),
		})
	}
	return out
}

func marshalDoc(doc indexiface.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("fetch docs: marshal document: %w", err)
	}
	return data, nil
}

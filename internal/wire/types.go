// Package wire implements spec.md §6's external interfaces: the three
// request/response RPCs (LeafSearch, FetchDocs, RootSearch) exchanged
// between root and leaf nodes, plus a small query DSL a SearchRequest's
// opaque query field decodes into an internal/indexiface.Query.
//
// No .proto toolchain runs here (out of scope per spec.md §1's "assumed
// available" collaborators list), so the wire types are hand-rolled Go
// structs shaped like generated protobuf messages, registered against a
// grpc.ServiceDesc built by hand in service.go.
package wire

// ByteRange mirrors storageiface.ByteRange on the wire, kept as its own
// type here so internal/wire never imports internal/storageiface — the
// wire package only knows about search requests/results, not storage.
type ByteRange struct {
	Start  uint64 `json:"start"`
	Length uint64 `json:"length"`
}

// SearchRequest is spec.md §6's SearchRequest shape.
type SearchRequest struct {
	IndexID         string   `json:"index_id"`
	Query           Query    `json:"query"`
	SearchFields    []string `json:"search_fields,omitempty"`
	StartTimestamp  *int64   `json:"start_timestamp,omitempty"`
	EndTimestamp    *int64   `json:"end_timestamp,omitempty"`
	MaxHits         uint32   `json:"max_hits"`
	StartOffset     uint32   `json:"start_offset"`
}

// Query is the wire-level query DSL a SearchRequest carries. Exactly one of
// MatchAll, Term, or Must is meaningful per node, mirroring the small set
// of indexiface.Query implementations internal/indexiface ships
// (MatchAllQuery, TermQuery, BooleanQuery). A root or leaf node turns this
// into a real indexiface.Query via BuildQuery before touching an index.
type Query struct {
	MatchAll bool    `json:"match_all,omitempty"`
	Term     *Term   `json:"term,omitempty"`
	Must     []Query `json:"must,omitempty"`
}

// Term is a wire-level (field, term) equality clause.
type Term struct {
	Field          string `json:"field"`
	Value          string `json:"value"`
	NeedsPositions bool   `json:"needs_positions,omitempty"`
}

// PartialHit is spec.md §6's PartialHit: enough to identify a matching
// document and re-fetch it later, without carrying its payload.
type PartialHit struct {
	SortingFieldValue int64  `json:"sorting_field_value"`
	SplitID           string `json:"split_id"`
	SegmentOrd        uint32 `json:"segment_ord"`
	DocID             uint32 `json:"doc_id"`
}

// FailedSplitRequest records one split a leaf node could not search.
type FailedSplitRequest struct {
	SplitID string `json:"split_id"`
	Error   string `json:"error"`
}

// LeafSearchRequest is spec.md §6's LeafSearch request: one query+collector
// spread over the given splits.
type LeafSearchRequest struct {
	SearchRequest SearchRequest `json:"search_request"`
	SplitIDs      []string      `json:"split_ids"`
}

// LeafSearchResult is spec.md §6's LeafSearch response.
type LeafSearchResult struct {
	NumHits            uint64               `json:"num_hits"`
	PartialHits        []PartialHit         `json:"partial_hits"`
	FailedRequests     []FailedSplitRequest `json:"failed_requests,omitempty"`
	NumAttemptedSplits uint64               `json:"num_attempted_splits"`
}

// FetchDocsRequest is spec.md §6's FetchDocs request: the partial hits a
// root search wants turned into full documents.
type FetchDocsRequest struct {
	IndexID     string       `json:"index_id"`
	PartialHits []PartialHit `json:"partial_hits"`
}

// Hit pairs a PartialHit with its fetched document payload.
type Hit struct {
	PartialHit PartialHit `json:"partial_hit"`
	JSON       []byte     `json:"json"`
}

// FetchDocsResult is spec.md §6's FetchDocs response.
type FetchDocsResult struct {
	Hits []Hit `json:"hits"`
}

// RootSearchRequest is spec.md §6's RootSearch request: what a client sends
// to any node willing to act as root for the query.
type RootSearchRequest struct {
	SearchRequest SearchRequest `json:"search_request"`
}

// SearchResult is spec.md §6's RootSearch response: the final, ordered,
// paginated hit list.
type SearchResult struct {
	NumHits           uint64 `json:"num_hits"`
	Hits              []Hit  `json:"hits"`
	ElapsedTimeMicros uint64 `json:"elapsed_time_micros"`
}

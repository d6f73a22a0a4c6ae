package indexiface

import (
	"context"

	"github.com/roasbeef/quiver/internal/storageiface"
)

// ReaderSource is the byte-range read collaborator a Searcher fetches
// segment bytes through. It is satisfied by the caching directory stack
// (internal/directory) layered over storageiface.Storage.
type ReaderSource interface {
	ReadRange(ctx context.Context, path string, r storageiface.ByteRange) ([]byte, error)
}

// WriteDirectory is the write-side collaborator an IndexWriter commits its
// segment files into — the indexer's scratch directory, per spec.md §4.5.
type WriteDirectory interface {
	WriteFile(ctx context.Context, name string, data []byte) error
}

// IndexWriter accumulates parsed documents and commits them to a segment.
// One IndexWriter corresponds to one in-progress split.
type IndexWriter interface {
	AddDocument(doc Document) error
	NumDocs() uint64

	// Commit finalizes the writer's segment, writing its files into dir
	// and returning their names for the packager's manifest (spec.md
	// §4.5's "commits the writer, takes the scratch directory").
	Commit(ctx context.Context, dir WriteDirectory) ([]string, error)
}

// Index is an opened-for-read index over a fixed set of segment files.
// Opening does not fetch any bytes eagerly; a Searcher's WarmTerms and
// WarmFastFields must run before Iterate, per spec.md §4.8.
type Index interface {
	Schema() *Schema
	Open(ctx context.Context, src ReaderSource) (Searcher, error)
}

// Searcher runs queries against one split's segments. A Searcher has a
// single reader with manual reload (splits are immutable, per spec.md
// §4.8 step 4) — there is no Reload method because nothing ever changes
// underneath it.
type Searcher interface {
	Schema() *Schema
	NumSegments() int

	// WarmTerms fetches the posting lists the given terms need, across
	// every segment, before Iterate may be called with a query that uses
	// them.
	WarmTerms(ctx context.Context, terms []QueryTerm) error

	// WarmFastFields fetches the fast-field slices for the given field
	// names, across every segment. It errors if a name is unknown or not
	// a fast field.
	WarmFastFields(ctx context.Context, names []string) error

	// Iterate calls fn for every (segmentOrd, docID) matching query,
	// across every segment, stopping early if fn returns false.
	Iterate(ctx context.Context, query Query, fn func(segmentOrd, docID uint32) bool) error

	// FastFieldValue returns a fast field's value for one document. ok is
	// false if the field or document doesn't exist.
	FastFieldValue(segmentOrd, docID uint32, field string) (value int64, ok bool)

	// Doc fetches the full document for (segmentOrd, docID), used by the
	// fetch-docs phase of root search.
	Doc(segmentOrd, docID uint32) (Document, error)
}

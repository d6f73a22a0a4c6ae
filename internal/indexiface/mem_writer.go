package indexiface

import (
	"context"
	"encoding/json"
	"sync"
)

// SegmentFileName is the single file an in-memory segment serializes to.
// The real encoder splits a segment across many files (terms dictionary,
// postings, fast fields, store); this reference implementation keeps
// everything in one JSON blob, since its job is to exercise warm-up and
// search, not to model an on-disk format.
const SegmentFileName = "segment.json"

// memSegmentFile is the on-disk (well, on-storage) shape of an in-memory
// segment: the parsed documents in insertion order. Term postings and
// fast-field columns are rebuilt from this on open, not stored directly.
type memSegmentFile struct {
	Docs []Document `json:"docs"`
}

// memWriter is the in-memory reference IndexWriter: it simply
// accumulates documents and commits them as one segment file.
type memWriter struct {
	schema *Schema

	mu   sync.Mutex
	docs []Document
}

// NewMemoryWriter returns an IndexWriter that buffers documents in memory
// until Commit. memBudgetBytes is accepted for interface parity with a
// real memory-bounded writer but is not enforced here.
func NewMemoryWriter(schema *Schema, memBudgetBytes uint64) IndexWriter {
	return &memWriter{schema: schema}
}

func (w *memWriter) AddDocument(doc Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.docs = append(w.docs, doc)
	return nil
}

func (w *memWriter) NumDocs() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return uint64(len(w.docs))
}

func (w *memWriter) Commit(ctx context.Context, dir WriteDirectory) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	blob, err := json.Marshal(memSegmentFile{Docs: w.docs})
	if err != nil {
		return nil, err
	}

	if err := dir.WriteFile(ctx, SegmentFileName, blob); err != nil {
		return nil, err
	}

	return []string{SegmentFileName}, nil
}

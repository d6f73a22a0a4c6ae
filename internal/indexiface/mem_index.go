package indexiface

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roasbeef/quiver/internal/storageiface"
)

// memIndex is the in-memory reference Index: it knows only its schema and
// the list of segment file names a prior Commit produced.
type memIndex struct {
	schema       *Schema
	segmentPaths []string
}

// NewMemoryIndex builds an Index over segment files previously produced by
// a memWriter's Commit (see NewMemoryWriter), to be opened against a
// ReaderSource rooted at the same directory those files were written to.
func NewMemoryIndex(schema *Schema, segmentPaths []string) Index {
	paths := make([]string, len(segmentPaths))
	copy(paths, segmentPaths)
	return &memIndex{schema: schema, segmentPaths: paths}
}

func (x *memIndex) Schema() *Schema { return x.schema }

func (x *memIndex) Open(ctx context.Context, src ReaderSource) (Searcher, error) {
	return &memSearcher{
		schema:       x.schema,
		src:          src,
		segmentPaths: x.segmentPaths,
	}, nil
}

// decodedSegment is a segment's postings and fast fields, rebuilt from its
// documents the first time it's warmed.
type decodedSegment struct {
	docs []Document
	// field -> term -> sorted doc ids
	postings map[string]map[string][]uint32
	// field -> doc id -> value
	fastFields map[string][]int64
}

func (d *decodedSegment) Postings(field, term string) []uint32 {
	return d.postings[field][term]
}

func (d *decodedSegment) NumDocs() uint32 {
	return uint32(len(d.docs))
}

func buildSegmentIndex(schema *Schema, docs []Document) *decodedSegment {
	seg := &decodedSegment{
		docs:       docs,
		postings:   make(map[string]map[string][]uint32),
		fastFields: make(map[string][]int64),
	}

	for _, fe := range schema.Fields() {
		if fe.Fast {
			seg.fastFields[fe.Name] = make([]int64, len(docs))
		}
	}

	for docID, doc := range docs {
		for _, fe := range schema.Fields() {
			val, ok := doc[fe.Name]
			if !ok {
				continue
			}

			switch {
			case fe.Type == FieldText && fe.Indexed:
				text, _ := val.(string)
				for _, term := range tokenize(text) {
					byTerm := seg.postings[fe.Name]
					if byTerm == nil {
						byTerm = make(map[string][]uint32)
						seg.postings[fe.Name] = byTerm
					}
					byTerm[term] = appendUnique(byTerm[term], uint32(docID))
				}
			case fe.Fast:
				if iv, ok := toInt64(val); ok {
					seg.fastFields[fe.Name][docID] = iv
				}
			}
		}
	}

	return seg
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func appendUnique(docIDs []uint32, id uint32) []uint32 {
	if len(docIDs) > 0 && docIDs[len(docIDs)-1] == id {
		return docIDs
	}
	return append(docIDs, id)
}

// memSearcher is the in-memory reference Searcher. WarmTerms and
// WarmFastFields both trigger the same lazy, once-only decode of every
// segment; the reference implementation keeps everything in memory, so
// there's no benefit to separating the two warm-up passes the way a
// real on-disk index would (distinct files for the terms dictionary vs.
// fast-field columns).
type memSearcher struct {
	schema       *Schema
	src          ReaderSource
	segmentPaths []string

	loadOnce sync.Once
	loadErr  error
	segments []*decodedSegment
}

func (s *memSearcher) Schema() *Schema { return s.schema }

func (s *memSearcher) NumSegments() int { return len(s.segmentPaths) }

func (s *memSearcher) warm(ctx context.Context) error {
	s.loadOnce.Do(func() {
		segments := make([]*decodedSegment, len(s.segmentPaths))
		for i, path := range s.segmentPaths {
			data, err := s.src.ReadRange(ctx, path, storageiface.WholeObject)
			if err != nil {
				s.loadErr = fmt.Errorf("indexiface: fetch segment %q: %w", path, err)
				return
			}

			var file memSegmentFile
			if err := json.Unmarshal(data, &file); err != nil {
				s.loadErr = fmt.Errorf("indexiface: decode segment %q: %w", path, err)
				return
			}

			segments[i] = buildSegmentIndex(s.schema, file.Docs)
		}
		s.segments = segments
	})
	return s.loadErr
}

func (s *memSearcher) WarmTerms(ctx context.Context, terms []QueryTerm) error {
	return s.warm(ctx)
}

func (s *memSearcher) WarmFastFields(ctx context.Context, names []string) error {
	for _, name := range names {
		fe, ok := s.schema.Field(name)
		if !ok {
			return fmt.Errorf("indexiface: fast field warm-up: unknown field %q", name)
		}
		if !fe.Fast {
			return fmt.Errorf("indexiface: fast field warm-up: field %q is not a fast field", name)
		}
	}
	return s.warm(ctx)
}

func (s *memSearcher) Iterate(ctx context.Context, query Query, fn func(segmentOrd, docID uint32) bool) error {
	if err := s.warm(ctx); err != nil {
		return err
	}

	for segOrd, seg := range s.segments {
		matches := query.Eval(seg)
		sort.Slice(matches, func(i, j int) bool { return matches[i] < matches[j] })
		for _, docID := range matches {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !fn(uint32(segOrd), docID) {
				return nil
			}
		}
	}
	return nil
}

func (s *memSearcher) FastFieldValue(segmentOrd, docID uint32, field string) (int64, bool) {
	if int(segmentOrd) >= len(s.segments) {
		return 0, false
	}
	seg := s.segments[segmentOrd]
	if seg == nil {
		return 0, false
	}
	vals, ok := seg.fastFields[field]
	if !ok || int(docID) >= len(vals) {
		return 0, false
	}
	return vals[docID], true
}

func (s *memSearcher) Doc(segmentOrd, docID uint32) (Document, error) {
	if int(segmentOrd) >= len(s.segments) {
		return nil, fmt.Errorf("indexiface: segment %d out of range", segmentOrd)
	}
	seg := s.segments[segmentOrd]
	if seg == nil || int(docID) >= len(seg.docs) {
		return nil, fmt.Errorf("indexiface: doc %d out of range in segment %d", docID, segmentOrd)
	}
	return seg.docs[docID], nil
}

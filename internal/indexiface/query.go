package indexiface

import "sort"

// QueryTerm is one (field, term) pair a Query needs warmed before it can
// run against a Searcher, per spec.md §4.8's terms warm-up step.
type QueryTerm struct {
	Field          string
	Term           string
	NeedsPositions bool
}

// PostingsView is the per-segment term-postings collaborator a Query
// evaluates against. Implemented by the in-memory Searcher's decoded
// segment; a real on-disk index would satisfy it by decoding its inverted
// index file.
type PostingsView interface {
	// Postings returns the sorted doc ids in this segment whose field
	// contains term, or nil if there are none.
	Postings(field, term string) []uint32

	// NumDocs returns the number of documents in this segment.
	NumDocs() uint32
}

// Query is the inverted-index query collaborator named in spec.md §1.
type Query interface {
	// Terms lists every (field, term) this query needs warmed.
	Terms() []QueryTerm

	// Eval returns the matching doc ids within one segment.
	Eval(postings PostingsView) []uint32
}

// MatchAllQuery matches every document in every segment.
type MatchAllQuery struct{}

func (MatchAllQuery) Terms() []QueryTerm { return nil }

func (MatchAllQuery) Eval(postings PostingsView) []uint32 {
	n := postings.NumDocs()
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

// TermQuery matches documents whose field's postings contain term.
type TermQuery struct {
	Field          string
	Term           string
	NeedsPositions bool
}

func (q *TermQuery) Terms() []QueryTerm {
	return []QueryTerm{{Field: q.Field, Term: q.Term, NeedsPositions: q.NeedsPositions}}
}

func (q *TermQuery) Eval(postings PostingsView) []uint32 {
	return postings.Postings(q.Field, q.Term)
}

// BooleanQuery is the conjunction (AND) of its clauses.
type BooleanQuery struct {
	Must []Query
}

func (q *BooleanQuery) Terms() []QueryTerm {
	var out []QueryTerm
	for _, clause := range q.Must {
		out = append(out, clause.Terms()...)
	}
	return out
}

func (q *BooleanQuery) Eval(postings PostingsView) []uint32 {
	if len(q.Must) == 0 {
		return nil
	}

	present := make(map[uint32]int, postings.NumDocs())
	for _, clause := range q.Must {
		for _, doc := range clause.Eval(postings) {
			present[doc]++
		}
	}

	var out []uint32
	for doc, count := range present {
		if count == len(q.Must) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

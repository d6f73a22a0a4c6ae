package indexiface

import (
	"context"
	"fmt"
	"sort"
)

// Fruit is the opaque per-segment (or merged) result a Collector produces.
// Collectors define their own concrete Fruit type; callers never inspect
// it except through the same Collector's MergeFruits.
type Fruit any

// Collector is the query-result-accumulation collaborator named in
// spec.md §1. A Collector runs once per split against a warmed Searcher
// (spec.md §4.8 step 6), and the per-split Fruits are later combined via
// MergeFruits (spec.md §4.8's "merged via the collector's merge_fruits").
type Collector interface {
	// FastFields lists the fast-field names this collector needs warmed
	// before Collect runs (spec.md §4.8's fast-field warm-up step).
	FastFields() []string

	// Collect runs the collector against an already-warmed searcher.
	Collect(ctx context.Context, searcher Searcher, query Query) (Fruit, error)

	// MergeFruits combines Fruits produced by (possibly many) prior
	// Collect calls into one.
	MergeFruits(fruits []Fruit) (Fruit, error)
}

// HitLister is implemented by collectors whose Fruit can be decomposed back
// into individual ScoredDocs plus a total hit count. A caller that needs to
// attribute each hit to the split (or node) that produced it — something a
// Fruit alone can't express, since Collectors don't know about splits —
// type-asserts for this before and after a merge to do so.
type HitLister interface {
	ListHits(fruit Fruit) (hits []ScoredDoc, numHits uint64, err error)
}

// ScoredDoc is one matching document, addressed by its position within a
// split: a segment ordinal plus a doc id local to that segment. This is
// the pre-split-id shape of spec.md §6's PartialHit; the leaf search layer
// attaches split_id once it knows which split produced it.
type ScoredDoc struct {
	SortValue  int64
	SegmentOrd uint32
	DocID      uint32
}

// TopKFruit is the Fruit type produced and merged by TopKCollector.
type TopKFruit struct {
	Hits    []ScoredDoc
	NumHits uint64
}

// TopKCollector collects the K documents with the highest SortField value,
// breaking ties by iteration order. It is the reference Collector used to
// exercise warm-up and search end to end.
type TopKCollector struct {
	SortField string
	K         uint32
}

func (c *TopKCollector) FastFields() []string {
	return []string{c.SortField}
}

func (c *TopKCollector) Collect(ctx context.Context, searcher Searcher, query Query) (Fruit, error) {
	var hits []ScoredDoc
	var numHits uint64

	err := searcher.Iterate(ctx, query, func(segOrd, docID uint32) bool {
		numHits++
		val, _ := searcher.FastFieldValue(segOrd, docID, c.SortField)
		hits = append(hits, ScoredDoc{SortValue: val, SegmentOrd: segOrd, DocID: docID})
		return true
	})
	if err != nil {
		return nil, err
	}

	sortTopK(hits)
	if uint32(len(hits)) > c.K {
		hits = hits[:c.K]
	}

	return &TopKFruit{Hits: hits, NumHits: numHits}, nil
}

func (c *TopKCollector) MergeFruits(fruits []Fruit) (Fruit, error) {
	var all []ScoredDoc
	var numHits uint64

	for _, f := range fruits {
		tf, ok := f.(*TopKFruit)
		if !ok {
			return nil, fmt.Errorf("indexiface: merge fruits: unexpected fruit type %T", f)
		}
		all = append(all, tf.Hits...)
		numHits += tf.NumHits
	}

	sortTopK(all)
	if uint32(len(all)) > c.K {
		all = all[:c.K]
	}

	return &TopKFruit{Hits: all, NumHits: numHits}, nil
}

// ListHits implements HitLister.
func (c *TopKCollector) ListHits(fruit Fruit) ([]ScoredDoc, uint64, error) {
	tf, ok := fruit.(*TopKFruit)
	if !ok {
		return nil, 0, fmt.Errorf("indexiface: list hits: unexpected fruit type %T", fruit)
	}
	return tf.Hits, tf.NumHits, nil
}

var _ HitLister = (*TopKCollector)(nil)

func sortTopK(hits []ScoredDoc) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].SortValue > hits[j].SortValue
	})
}

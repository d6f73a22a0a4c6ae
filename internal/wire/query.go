package wire

import (
	"fmt"

	"github.com/roasbeef/quiver/internal/indexiface"
)

// BuildQuery turns a wire-level Query DSL node into the real
// indexiface.Query a leaf node evaluates against a Searcher. Exactly one of
// q's variants must be set; Must takes precedence over Term, which takes
// precedence over MatchAll, so an explicitly-built Query never silently
// degrades to match-all.
func BuildQuery(q Query) (indexiface.Query, error) {
	switch {
	case len(q.Must) > 0:
		clauses := make([]indexiface.Query, 0, len(q.Must))
		for _, clause := range q.Must {
			built, err := BuildQuery(clause)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, built)
		}
		return &indexiface.BooleanQuery{Must: clauses}, nil

	case q.Term != nil:
		return &indexiface.TermQuery{
			Field:          q.Term.Field,
			Term:           q.Term.Value,
			NeedsPositions: q.Term.NeedsPositions,
		}, nil

	case q.MatchAll:
		return indexiface.MatchAllQuery{}, nil

	default:
		return nil, fmt.Errorf("wire: empty query")
	}
}

// MatchAllQuery is the wire-level MatchAll query, provided as a value for
// callers building requests without reaching into the Query struct fields
// directly.
func MatchAllQuery() Query { return Query{MatchAll: true} }

// TermQuery builds a wire-level single-term query.
func TermQuery(field, value string) Query {
	return Query{Term: &Term{Field: field, Value: value}}
}

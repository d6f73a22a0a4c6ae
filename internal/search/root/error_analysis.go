package root

import "github.com/roasbeef/quiver/internal/wire"

// NodeOutcome is one client's answer to a LeafSearch dispatch: either a
// LeafSearchResult or an error, keyed by the client's address the way
// spec.md §4.9's error analysis describes ("addr -> Result<LeafSearchResult,
// NodeSearchError>").
type NodeOutcome struct {
	Result   *wire.LeafSearchResult
	Err      error
	SplitIDs []string
}

// complete reports whether this node's outcome counts as a "complete
// failure": it errored outright, or it returned but every split it was
// asked to search ended up in FailedRequests.
func (o NodeOutcome) complete() bool {
	if o.Err != nil {
		return true
	}
	return o.Result != nil &&
		uint64(len(o.Result.FailedRequests)) == o.Result.NumAttemptedSplits
}

// ErrorAnalysis is spec.md §4.9's error-analysis output: which nodes are
// healthy enough to retry against, and which splits need retrying at all.
// It is informational in this version (spec.md §9's "retries on partial
// leaf failures are not yet wired"), computed so a future retry pass can
// consume it without changing any request/result shape.
type ErrorAnalysis struct {
	// CompleteFailureAddrs lists nodes that either errored outright or
	// failed every split they were asked to search.
	CompleteFailureAddrs []string

	// PartialOrNoFailureAddrs lists nodes that are not complete
	// failures — they answered with at least one successfully-searched
	// split, or with no failures at all.
	PartialOrNoFailureAddrs []string

	// RetryCandidateAddrs is the set a future retry pass should target:
	// the partial-or-no-failure nodes if any exist (they're known
	// healthy), else the complete-failure set (all there is).
	RetryCandidateAddrs []string

	// RetrySplitIDs is the union of every FailedRequest's split_id
	// across every successful leaf response.
	RetrySplitIDs []string
}

// Analyze implements spec.md §4.9's error-analysis function over outcomes.
func Analyze(outcomes map[string]NodeOutcome) ErrorAnalysis {
	var a ErrorAnalysis

	retrySplits := make(map[string]struct{})

	for addr, o := range outcomes {
		if o.complete() {
			a.CompleteFailureAddrs = append(a.CompleteFailureAddrs, addr)
		} else {
			a.PartialOrNoFailureAddrs = append(a.PartialOrNoFailureAddrs, addr)
		}

		if o.Result != nil {
			for _, fr := range o.Result.FailedRequests {
				retrySplits[fr.SplitID] = struct{}{}
			}
		}
	}

	if len(a.PartialOrNoFailureAddrs) > 0 {
		a.RetryCandidateAddrs = a.PartialOrNoFailureAddrs
	} else {
		a.RetryCandidateAddrs = a.CompleteFailureAddrs
	}

	for id := range retrySplits {
		a.RetrySplitIDs = append(a.RetrySplitIDs, id)
	}

	return a
}

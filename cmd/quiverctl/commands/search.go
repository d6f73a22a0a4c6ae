package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roasbeef/quiver/internal/search/root"
	"github.com/roasbeef/quiver/internal/wire"
)

var (
	searchTerm     string
	searchMaxHits  uint32
	searchStartOff uint32
	searchFields   []string
)

// searchCmd issues a RootSearch RPC against a running quiverd, per spec.md
// §4.9's two-phase execution (invisible to this CLI: the node it talks to
// does the fan-out).
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a RootSearch against a running quiverd",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchTerm, "term", "",
		"field:value term query; empty means match-all")
	searchCmd.Flags().Uint32Var(&searchMaxHits, "max-hits", 10,
		"Maximum hits to return")
	searchCmd.Flags().Uint32Var(&searchStartOff, "start-offset", 0,
		"Offset into the ranked result set")
	searchCmd.Flags().StringSliceVar(&searchFields, "search-fields", nil,
		"Search fields to pass through on the request")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireIndex(); err != nil {
		return err
	}

	query, err := buildQuery(searchTerm)
	if err != nil {
		return err
	}

	client, conn, err := root.NewGRPCClient(addr, root.DefaultGRPCClientConfig())
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	result, err := client.RootSearch(context.Background(), &wire.RootSearchRequest{
		SearchRequest: wire.SearchRequest{
			IndexID:      indexID,
			Query:        query,
			SearchFields: searchFields,
			MaxHits:      searchMaxHits,
			StartOffset:  searchStartOff,
		},
	})
	if err != nil {
		return fmt.Errorf("root search: %w", err)
	}

	switch outputFormat {
	case "json":
		return outputJSON(result)
	default:
		fmt.Printf("%d hits (%d returned) in %dus\n",
			result.NumHits, len(result.Hits), result.ElapsedTimeMicros)
		for _, h := range result.Hits {
			fmt.Printf("  split=%s doc=%d score=%d: %s\n",
				h.PartialHit.SplitID, h.PartialHit.DocID,
				h.PartialHit.SortingFieldValue, string(h.JSON))
		}
	}
	return nil
}

// buildQuery turns the CLI's flat --term=field:value flag into a wire.Query,
// mirroring the small query DSL internal/wire.Query models.
func buildQuery(term string) (wire.Query, error) {
	if term == "" {
		return wire.Query{MatchAll: true}, nil
	}

	field, value, ok := strings.Cut(term, ":")
	if !ok {
		return wire.Query{}, fmt.Errorf("--term must be field:value, got %q", term)
	}

	return wire.Query{Term: &wire.Term{Field: field, Value: value}}, nil
}

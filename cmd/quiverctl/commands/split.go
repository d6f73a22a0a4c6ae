package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roasbeef/quiver/internal/metastore"
)

var splitState string

// splitCmd groups split lifecycle operations: one subcommand per spec.md
// §3 transition except stage (splits are staged only by the indexing
// pipeline's uploader), plus `list`.
var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "List or transition splits",
}

var splitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List splits in a given state (default: published)",
	RunE:  runSplitList,
}

var splitPublishCmd = &cobra.Command{
	Use:   "publish <split-id>...",
	Short: "Publish staged splits",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSplitPublish,
}

var splitMarkDeletedCmd = &cobra.Command{
	Use:   "mark-deleted <split-id>...",
	Short: "Mark splits as scheduled for deletion",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSplitMarkDeleted,
}

var splitDeleteCmd = &cobra.Command{
	Use:   "delete <split-id>...",
	Short: "Remove split rows (legal only from staged or scheduled-for-deletion)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSplitDelete,
}

func init() {
	splitListCmd.Flags().StringVar(&splitState, "state", "published",
		"One of: new, staged, published, scheduled-for-deletion, all")

	splitCmd.AddCommand(splitListCmd)
	splitCmd.AddCommand(splitPublishCmd)
	splitCmd.AddCommand(splitMarkDeletedCmd)
	splitCmd.AddCommand(splitDeleteCmd)
}

func runSplitList(cmd *cobra.Command, args []string) error {
	meta, err := openMetastore()
	if err != nil {
		return err
	}

	var splits []metastore.SplitMetadata
	if splitState == "all" {
		splits = meta.ListAllSplits()
	} else {
		state, err := parseSplitState(splitState)
		if err != nil {
			return err
		}
		splits = meta.ListSplits(state, nil)
	}

	switch outputFormat {
	case "json":
		return outputJSON(splits)
	default:
		for _, s := range splits {
			fmt.Printf("%s\t%s\t%d records\t%d bytes\n", s.SplitID, s.State, s.NumRecords, s.SizeInBytes)
		}
	}
	return nil
}

func runSplitPublish(cmd *cobra.Command, args []string) error {
	meta, err := openMetastore()
	if err != nil {
		return err
	}
	if err := meta.PublishSplits(args); err != nil {
		return fmt.Errorf("publish splits: %w", err)
	}
	fmt.Printf("published %d split(s)\n", len(args))
	return nil
}

func runSplitMarkDeleted(cmd *cobra.Command, args []string) error {
	meta, err := openMetastore()
	if err != nil {
		return err
	}
	if err := meta.MarkSplitsAsDeleted(args); err != nil {
		return fmt.Errorf("mark splits deleted: %w", err)
	}
	fmt.Printf("marked %d split(s) for deletion\n", len(args))
	return nil
}

func runSplitDelete(cmd *cobra.Command, args []string) error {
	meta, err := openMetastore()
	if err != nil {
		return err
	}
	if err := meta.DeleteSplits(args); err != nil {
		return fmt.Errorf("delete splits: %w", err)
	}
	fmt.Printf("deleted %d split row(s) (storage cleanup is a separate `quiverctl gc` step)\n", len(args))
	return nil
}

func parseSplitState(s string) (metastore.SplitState, error) {
	switch s {
	case "new":
		return metastore.SplitNew, nil
	case "staged":
		return metastore.SplitStaged, nil
	case "published":
		return metastore.SplitPublished, nil
	case "scheduled-for-deletion":
		return metastore.SplitScheduledForDeletion, nil
	default:
		return "", fmt.Errorf("unknown split state %q", s)
	}
}

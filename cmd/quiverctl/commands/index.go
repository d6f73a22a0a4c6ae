package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roasbeef/quiver/internal/gc"
	"github.com/roasbeef/quiver/internal/metastore"
)

var indexURI string

// indexCmd groups index-level operations.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Create or delete an index",
}

var indexCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new index's metastore",
	RunE:  runIndexCreate,
}

var indexDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an index: mark its splits deleted, clean storage, remove the row",
	RunE:  runIndexDelete,
}

func init() {
	indexCreateCmd.Flags().StringVar(&indexURI, "uri", "",
		"Index URI (defaults to the index ID)")
	indexDeleteCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"List what would be deleted without mutating anything")

	indexCmd.AddCommand(indexCreateCmd)
	indexCmd.AddCommand(indexDeleteCmd)
}

func runIndexCreate(cmd *cobra.Command, args []string) error {
	if err := requireIndex(); err != nil {
		return err
	}

	path := metastorePath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("metastore for index %q already exists at %s", indexID, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	uri := indexURI
	if uri == "" {
		uri = indexID
	}

	meta, err := metastore.Create(path, metastore.IndexMetadata{
		IndexID:  indexID,
		IndexURI: uri,
	})
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	switch outputFormat {
	case "json":
		return outputJSON(meta.IndexMetadata())
	default:
		fmt.Printf("created index %q at %s (uri=%s)\n", indexID, path, uri)
	}
	return nil
}

func runIndexDelete(cmd *cobra.Command, args []string) error {
	meta, err := openMetastore()
	if err != nil {
		return err
	}
	storage, err := openStorage()
	if err != nil {
		return err
	}
	led, err := openLedger()
	if err != nil {
		return err
	}
	defer led.Close()

	result, err := gc.DeleteIndex(
		context.Background(), meta, storage, led,
		maxConcurrentSplitTasks, dryRun,
	)
	if err != nil {
		return fmt.Errorf("delete index: %w", err)
	}

	switch outputFormat {
	case "json":
		return outputJSON(result)
	default:
		if dryRun {
			fmt.Printf("would mark %d split(s) deleted for index %q:\n", len(result.MarkedSplitIDs), indexID)
		} else {
			fmt.Printf("index %q deleted; %d split(s) were marked and cleaned up:\n", indexID, len(result.MarkedSplitIDs))
		}
		for _, id := range result.MarkedSplitIDs {
			fmt.Printf("  %s\n", id)
		}
	}
	return nil
}

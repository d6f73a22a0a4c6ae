package commands

import (
	"github.com/spf13/cobra"
)

var (
	// metastoreRoot is the directory holding per-index metastore.json
	// files, mirroring cmd/quiverd's config.Config.MetastoreRoot layout
	// ({metastoreRoot}/{index_id}/metastore.json).
	metastoreRoot string

	// storageRoot mirrors config.Config.StorageRoot.
	storageRoot string

	// ledgerPath mirrors config.Config.LedgerPath.
	ledgerPath string

	// indexID selects which index a split/gc subcommand operates on.
	indexID string

	// addr is the gRPC address of a running quiverd used by `search`.
	addr string

	// outputFormat controls output rendering (text, json).
	outputFormat string

	// maxConcurrentSplitTasks bounds per-split concurrency for gc/delete,
	// mirroring config.Config.MaxConcurrentSplitTasks.
	maxConcurrentSplitTasks int

	// dryRun is shared between `index delete --dry-run` and any future
	// dry-run-capable command.
	dryRun bool
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "quiverctl",
	Short: "quiverctl operates splits, indexes, and GC against a quiver node",
	Long: `quiverctl is the operator CLI for a quiver search node: it lists,
publishes, marks-deleted, and deletes splits directly against a metastore
root, creates and deletes indexes, drives garbage collection, and issues
RootSearch requests against a running quiverd.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&metastoreRoot, "metastore-root", "./var/metastore",
		"Root directory holding per-index metastore.json files",
	)
	rootCmd.PersistentFlags().StringVar(
		&storageRoot, "storage-root", "./var/splits",
		"Root directory holding per-index split storage",
	)
	rootCmd.PersistentFlags().StringVar(
		&ledgerPath, "ledger", "./var/ledger.db",
		"Path to the GC-age ledger SQLite file",
	)
	rootCmd.PersistentFlags().StringVar(
		&indexID, "index", "",
		"Index ID to operate on",
	)
	rootCmd.PersistentFlags().StringVar(
		&addr, "addr", "localhost:7280",
		"quiverd gRPC address for the search command",
	)
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "text",
		"Output format: text, json",
	)
	rootCmd.PersistentFlags().IntVar(
		&maxConcurrentSplitTasks, "max-concurrent-split-tasks", 4,
		"Bound on concurrent per-split delete tasks (gc, index delete)",
	)

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(searchCmd)
}

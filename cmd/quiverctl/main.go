// Command quiverctl is the operator CLI for a quiver node: it lists,
// publishes, marks-deleted, and deletes splits against a metastore root
// directly (the metastore file is the source of truth per spec.md §4.3, so
// no daemon round-trip is needed for these), runs GC passes, and issues
// RootSearch requests against a running quiverd.
package main

import (
	"fmt"
	"os"

	"github.com/roasbeef/quiver/cmd/quiverctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roasbeef/quiver/internal/metastore"
	"github.com/roasbeef/quiver/internal/metastore/ledger"
	"github.com/roasbeef/quiver/internal/storageiface"
)

func requireIndex() error {
	if indexID == "" {
		return fmt.Errorf("--index is required")
	}
	return nil
}

// openMetastore opens the metastore.json for the --index flag's index,
// erroring if it hasn't been created yet (use `quiverctl index create`
// first).
func openMetastore() (*metastore.Store, error) {
	if err := requireIndex(); err != nil {
		return nil, err
	}
	path := metastorePath()
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("metastore for index %q not found at %s "+
			"(run `quiverctl index create` first): %w", indexID, path, err)
	}
	return metastore.Open(path)
}

func metastorePath() string {
	return filepath.Join(metastoreRoot, indexID, "metastore.json")
}

func openStorage() (storageiface.Storage, error) {
	if err := requireIndex(); err != nil {
		return nil, err
	}
	return storageiface.NewLocalStorage(filepath.Join(storageRoot, indexID))
}

func openLedger() (*ledger.Ledger, error) {
	return ledger.Open(ledgerPath)
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

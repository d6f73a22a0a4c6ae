// Package config loads quiverd's static configuration. It follows the
// teacher's cmd/substrated flag-override style (internal/cmd/substrated)
// layered on top of a TOML file, the format joeycumines-go-utilpkg already
// pulls in (github.com/BurntSushi/toml).
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// SourceIndexingConfig mirrors spec.md §4.7: one scheduled source feeding
// one index at a fixed period.
type SourceIndexingConfig struct {
	SourceID       string        `toml:"source_id"`
	IndexID        string        `toml:"index_id"`
	IndexingPeriod time.Duration `toml:"indexing_period"`

	// SourceParams carries source-specific parameters (file path, stream
	// DSN, ...). Kept opaque here; the source implementation validates
	// it.
	SourceParams map[string]string `toml:"source_params"`

	// Fields describes the schema documents indexed under IndexID carry.
	// The metastore's own IndexConfig.Schema only stores this opaquely
	// (spec.md §3's encoder-is-external-dependency rule); quiverd decodes
	// it once at startup into an *indexiface.Schema for every campaign
	// and search request against this index.
	Fields []FieldConfig `toml:"fields"`
}

// FieldConfig is one schema field's TOML representation, decoded into an
// indexiface.FieldEntry by cmd/quiverd.
type FieldConfig struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	Indexed bool   `toml:"indexed"`
	Fast    bool   `toml:"fast"`
}

// Config is the top-level daemon configuration.
type Config struct {
	// MetastoreRoot is the local filesystem root holding the metastore
	// JSON file (metastore.json) for every configured index.
	MetastoreRoot string `toml:"metastore_root"`

	// LedgerPath is the SQLite file backing the GC-age ledger
	// (internal/metastore/ledger).
	LedgerPath string `toml:"ledger_path"`

	// StorageRoot is the local filesystem root used by the reference
	// Storage implementation (internal/storageiface).
	StorageRoot string `toml:"storage_root"`

	// GRPCListenAddr is the address the search gRPC server listens on.
	GRPCListenAddr string `toml:"grpc_listen_addr"`

	// PeerAddrs lists the other nodes' gRPC endpoints used by the root
	// search client pool.
	PeerAddrs []string `toml:"peer_addrs"`

	// MaxConcurrentSplitTasks sizes quiverd's shared worker pool (the slots
	// the sync indexing actors and leaf search's Collect/MergeFruits take)
	// and bounds concurrent uploads (C5). Leaf search opens and warms
	// splits without a bound; GC run through quiverctl uses that CLI's own
	// --max-concurrent-split-tasks flag.
	MaxConcurrentSplitTasks int `toml:"max_concurrent_split_tasks"`

	// MinSplitAge is the GC minimum-age filter resolving Open Question
	// (a) from spec.md §9: a Staged split younger than this is never
	// reclaimed by garbage-collect-index, to avoid racing an in-flight
	// campaign.
	MinSplitAge time.Duration `toml:"min_split_age"`

	// Sources lists the per-source indexing schedules driven by
	// internal/scheduler.
	Sources []SourceIndexingConfig `toml:"sources"`
}

// Default returns a Config with sane defaults, mirroring the teacher's
// DefaultServerConfig/DefaultConfig helpers.
func Default() Config {
	return Config{
		MetastoreRoot:           "./var/metastore",
		LedgerPath:              "./var/ledger.db",
		StorageRoot:             "./var/splits",
		GRPCListenAddr:          "localhost:7280",
		MaxConcurrentSplitTasks: 4,
		MinSplitAge:             time.Hour,
	}
}

// Load reads and parses a TOML configuration file, applying defaults for any
// field left zero-valued.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config %q: %w", path, err)
	}

	return cfg, nil
}

// Package indexing implements the five-actor indexing pipeline of spec.md
// §4.5: a Source that reads raw documents, an Indexer that builds a split in
// a scratch area, a Packager that builds its manifest and hot-cache, an
// Uploader that stages it in the metastore and copies it to storage, and a
// Publisher that flips it to Published and advances its checkpoint.
//
// Each stage is plumbed to the next by a plain actor.Mailbox; internal/indexing/campaign
// (C6) owns assigning flavors, pool sizes, and one shared kill-switch group
// across the chain.
package indexing

import (
	"encoding/json"

	"github.com/roasbeef/quiver/internal/actor"
	"github.com/roasbeef/quiver/internal/metastore"
)

// Batch is one group of raw documents read from a source, along with the
// checkpoint position reading them advanced the source to.
type Batch struct {
	actor.BaseMessage

	Docs             []json.RawMessage
	CheckpointUpdate metastore.Checkpoint
}

func (Batch) MessageType() string { return "batch" }

// IndexedSplit is sent once, from the Indexer's Finalize hook, once its
// writer has committed every buffered document to the scratch directory.
type IndexedSplit struct {
	actor.BaseMessage

	Label      string
	NumDocs    uint64
	Checkpoint metastore.Checkpoint
	Scratch    ScratchDirectory
	FileNames  []string
}

func (IndexedSplit) MessageType() string { return "indexed-split" }

// PackagedSplit is sent once the Packager has built a split's manifest and
// hot-cache blob from its committed files.
type PackagedSplit struct {
	actor.BaseMessage

	Label      string
	NumDocs    uint64
	Checkpoint metastore.Checkpoint
	Manifest   Manifest
	Scratch    ScratchDirectory
}

func (PackagedSplit) MessageType() string { return "packaged-split" }

// PublishRequest is sent once the Uploader has staged a split in the
// metastore and copied every file (plus its hot-cache) to durable storage.
type PublishRequest struct {
	actor.BaseMessage

	SplitID    string
	Checkpoint metastore.Checkpoint
}

func (PublishRequest) MessageType() string { return "publish-request" }

// Pump is Source's self-addressed message: processing one drives reading
// the next batch, modeling a continuously-running async actor atop a
// mailbox-driven runtime.
type Pump struct {
	actor.BaseMessage
}

func (Pump) MessageType() string { return "pump" }

// ManifestFile is one file a split's manifest lists, per spec.md §4.4.
type ManifestFile struct {
	Name      string `json:"name"`
	SizeBytes uint64 `json:"size_bytes"`
}

// Manifest is the split-local file listing plus hot-cache blob the Packager
// builds and the Uploader copies to storage alongside the split's data
// files, per spec.md §4.4 and §4.5.
type Manifest struct {
	Label           string         `json:"label"`
	Files           []ManifestFile `json:"files"`
	HotCache        []byte         `json:"-"`
	SplitFooterSize uint64         `json:"split_footer_size"`
}

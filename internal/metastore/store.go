package metastore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/roasbeef/quiver/internal/quivererr"
)

// fileVersion is the current metastore file format version written by this
// package. Readers don't reject other versions; the version field is
// carried through untouched the way any other unknown-to-us field would be.
const fileVersion = 1

// fileRoot is the on-disk JSON shape of spec.md §6: `{version, index, splits}`.
type fileRoot struct {
	Version int                      `json:"version"`
	Index   IndexMetadata            `json:"index"`
	Splits  map[string]SplitMetadata `json:"splits"`

	extra map[string]rawJSON
}

func (f fileRoot) MarshalJSON() ([]byte, error) {
	type alias fileRoot
	return marshalWithExtras(alias(f), f.extra)
}

func (f *fileRoot) UnmarshalJSON(data []byte) error {
	type alias fileRoot
	var a alias
	extra, err := unmarshalWithExtras(data, &a)
	if err != nil {
		return err
	}
	*f = fileRoot(a)
	f.extra = extra
	return nil
}

// Store is a single-file, JSON-serialized metastore, per spec.md §4.3. All
// mutations run under an exclusive write lock and are persisted (via a
// temp-file-then-rename sequence) before the call returns, mirroring the
// teacher's internal/db "exclusive write lock serializes all mutations"
// pattern adapted from a SQL transaction to a whole-file rewrite.
type Store struct {
	path string

	mu   sync.RWMutex
	root fileRoot
}

// Create initializes a brand-new metastore file for index at path. Fails if
// a file already exists there.
func Create(path string, index IndexMetadata) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, &quivererr.MetastoreError{
			Op:  "create_index",
			Err: fmt.Errorf("metastore file already exists: %s", path),
		}
	}

	s := &Store{
		path: path,
		root: fileRoot{
			Version: fileVersion,
			Index:   index,
			Splits:  make(map[string]SplitMetadata),
		},
	}

	if err := s.persistLocked(); err != nil {
		return nil, err
	}

	return s, nil
}

// Open loads an existing metastore file.
func Open(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &quivererr.MetastoreError{Op: "open", Err: err}
	}

	var root fileRoot
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, &quivererr.MetastoreError{Op: "open", Err: err}
	}
	if root.Splits == nil {
		root.Splits = make(map[string]SplitMetadata)
	}

	return &Store{path: path, root: root}, nil
}

// persistLocked writes the current root to disk via a temp-file-then-rename
// sequence, guaranteeing a reader never observes a half-written file. Caller
// must hold mu (read or write lock; mu is only ever taken for writing around
// this, since persistLocked is only called from mutating paths).
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.root, "", "  ")
	if err != nil {
		return &quivererr.MetastoreError{Op: "persist", Err: err}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".metastore-*.tmp")
	if err != nil {
		return &quivererr.MetastoreError{Op: "persist", Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &quivererr.MetastoreError{Op: "persist", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &quivererr.MetastoreError{Op: "persist", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &quivererr.MetastoreError{Op: "persist", Err: err}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return &quivererr.MetastoreError{Op: "persist", Err: err}
	}

	return nil
}

// IndexMetadata returns the (immutable) index-level metadata.
func (s *Store) IndexMetadata() IndexMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root.Index
}

// StageSplit implements stage_split: fails if split_id already exists.
func (s *Store) StageSplit(meta SplitMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.root.Splits[meta.SplitID]; exists {
		return &quivererr.MetastoreError{
			Op:  "stage_split",
			Err: fmt.Errorf("split %s already exists", meta.SplitID),
		}
	}

	meta.State = SplitStaged
	s.root.Splits[meta.SplitID] = meta

	return s.persistLocked()
}

// PublishSplits implements publish_splits: each id must already be Staged or
// Published (idempotent); moves Staged -> Published.
func (s *Store) PublishSplits(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		split, ok := s.root.Splits[id]
		if !ok {
			return &quivererr.MetastoreError{
				Op:  "publish_splits",
				Err: fmt.Errorf("split %s does not exist", id),
			}
		}
		if split.State != SplitStaged && split.State != SplitPublished {
			return &quivererr.MetastoreError{
				Op: "publish_splits",
				Err: fmt.Errorf(
					"split %s is in state %s, must be staged or published",
					id, split.State,
				),
			}
		}
	}

	for _, id := range ids {
		split := s.root.Splits[id]
		split.State = SplitPublished
		s.root.Splits[id] = split
	}

	return s.persistLocked()
}

// ListSplits implements list_splits: returns splits in the given state,
// filtered by an optional time range. A split with no TimeRange is always
// visible regardless of the filter (spec.md §4.3's "unknown-time splits are
// always visible" rule).
func (s *Store) ListSplits(state SplitState, timeRange *TimeRange) []SplitMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []SplitMetadata
	for _, split := range s.root.Splits {
		if split.State != state {
			continue
		}
		if timeRange != nil && split.TimeRange != nil && !split.TimeRange.Intersects(*timeRange) {
			continue
		}
		out = append(out, split)
	}

	return out
}

// ListAllSplits implements list_all_splits: every split regardless of state.
func (s *Store) ListAllSplits() []SplitMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SplitMetadata, 0, len(s.root.Splits))
	for _, split := range s.root.Splits {
		out = append(out, split)
	}
	return out
}

// MarkSplitsAsDeleted implements mark_splits_as_deleted: any non-absent
// split moves to ScheduledForDeletion; idempotent from any non-terminal
// state, per spec.md §3.
func (s *Store) MarkSplitsAsDeleted(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		split, ok := s.root.Splits[id]
		if !ok {
			return &quivererr.MetastoreError{
				Op:  "mark_splits_as_deleted",
				Err: fmt.Errorf("split %s does not exist", id),
			}
		}
		split.State = SplitScheduledForDeletion
		s.root.Splits[id] = split
	}

	return s.persistLocked()
}

// DeleteSplits implements delete_splits: only legal from Staged or
// ScheduledForDeletion; removes the row entirely.
func (s *Store) DeleteSplits(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		split, ok := s.root.Splits[id]
		if !ok {
			continue
		}
		if split.State != SplitStaged && split.State != SplitScheduledForDeletion {
			return &quivererr.MetastoreError{
				Op: "delete_splits",
				Err: fmt.Errorf(
					"split %s is in state %s, must be staged or "+
						"scheduled-for-deletion", id, split.State,
				),
			}
		}
	}

	for _, id := range ids {
		delete(s.root.Splits, id)
	}

	return s.persistLocked()
}

// DeleteIndex implements delete_index: the caller must have already marked
// every split as deleted (spec.md §3's "delete_index must leave no
// Published splits" invariant) before calling this; DeleteIndex itself only
// removes the metastore file.
func (s *Store) DeleteIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, split := range s.root.Splits {
		if split.State == SplitPublished {
			return &quivererr.MetastoreError{
				Op: "delete_index",
				Err: fmt.Errorf(
					"split %s is still published, mark it deleted first",
					split.SplitID,
				),
			}
		}
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return &quivererr.MetastoreError{Op: "delete_index", Err: err}
	}

	return nil
}

// UpdateCheckpoint merges src into the split's checkpoint and persists the
// result. Used by the publisher (C5) to record the source position a split
// covers once it's durably staged.
func (s *Store) UpdateCheckpoint(splitID string, src Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	split, ok := s.root.Splits[splitID]
	if !ok {
		return &quivererr.MetastoreError{
			Op:  "update_checkpoint",
			Err: fmt.Errorf("split %s does not exist", splitID),
		}
	}

	split.Checkpoint.Merge(src)
	s.root.Splits[splitID] = split

	return s.persistLocked()
}

// Package gc implements spec.md §4.10: deleting a whole index, and the
// periodic sweep that removes storage for splits already marked
// ScheduledForDeletion, whichever path put them there.
package gc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roasbeef/quiver/internal/metastore"
	"github.com/roasbeef/quiver/internal/metastore/ledger"
	"github.com/roasbeef/quiver/internal/storageiface"
)

// defaultMaxConcurrentSplitTasks mirrors the indexing pipeline's own
// MAX_CONCURRENT_SPLIT_TASKS default (see indexing.UploaderConfig).
const defaultMaxConcurrentSplitTasks = 4

// DeleteIndexResult reports what delete-index did (or, in a dry run, would
// do).
type DeleteIndexResult struct {
	// MarkedSplitIDs lists every Published or Staged split that was (or,
	// under DryRun, would be) moved to ScheduledForDeletion.
	MarkedSplitIDs []string
	DryRun         bool
}

// DeleteIndex implements spec.md §4.10's delete-index(dry): list Published
// and Staged splits, mark them all deleted, clean up their storage, then
// remove the metastore's index row. A dry run only computes
// DeleteIndexResult.MarkedSplitIDs and mutates nothing.
func DeleteIndex(
	ctx context.Context, meta *metastore.Store, storage storageiface.Storage,
	led *ledger.Ledger, maxConcurrentSplitTasks int, dryRun bool,
) (*DeleteIndexResult, error) {

	var ids []string
	for _, s := range meta.ListSplits(metastore.SplitPublished, nil) {
		ids = append(ids, s.SplitID)
	}
	for _, s := range meta.ListSplits(metastore.SplitStaged, nil) {
		ids = append(ids, s.SplitID)
	}

	result := &DeleteIndexResult{MarkedSplitIDs: ids, DryRun: dryRun}
	if dryRun {
		return result, nil
	}

	if len(ids) > 0 {
		if err := meta.MarkSplitsAsDeleted(ids); err != nil {
			return nil, fmt.Errorf("gc: delete index: mark deleted: %w", err)
		}
	}

	if err := DeleteGarbageFiles(ctx, meta, storage, led, maxConcurrentSplitTasks); err != nil {
		return nil, fmt.Errorf("gc: delete index: delete garbage files: %w", err)
	}

	if err := meta.DeleteIndex(); err != nil {
		return nil, fmt.Errorf("gc: delete index: %w", err)
	}

	return result, nil
}

// DeleteGarbageFiles implements spec.md §4.10's delete_garbage_files: every
// ScheduledForDeletion split has its storage prefix enumerated and removed,
// concurrently and bounded by maxConcurrentSplitTasks, after which the
// successfully-cleaned splits are dropped from the metastore row entirely.
// A per-split storage error is logged and does not stop the others; the
// splits that did clean up successfully are still removed from the
// metastore (spec.md §4.10's "successful deletions are not rolled back").
func DeleteGarbageFiles(
	ctx context.Context, meta *metastore.Store, storage storageiface.Storage,
	led *ledger.Ledger, maxConcurrentSplitTasks int,
) error {
	splits := meta.ListSplits(metastore.SplitScheduledForDeletion, nil)
	if len(splits) == 0 {
		return nil
	}
	if maxConcurrentSplitTasks <= 0 {
		maxConcurrentSplitTasks = defaultMaxConcurrentSplitTasks
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentSplitTasks)

	var mu sync.Mutex
	var cleaned []string
	var failures []error

	for _, split := range splits {
		splitID := split.SplitID
		g.Go(func() error {
			if err := removeSplitPrefix(ctx, storage, splitID); err != nil {
				log.Errorf("gc: failed to delete storage for split %s: %v", splitID, err)
				mu.Lock()
				failures = append(failures, fmt.Errorf("split %s: %w", splitID, err))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			cleaned = append(cleaned, splitID)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(cleaned) > 0 {
		if err := meta.DeleteSplits(cleaned); err != nil {
			return fmt.Errorf("gc: remove cleaned splits from metastore: %w", err)
		}
		if led != nil {
			for _, id := range cleaned {
				if err := led.Forget(id); err != nil {
					log.Warnf("gc: forget ledger entry for split %s: %v", id, err)
				}
			}
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("gc: %d split(s) failed storage cleanup: %w", len(failures), failures[0])
	}
	return nil
}

// removeSplitPrefix deletes every object under storage's split prefix,
// including the hot-cache sidecar (which ListPrefix enumerates like any
// other file).
func removeSplitPrefix(ctx context.Context, storage storageiface.Storage, splitID string) error {
	splitStorage := storage.WithPrefix(splitID)

	names, err := splitStorage.ListPrefix(ctx, "")
	if err != nil {
		return fmt.Errorf("list split prefix: %w", err)
	}

	for _, name := range names {
		if err := splitStorage.Delete(ctx, name); err != nil {
			return fmt.Errorf("delete %s: %w", name, err)
		}
	}
	return nil
}

// GarbageCollectResult reports which Staged splits a GarbageCollectIndex
// pass found orphaned and marked for deletion.
type GarbageCollectResult struct {
	OrphanedSplitIDs []string
}

// GarbageCollectIndex implements spec.md §4.10's garbage-collect-index:
// find Staged splits old enough to be considered abandoned (never
// published, likely because the campaign that staged them crashed before
// publishing), mark them deleted, then run DeleteGarbageFiles.
//
// "Old enough" is minAge per the ledger's staged_at record, resolving
// Open Question (a) from spec.md §9: a split with no ledger record has
// unknown age and is left alone rather than assumed old, since treating an
// unknown age as eligible would let GC race an in-flight campaign that
// staged a split moments ago.
func GarbageCollectIndex(
	ctx context.Context, meta *metastore.Store, storage storageiface.Storage,
	led *ledger.Ledger, minAge time.Duration, maxConcurrentSplitTasks int,
) (*GarbageCollectResult, error) {

	now := time.Now()
	var orphaned []string

	for _, split := range meta.ListSplits(metastore.SplitStaged, nil) {
		age, ok, err := led.Age(split.SplitID, now)
		if err != nil {
			return nil, fmt.Errorf("gc: query ledger age for split %s: %w", split.SplitID, err)
		}
		if !ok {
			log.Debugf("gc: split %s has no ledger record, skipping orphan check", split.SplitID)
			continue
		}
		if age >= minAge {
			orphaned = append(orphaned, split.SplitID)
		}
	}

	if len(orphaned) > 0 {
		if err := meta.MarkSplitsAsDeleted(orphaned); err != nil {
			return nil, fmt.Errorf("gc: garbage collect index: mark deleted: %w", err)
		}
	}

	if err := DeleteGarbageFiles(ctx, meta, storage, led, maxConcurrentSplitTasks); err != nil {
		return nil, fmt.Errorf("gc: garbage collect index: delete garbage files: %w", err)
	}

	return &GarbageCollectResult{OrphanedSplitIDs: orphaned}, nil
}

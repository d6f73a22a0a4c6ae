// Package storageiface names the object-storage collaborator spec.md §1
// treats as an external dependency with only a named interface, plus a
// local-filesystem reference implementation used by tests and single-node
// deployments.
package storageiface

import "context"

// ByteRange is the half-open byte range [Start, Start+Length) within an
// object. The zero value (Start 0, Length 0) is WholeObject, so it never
// means an empty read; callers that want "whole object" use WholeObject.
type ByteRange struct {
	Start  uint64
	Length uint64
}

// WholeObject is the zero-value sentinel meaning "fetch everything".
var WholeObject = ByteRange{}

// IsWhole reports whether r requests the entire object.
func (r ByteRange) IsWhole() bool { return r == WholeObject }

// Storage is the object-storage collaborator of spec.md §4.4/§4.8: byte-range
// reads, whole-object writes, prefix listing (for GC), and deletion.
// Implementations need not support partial writes; splits are written once
// and never mutated, per spec.md §1's non-goals.
type Storage interface {
	// Get fetches the given byte range of path. A WholeObject range fetches
	// the entire object.
	Get(ctx context.Context, path string, r ByteRange) ([]byte, error)

	// Put writes data to path, replacing any prior contents.
	Put(ctx context.Context, path string, data []byte) error

	// Delete removes path. Deleting a path that doesn't exist is not an
	// error, matching the idempotent-retry expectations of the GC path
	// (spec.md §4.10).
	Delete(ctx context.Context, path string) error

	// ListPrefix lists every object path under prefix. Used by GC to
	// enumerate a split's files before deleting them (spec.md §4.10) and by
	// leaf search to find a split's segment files; no directory semantics
	// are assumed beyond this.
	ListPrefix(ctx context.Context, prefix string) ([]string, error)

	// WithPrefix returns a view of this storage rooted at prefix, so
	// `storage.WithPrefix(indexURI).WithPrefix(splitID)` reads as
	// `{index_uri}/{split_id}/...` per spec.md §4.8 step 1.
	WithPrefix(prefix string) Storage
}

package actor

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// WorkerPool bounds the number of sync actors that may be running at once,
// modeling spec.md §4.1's "dedicated blocking worker pool" for the Sync
// actor flavor. Grounded on the teacher's internal/actorutil/pool.go
// worker-gating idiom, implemented with golang.org/x/sync/semaphore exactly
// as the teacher's own concurrency-gated paths do.
type WorkerPool struct {
	sem *semaphore.Weighted
}

// NewWorkerPool creates a pool with room for size concurrently running sync
// actors.
func NewWorkerPool(size int64) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{sem: semaphore.NewWeighted(size)}
}

// Acquire blocks until a worker slot is free or ctx is cancelled.
func (p *WorkerPool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// Release frees the worker slot.
func (p *WorkerPool) Release() {
	p.sem.Release(1)
}

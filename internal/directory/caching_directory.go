package directory

import (
	"container/list"
	"context"
	"sync"

	"github.com/roasbeef/quiver/internal/storageiface"
)

// cacheKey identifies one cached read: a path and the exact byte range
// requested. Two overlapping-but-distinct ranges are different keys,
// matching spec.md §4.4's "(path, byte_range) pair" cache granularity.
type cacheKey struct {
	path string
	r    storageiface.ByteRange
}

type cacheEntry struct {
	key  cacheKey
	data []byte
}

// CachingDirectory wraps a Directory with a byte-range cache. With
// maxBytes == 0 it is unbounded (no eviction); otherwise it evicts the
// least-recently-used entries once the cached total exceeds maxBytes, per
// spec.md §4.4's two capacity modes.
//
// Concurrent misses for the same key may each fetch from below and
// overwrite one another's cache entry; this is deliberate (spec.md §4.4
// accepts duplicated fetches as the price of not serializing reads).
type CachingDirectory struct {
	below    Directory
	maxBytes uint64

	mu       sync.Mutex
	ll       *list.List
	items    map[cacheKey]*list.Element
	curBytes uint64
}

// NewCachingDirectory builds a CachingDirectory over below. maxBytes == 0
// means unbounded.
func NewCachingDirectory(below Directory, maxBytes uint64) *CachingDirectory {
	return &CachingDirectory{
		below:    below,
		maxBytes: maxBytes,
		ll:       list.New(),
		items:    make(map[cacheKey]*list.Element),
	}
}

func (c *CachingDirectory) ReadRange(ctx context.Context, path string, r storageiface.ByteRange) ([]byte, error) {
	key := cacheKey{path: path, r: r}

	if data, ok := c.get(key); ok {
		return data, nil
	}

	data, err := c.below.ReadRange(ctx, path, r)
	if err != nil {
		return nil, err
	}

	c.put(key, data)
	return data, nil
}

func (c *CachingDirectory) get(key cacheKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).data, true
}

func (c *CachingDirectory) put(key cacheKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := uint64(len(data))

	// A single result larger than the whole budget is returned to the
	// caller but never cached, per spec.md §4.4.
	if c.maxBytes > 0 && size > c.maxBytes {
		return
	}

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		old := el.Value.(*cacheEntry)
		c.curBytes -= uint64(len(old.data))
		old.data = data
		c.curBytes += size
		return
	}

	el := c.ll.PushFront(&cacheEntry{key: key, data: data})
	c.items[key] = el
	c.curBytes += size

	if c.maxBytes == 0 {
		return
	}
	for c.curBytes > c.maxBytes {
		back := c.ll.Back()
		if back == nil {
			break
		}
		evicted := back.Value.(*cacheEntry)
		c.ll.Remove(back)
		delete(c.items, evicted.key)
		c.curBytes -= uint64(len(evicted.data))
	}
}

// Len reports the number of entries currently cached, for tests.
func (c *CachingDirectory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

var _ Directory = (*CachingDirectory)(nil)

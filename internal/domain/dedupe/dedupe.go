// Package dedupe recognizes repeated matching requests so their stored run can be replayed.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Index maps request fingerprints to the ID of the run that answered them.
type Index interface {
	// Lookup returns the run ID recorded for fp.
	Lookup(ctx context.Context, fp uint64) (string, bool)

	// Record stores runID under fp, replacing any previous entry.
	// When the index is full the oldest entry is evicted.
	Record(ctx context.Context, fp uint64, runID string)

	// Forget removes fp, e.g. after its run was dropped from the store.
	Forget(ctx context.Context, fp uint64)

	Size() int64
}

// node is an entry in the insertion-ordered list.
type node struct {
	fp         uint64
	runID      string
	prev, next *node
}

func (n *node) reset() {
	n.fp = 0
	n.runID = ""
	n.prev = nil
	n.next = nil
}

// inMemoryIndex keeps a bounded map plus a doubly linked list in insertion
// order; head is the newest entry and tail the oldest.
// maxSize <= 0 disables eviction.
type inMemoryIndex struct {
	mu       sync.Mutex
	entries  map[uint64]*node
	head     *node
	tail     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryIndex creates a new in-memory index with configuration options.
func NewInMemoryIndex(opts ...Option) Index {
	d := &inMemoryIndex{
		maxSize: 1024,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.entries = make(map[uint64]*node)
	d.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return d
}

func (d *inMemoryIndex) Lookup(ctx context.Context, fp uint64) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.entries[fp]
	if !ok {
		return "", false
	}
	return n.runID, true
}

func (d *inMemoryIndex) Record(ctx context.Context, fp uint64, runID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.entries[fp]; ok {
		n.runID = runID
		return
	}
	if d.maxSize > 0 && len(d.entries) >= d.maxSize {
		d.evictOldest()
	}

	n := d.nodePool.Get().(*node)
	n.fp = fp
	n.runID = runID
	n.next = d.head
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
	d.entries[fp] = n
	d.size.Add(1)
}

func (d *inMemoryIndex) Forget(ctx context.Context, fp uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.entries[fp]; ok {
		d.unlink(n)
	}
}

// evictOldest drops the tail entry. Must be called with d.mu held.
func (d *inMemoryIndex) evictOldest() {
	if d.tail != nil {
		d.unlink(d.tail)
	}
}

// unlink removes n from the list and the map. Must be called with d.mu held.
func (d *inMemoryIndex) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	delete(d.entries, n.fp)
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}

// Size returns the current number of entries.
func (d *inMemoryIndex) Size() int64 {
	return d.size.Load()
}

// Package dedupe tracks seen capture-event IDs for at-most-once apply.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// defaultMaxSize bounds the dedupe window; browsers replay selection
// events freely, so the window only needs to outlast a session.
const defaultMaxSize = 100000

// Deduper records seen event IDs so replayed captures are dropped before
// they reach the queue.
type Deduper interface {
	// SeenAndRecord atomically checks id and records it when new,
	// returning true when id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an id so the event can be retried. Used when an
	// event was recorded but could not be enqueued.
	Unrecord(ctx context.Context, id string)

	// Size returns the number of remembered ids.
	Size() int64
}

// slot is one ring entry; ok distinguishes an empty slot from a recorded
// empty-string id.
type slot struct {
	id string
	ok bool
}

// ringDeduper keeps ids in a fixed ring paired with an index map. When
// the ring wraps, the id occupying the slot is forgotten first, so the
// oldest entries age out. maxSize <= 0 disables the ring and eviction.
type ringDeduper struct {
	mu      sync.Mutex
	slots   map[string]int
	ring    []slot
	next    int
	maxSize int
	size    atomic.Int64
}

// NewRingDeduper creates a deduper with configuration options.
func NewRingDeduper(opts ...Option) Deduper {
	d := &ringDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.slots = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]slot, d.maxSize)
	}
	return d
}

// SeenAndRecord atomically checks id and records it when new.
func (d *ringDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.slots[id]; exists {
		return true
	}

	if d.maxSize > 0 {
		if s := d.ring[d.next]; s.ok {
			delete(d.slots, s.id)
			d.size.Add(-1)
		}
		d.ring[d.next] = slot{id: id, ok: true}
		d.slots[id] = d.next
		d.next = (d.next + 1) % d.maxSize
	} else {
		d.slots[id] = -1
	}

	d.size.Add(1)
	return false
}

// Unrecord forgets an id, clearing its ring slot so eviction order stays
// consistent.
func (d *ringDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx, exists := d.slots[id]
	if !exists {
		return
	}

	delete(d.slots, id)
	if d.maxSize > 0 && idx >= 0 {
		d.ring[idx] = slot{}
	}
	d.size.Add(-1)
}

// Size returns the current number of remembered ids.
func (d *ringDeduper) Size() int64 {
	return d.size.Load()
}

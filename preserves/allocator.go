package preserves

import (
	"fmt"
	"sync"
)

// Allocator is the allocation capability spec §9's design notes describe:
// every heap allocation the plan engine makes while assembling a
// partially-built value flows through this single seam, so a caller can
// swap in pooling, arena, or accounting behavior without touching the
// scanner or plan code. The zero-allocation path described in spec §9
// (fixed-size primitives, borrow-only reads of fully contained payloads)
// never calls an Allocator at all.
type Allocator interface {
	// Bytes returns a buffer with length 0 and at least the requested
	// capacity, for the plan engine to grow with append as a partial
	// payload accumulates across refills.
	Bytes(capacity int) []byte

	// Release returns a buffer obtained from Bytes to the allocator. It
	// is called only during cleanup of an in-progress, not-yet-returned
	// value; buffers that made it into a value the driver returned to
	// the caller are the caller's responsibility. A non-nil error is a
	// release-time failure (an implementation rejecting a buffer it
	// never issued, say); the plan engine collects these rather than
	// discarding all but the last (spec §7's cleanup step).
	Release(buf []byte) error
}

// heapAllocator is the trivial Allocator: make/append, no pooling. It is
// used when callers pass a nil Allocator to Parse. Release never fails:
// there is no pool to misuse a buffer against.
type heapAllocator struct{}

func (heapAllocator) Bytes(capacity int) []byte { return make([]byte, 0, capacity) }
func (heapAllocator) Release([]byte) error      { return nil }

// PoolAllocator is a sync.Pool-backed Allocator scoped to repeated parses
// of similarly-sized documents, e.g. many small messages on one
// connection. Per spec §5, pooling here is a throughput optimization for
// sequential reuse, not a concurrency primitive — a single PoolAllocator
// may be shared by unrelated single-threaded parses run one at a time,
// but a parse in progress must not share its Allocator with another
// concurrently in-progress parse.
type PoolAllocator struct {
	pool         *sync.Pool
	capacityHint int
}

// NewPoolAllocator creates a PoolAllocator whose pooled buffers start at
// the given capacity hint.
func NewPoolAllocator(capacityHint int) *PoolAllocator {
	if capacityHint <= 0 {
		capacityHint = 64
	}
	return &PoolAllocator{
		capacityHint: capacityHint,
		pool: &sync.Pool{
			New: func() any {
				b := make([]byte, 0, capacityHint)
				return &b
			},
		},
	}
}

// Bytes implements Allocator.
func (p *PoolAllocator) Bytes(capacity int) []byte {
	bp := p.pool.Get().(*[]byte)
	b := (*bp)[:0]
	if cap(b) < capacity {
		b = make([]byte, 0, capacity)
	}
	return b
}

// Release implements Allocator. It rejects a buffer whose capacity is
// smaller than the pool's hint: such a buffer was never handed out by
// this pool's Bytes, so accepting it back would poison the pool with an
// undersized entry for the next Bytes caller.
func (p *PoolAllocator) Release(buf []byte) error {
	if cap(buf) < p.capacityHint {
		return fmt.Errorf("preserves: release buffer capacity %d below pool hint %d", cap(buf), p.capacityHint)
	}
	buf = buf[:0]
	p.pool.Put(&buf)
	return nil
}

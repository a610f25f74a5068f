// Package allocator implements a user-space heap allocator over a single
// externally supplied contiguous byte buffer. It emulates the classic
// malloc/free/realloc interface confined to that buffer, using an
// implicit-boundary-tag heap with an explicit doubly-linked,
// address-ordered free list. The arena never touches file descriptors,
// sockets, or any OS resource beyond the slice it was handed; callers
// supply the backing memory (a plain slice, an mmap'd region, anything)
// and own its lifetime.
package allocator

import "unsafe"

// Arena manages allocation within a single backing buffer. It is not safe
// for concurrent use by multiple goroutines; see SyncArena for a wrapped,
// mutex-guarded variant.
type Arena struct {
	buf  []byte
	n    int64
	head int64
	cfg  *Config

	allocCount uint64
	freeCount  uint64
}

// AllocatorStats is a point-in-time snapshot of an Arena's occupancy. It is
// computed fresh on every call to Stats, so reading it never perturbs the
// allocator's own bookkeeping.
type AllocatorStats struct {
	BytesInUse       uint64
	FreeBytes        uint64
	AllocationCount  uint64
	FreeCount        uint64
	FreeBlockCount   int
	LargestFreeBlock uint64
}

// New carves buf into a single free block spanning its entire usable
// capacity and returns an Arena ready to service Allocate calls. buf must
// be large enough to hold one block's header and footer plus at least one
// payload byte; New never allocates memory of its own.
func New(buf []byte, opts ...Option) (*Arena, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	n := int64(len(buf))
	if n <= headerSize+footerSize {
		return nil, ErrBufferTooSmall
	}

	a := &Arena{buf: buf, n: n, head: 0, cfg: cfg}

	payload := uint64(n - headerSize - footerSize)
	writeHeader(buf, 0, header{size: payload, free: true, prev: absent, next: absent})
	writeFooter(buf, footerOffset(0, payload), footer{size: payload, free: true})

	return a, nil
}

// Allocate reserves a block of at least size bytes and returns a pointer to
// its payload. The payload is not zeroed. ErrNoFit is returned when no
// single free block is large enough, whether or not the total free space
// would suffice; ErrTooLarge is returned when size could never fit
// regardless of fragmentation.
func (a *Arena) Allocate(size uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, ErrZeroSize
	}

	want := uint64(size)
	if int64(want) > a.n-headerSize-footerSize {
		return nil, ErrTooLarge
	}

	off := a.findFirstFit(want)
	if off == absent {
		return nil, ErrNoFit
	}

	h := readHeader(a.buf, off)
	a.trySplit(off, h.size, want, true)
	a.reserve(off)

	if a.cfg.TrackStats {
		a.allocCount++
	}

	return unsafe.Pointer(&a.buf[payloadOffset(off)]), nil
}

// Free releases the block owning p back to the arena, eagerly coalescing
// it with any free physical neighbor on either side. p must be a pointer
// previously returned by Allocate or Reallocate on this same Arena and not
// already freed; violating that is undefined behavior. A pointer outside
// the backing buffer is always rejected with ErrForeignPointer. With
// DebugChecks enabled, corruption left by misuse such as a double free is
// reported as a *ValidationError by the Validate run after the mutation;
// the arena's state is not rolled back.
func (a *Arena) Free(p unsafe.Pointer) error {
	off, err := a.offsetOf(p)
	if err != nil {
		return err
	}

	if a.cfg.DebugChecks {
		if err := a.Validate(); err != nil {
			return err
		}
	}

	h := readHeader(a.buf, off)
	sz := h.size

	h.free = true
	writeHeader(a.buf, off, h)
	writeFooter(a.buf, footerOffset(off, sz), footer{size: sz, free: true})

	a.freelistInsert(off)

	cur := off
	curSize := sz

	if !isFirstBlock(cur) {
		prevFoot := readFooter(a.buf, prevFooterOffset(cur))
		if prevFoot.free {
			left := prevHeaderOffset(cur, prevFoot)
			a.mergeAdjacent(left, cur)
			cur = left
			curSize = readHeader(a.buf, left).size
		}
	}

	nextOff := nextHeaderOffset(cur, curSize)
	if nextOff < a.n {
		nextH := readHeader(a.buf, nextOff)
		if nextH.free {
			a.mergeAdjacent(cur, nextOff)
		}
	}

	if a.cfg.TrackStats {
		a.freeCount++
	}

	if a.cfg.DebugChecks {
		if err := a.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Reallocate resizes the block owning p to size bytes, preserving its
// content up to min(old size, size) and returning a pointer that may or
// may not equal p. p == nil behaves like Allocate; size == 0 behaves like
// Free and returns a nil pointer. Shrinking splits off a trailing free
// residual in place; growing tries the right neighbor, then the left
// neighbor, before falling back to allocate-copy-free.
func (a *Arena) Reallocate(p unsafe.Pointer, size uintptr) (unsafe.Pointer, error) {
	if p == nil {
		return a.Allocate(size)
	}

	if size == 0 {
		return nil, a.Free(p)
	}

	off, err := a.offsetOf(p)
	if err != nil {
		return nil, err
	}

	if a.cfg.DebugChecks {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}

	h := readHeader(a.buf, off)
	cur := h.size
	want := uint64(size)

	var result int64

	switch {
	case want < cur:
		a.trySplit(off, cur, want, false)
		result = off

	case want == cur:
		result = off

	default:
		if int64(want) > a.n-headerSize-footerSize {
			return nil, ErrTooLarge
		}

		grown, growErr := a.reallocGrow(off, cur, want)
		if growErr == nil {
			result = grown
		} else {
			newPtr, allocErr := a.Allocate(size)
			if allocErr != nil {
				return nil, ErrOutOfMemory
			}

			newOff, offErr := a.offsetOf(newPtr)
			if offErr != nil {
				return nil, offErr
			}

			copy(a.buf[payloadOffset(newOff):payloadOffset(newOff)+int64(cur)],
				a.buf[payloadOffset(off):payloadOffset(off)+int64(cur)])

			if err := a.Free(p); err != nil {
				return nil, err
			}

			result = newOff
		}
	}

	if a.cfg.DebugChecks {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}

	return unsafe.Pointer(&a.buf[payloadOffset(result)]), nil
}

// offsetOf converts a payload pointer previously handed out by this Arena
// back into its header's byte offset, rejecting pointers that fall outside
// the backing buffer entirely.
func (a *Arena) offsetOf(p unsafe.Pointer) (int64, error) {
	base := uintptr(unsafe.Pointer(&a.buf[0]))
	addr := uintptr(p)

	if addr < base || addr >= base+uintptr(a.n) {
		return 0, ErrForeignPointer
	}

	off := headerOffsetFromPayload(int64(addr - base))
	if off < 0 || off >= a.n {
		return 0, ErrForeignPointer
	}

	return off, nil
}

// Stats walks every block in the arena and returns a fresh occupancy
// snapshot. Allocation and free counters are cheap running totals;
// everything else is recomputed here rather than maintained incrementally,
// so a bug in one operation's bookkeeping can never skew Stats itself.
func (a *Arena) Stats() AllocatorStats {
	stats := AllocatorStats{
		AllocationCount: a.allocCount,
		FreeCount:       a.freeCount,
	}

	off := int64(0)
	for off < a.n {
		h := readHeader(a.buf, off)

		if h.free {
			stats.FreeBytes += h.size
			stats.FreeBlockCount++

			if h.size > stats.LargestFreeBlock {
				stats.LargestFreeBlock = h.size
			}
		} else {
			stats.BytesInUse += h.size
		}

		off = nextHeaderOffset(off, h.size)
	}

	return stats
}

// Validate walks the block chain and the free list, checking every
// structural invariant the allocator depends on, and returns a
// *ValidationError naming the first one it finds broken. It runs in
// O(blocks + free-list-length) and is intended for tests, fuzzing, and
// WithDebugChecks — not the allocation hot path.
func (a *Arena) Validate() error {
	freeSet := make(map[int64]bool)

	off := int64(0)
	prevWasFree := false

	for off < a.n {
		h := readHeader(a.buf, off)

		fOff := footerOffset(off, h.size)
		if fOff+footerSize > a.n {
			return newValidationError("block-overrun", "block overruns the buffer", uintptr(off))
		}

		f := readFooter(a.buf, fOff)
		if f.size != h.size || f.free != h.free {
			return newValidationError("header-footer-mismatch", "header and footer disagree", uintptr(off))
		}

		if h.free && prevWasFree {
			return newValidationError("adjacent-free-blocks", "two physically adjacent free blocks", uintptr(off))
		}

		if h.free {
			freeSet[off] = true
		}

		prevWasFree = h.free
		off = nextHeaderOffset(off, h.size)
	}

	if off != a.n {
		return newValidationError("incomplete-tiling", "blocks do not exactly tile the buffer", uintptr(off))
	}

	seen := make(map[int64]bool)
	prev := absent
	lastAddr := int64(-1)
	cur := a.head

	for cur != absent {
		if !freeSet[cur] {
			return newValidationError("freelist-non-free-member", "free list references a non-free block", uintptr(cur))
		}

		if seen[cur] {
			return newValidationError("freelist-cycle", "free list contains a cycle", uintptr(cur))
		}
		seen[cur] = true

		if cur <= lastAddr {
			return newValidationError("freelist-order", "free list is not in ascending address order", uintptr(cur))
		}
		lastAddr = cur

		h := readHeader(a.buf, cur)
		if h.prev != prev {
			return newValidationError("freelist-link-mismatch", "free block's prev link is inconsistent", uintptr(cur))
		}

		if h.next != absent {
			nextH := readHeader(a.buf, h.next)
			if nextH.prev != cur {
				return newValidationError("freelist-link-mismatch", "free block's next.prev link is inconsistent", uintptr(cur))
			}
		}

		prev = cur
		cur = h.next
	}

	if len(seen) != len(freeSet) {
		return newValidationError("freelist-missing-member", "a free-tagged block is missing from the free list", uintptr(0))
	}

	return nil
}

package allocator

import (
	"testing"
	"unsafe"
)

func newTestArena(t *testing.T, size int, opts ...Option) *Arena {
	t.Helper()

	a, err := New(make([]byte, size), opts...)
	if err != nil {
		t.Fatalf("New(%d) failed: %v", size, err)
	}

	return a
}

func writePattern(p unsafe.Pointer, n int, seed byte) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = byte(i) + seed
	}
}

func checkPattern(t *testing.T, p unsafe.Pointer, n int, seed byte) {
	t.Helper()

	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		if b[i] != byte(i)+seed {
			t.Fatalf("pattern mismatch at byte %d: got %d want %d", i, b[i], byte(i)+seed)
		}
	}
}

func TestNewRejectsUndersizedBuffer(t *testing.T) {
	if _, err := New(make([]byte, headerSize+footerSize)); err != ErrBufferTooSmall {
		t.Fatalf("got %v, want ErrBufferTooSmall", err)
	}
}

func TestAllocateZeroSize(t *testing.T) {
	a := newTestArena(t, 4096)

	if _, err := a.Allocate(0); err != ErrZeroSize {
		t.Fatalf("got %v, want ErrZeroSize", err)
	}
}

func TestAllocateTooLarge(t *testing.T) {
	a := newTestArena(t, 256)

	if _, err := a.Allocate(10000); err != ErrTooLarge {
		t.Fatalf("got %v, want ErrTooLarge", err)
	}
}

func TestFillExactlyThenRelease(t *testing.T) {
	a := newTestArena(t, 512)

	want := uint64(512 - headerSize - footerSize)

	p, err := a.Allocate(uintptr(want))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	writePattern(p, int(want), 7)

	if _, err := a.Allocate(1); err != ErrNoFit {
		t.Fatalf("got %v, want ErrNoFit once arena is exhausted", err)
	}

	if err := a.Validate(); err != nil {
		t.Fatalf("Validate failed while full: %v", err)
	}

	checkPattern(t, p, int(want), 7)

	if err := a.Free(p); err != nil {
		t.Fatalf("Free failed: %v", err)
	}

	stats := a.Stats()
	if stats.BytesInUse != 0 {
		t.Fatalf("BytesInUse = %d, want 0 after releasing the only block", stats.BytesInUse)
	}
	if stats.FreeBytes != want {
		t.Fatalf("FreeBytes = %d, want %d", stats.FreeBytes, want)
	}
}

func TestFirstFitOverGap(t *testing.T) {
	a := newTestArena(t, 4096)

	p1, err := a.Allocate(64)
	if err != nil {
		t.Fatalf("alloc p1: %v", err)
	}
	p2, err := a.Allocate(64)
	if err != nil {
		t.Fatalf("alloc p2: %v", err)
	}
	p3, err := a.Allocate(64)
	if err != nil {
		t.Fatalf("alloc p3: %v", err)
	}

	if err := a.Free(p2); err != nil {
		t.Fatalf("free p2: %v", err)
	}

	// A request that fits within the freed gap should reuse it, not
	// extend into the untouched tail.
	p4, err := a.Allocate(32)
	if err != nil {
		t.Fatalf("alloc p4: %v", err)
	}

	off4, err := a.offsetOf(p4)
	if err != nil {
		t.Fatalf("offsetOf p4: %v", err)
	}
	off2, err := a.offsetOf(p2)
	if err != nil {
		t.Fatalf("offsetOf p2: %v", err)
	}

	if off4 != off2 {
		t.Fatalf("first-fit did not reuse the freed gap: p4 at %d, p2 was at %d", off4, off2)
	}

	_ = p1
	_ = p3

	if err := a.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestTwoSidedCoalesce(t *testing.T) {
	a := newTestArena(t, 4096)

	p1, _ := a.Allocate(64)
	p2, _ := a.Allocate(64)
	p3, _ := a.Allocate(64)

	if err := a.Free(p1); err != nil {
		t.Fatalf("free p1: %v", err)
	}
	if err := a.Free(p3); err != nil {
		t.Fatalf("free p3: %v", err)
	}

	statsBefore := a.Stats()
	if statsBefore.FreeBlockCount != 2 {
		t.Fatalf("expected 2 disjoint free blocks before middle is freed, got %d", statsBefore.FreeBlockCount)
	}

	if err := a.Free(p2); err != nil {
		t.Fatalf("free p2: %v", err)
	}

	if err := a.Validate(); err != nil {
		t.Fatalf("Validate after two-sided coalesce: %v", err)
	}

	statsAfter := a.Stats()
	if statsAfter.FreeBlockCount != 1 {
		t.Fatalf("expected a single coalesced free block, got %d", statsAfter.FreeBlockCount)
	}
}

func TestReallocGrowIntoNext(t *testing.T) {
	a := newTestArena(t, 4096)

	p1, _ := a.Allocate(64)
	p2, err := a.Allocate(64)
	if err != nil {
		t.Fatalf("alloc p2: %v", err)
	}

	writePattern(p1, 64, 1)

	if err := a.Free(p2); err != nil {
		t.Fatalf("free p2: %v", err)
	}

	grown, err := a.Reallocate(p1, 100)
	if err != nil {
		t.Fatalf("Reallocate: %v", err)
	}

	off1, _ := a.offsetOf(p1)
	offGrown, _ := a.offsetOf(grown)
	if off1 != offGrown {
		t.Fatalf("growing into a free right neighbor should not move the block")
	}

	checkPattern(t, grown, 64, 1)

	if err := a.Validate(); err != nil {
		t.Fatalf("Validate after grow-into-next: %v", err)
	}
}

func TestReallocGrowIntoPrev(t *testing.T) {
	a := newTestArena(t, 4096)

	p1, err := a.Allocate(64)
	if err != nil {
		t.Fatalf("alloc p1: %v", err)
	}
	p2, err := a.Allocate(64)
	if err != nil {
		t.Fatalf("alloc p2: %v", err)
	}
	// p3 pins down p2's right neighbor as reserved, forcing Reallocate to
	// grow leftward into p1 rather than rightward into the arena's tail.
	p3, err := a.Allocate(64)
	if err != nil {
		t.Fatalf("alloc p3: %v", err)
	}

	writePattern(p2, 64, 3)

	if err := a.Free(p1); err != nil {
		t.Fatalf("free p1: %v", err)
	}

	grown, err := a.Reallocate(p2, 100)
	if err != nil {
		t.Fatalf("Reallocate: %v", err)
	}

	off2, _ := a.offsetOf(p2)
	offGrown, _ := a.offsetOf(grown)
	if offGrown >= off2 {
		t.Fatalf("expected growth into the lower-addressed left neighbor, header moved from %d to %d", off2, offGrown)
	}

	checkPattern(t, grown, 64, 3)

	if err := a.Validate(); err != nil {
		t.Fatalf("Validate after grow-into-prev: %v", err)
	}

	_ = p3
}

func TestReallocRelocates(t *testing.T) {
	a := newTestArena(t, 4096)

	p1, _ := a.Allocate(64)
	_, err := a.Allocate(64)
	if err != nil {
		t.Fatalf("alloc p2: %v", err)
	}
	p3, _ := a.Allocate(64)

	writePattern(p1, 64, 5)

	// p1 has no free neighbor on either side (p2 is still live), so growth
	// must relocate.
	grown, err := a.Reallocate(p1, 200)
	if err != nil {
		t.Fatalf("Reallocate: %v", err)
	}

	off1, _ := a.offsetOf(p1)
	offGrown, _ := a.offsetOf(grown)
	if off1 == offGrown {
		t.Fatalf("expected relocation, block stayed at the same offset")
	}

	checkPattern(t, grown, 64, 5)

	if err := a.Validate(); err != nil {
		t.Fatalf("Validate after relocating realloc: %v", err)
	}

	_ = p3
}

func TestReallocShrinkSplits(t *testing.T) {
	a := newTestArena(t, 4096)

	p, err := a.Allocate(256)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}

	writePattern(p, 64, 9)

	shrunk, err := a.Reallocate(p, 64)
	if err != nil {
		t.Fatalf("Reallocate shrink: %v", err)
	}

	checkPattern(t, shrunk, 64, 9)

	stats := a.Stats()
	if stats.FreeBlockCount != 1 {
		t.Fatalf("expected the shrink residual to be freed, got %d free blocks", stats.FreeBlockCount)
	}

	if err := a.Validate(); err != nil {
		t.Fatalf("Validate after shrink: %v", err)
	}
}

func TestReallocNilActsLikeAllocate(t *testing.T) {
	a := newTestArena(t, 4096)

	p, err := a.Reallocate(nil, 64)
	if err != nil {
		t.Fatalf("Reallocate(nil, 64): %v", err)
	}
	if p == nil {
		t.Fatal("expected a non-nil pointer")
	}
}

func TestReallocZeroActsLikeFree(t *testing.T) {
	a := newTestArena(t, 4096)

	p, err := a.Allocate(64)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}

	result, err := a.Reallocate(p, 0)
	if err != nil {
		t.Fatalf("Reallocate(p, 0): %v", err)
	}
	if result != nil {
		t.Fatalf("expected a nil pointer back, got %v", result)
	}

	stats := a.Stats()
	if stats.BytesInUse != 0 {
		t.Fatalf("expected block to be released, BytesInUse = %d", stats.BytesInUse)
	}
}

func TestForeignPointerRejected(t *testing.T) {
	a := newTestArena(t, 4096)

	var foreign [8]byte

	if err := a.Free(unsafe.Pointer(&foreign[0])); err != ErrForeignPointer {
		t.Fatalf("got %v, want ErrForeignPointer", err)
	}
}

func TestDebugChecksCatchDoubleFree(t *testing.T) {
	a := newTestArena(t, 4096, WithDebugChecks(true))

	p, err := a.Allocate(64)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}

	if err := a.Free(p); err != nil {
		t.Fatalf("first free: %v", err)
	}

	// The block is now free; freeing it again corrupts the free list by
	// re-inserting an already-linked node. DebugChecks must surface this
	// as an error rather than let it silently corrupt the arena.
	if err := a.Free(p); err == nil {
		t.Fatal("expected double free to be caught with DebugChecks enabled")
	}
}

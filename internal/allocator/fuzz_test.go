package allocator

import (
	"math/rand"
	"testing"
	"unsafe"
)

// liveBlock tracks one outstanding allocation made by the randomized model
// below so its content can be checked for corruption after every mutation.
type liveBlock struct {
	ptr  unsafe.Pointer
	size int
	seed byte
}

// TestRandomizedOperationsPreserveInvariants drives an Arena through a long
// sequence of random allocate/free/reallocate calls, validating structural
// invariants and live payload content after every step.
func TestRandomizedOperationsPreserveInvariants(t *testing.T) {
	const bufSize = 64 * 1024

	rng := rand.New(rand.NewSource(1))
	a := newTestArena(t, bufSize)

	var live []liveBlock

	for i := 0; i < 5000; i++ {
		op := rng.Intn(3)

		switch {
		case op == 0 || len(live) == 0:
			size := 1 + rng.Intn(512)

			p, err := a.Allocate(uintptr(size))
			if err != nil {
				continue
			}

			seed := byte(rng.Intn(256))
			writePattern(p, size, seed)
			live = append(live, liveBlock{ptr: p, size: size, seed: seed})

		case op == 1:
			idx := rng.Intn(len(live))
			blk := live[idx]

			checkPattern(t, blk.ptr, blk.size, blk.seed)

			if err := a.Free(blk.ptr); err != nil {
				t.Fatalf("iteration %d: Free failed: %v", i, err)
			}

			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]

		default:
			idx := rng.Intn(len(live))
			blk := live[idx]
			newSize := 1 + rng.Intn(512)

			checkPattern(t, blk.ptr, blk.size, blk.seed)

			newPtr, err := a.Reallocate(blk.ptr, uintptr(newSize))
			if err != nil {
				continue
			}

			keep := blk.size
			if newSize < keep {
				keep = newSize
			}
			checkPattern(t, newPtr, keep, blk.seed)

			// Bytes past the old size are not initialized by a grow, so
			// the pattern is rewritten over the whole new size before the
			// block's content is checked again.
			writePattern(newPtr, newSize, blk.seed)

			live[idx] = liveBlock{ptr: newPtr, size: newSize, seed: blk.seed}
		}

		if err := a.Validate(); err != nil {
			t.Fatalf("iteration %d: Validate failed: %v", i, err)
		}
	}

	for _, blk := range live {
		checkPattern(t, blk.ptr, blk.size, blk.seed)

		if err := a.Free(blk.ptr); err != nil {
			t.Fatalf("final drain: Free failed: %v", err)
		}
	}

	if err := a.Validate(); err != nil {
		t.Fatalf("Validate after draining every block: %v", err)
	}

	stats := a.Stats()
	if stats.FreeBlockCount != 1 {
		t.Fatalf("expected the whole arena to coalesce back to one free block, got %d", stats.FreeBlockCount)
	}
	if stats.BytesInUse != 0 {
		t.Fatalf("BytesInUse = %d after draining every block, want 0", stats.BytesInUse)
	}
}

package allocator

import (
	"errors"
	"fmt"

	stderrors "github.com/orizon-lang/blockalloc/internal/errors"
)

// Sentinel errors returned by the public operations. These are ordinary
// recoverable-failure returns, not exceptional control flow: callers are
// expected to check and handle them like any other error value.
var (
	// ErrBufferTooSmall is returned by New when the supplied buffer cannot
	// host even a single block's metadata plus one payload byte.
	ErrBufferTooSmall = errors.New("allocator: buffer too small for a single block")

	// ErrZeroSize is returned by Allocate when the requested size is 0.
	ErrZeroSize = errors.New("allocator: requested size is zero")

	// ErrTooLarge is returned by Allocate when the requested size cannot
	// possibly fit in the arena, independent of current fragmentation.
	ErrTooLarge = errors.New("allocator: requested size exceeds arena capacity")

	// ErrNoFit is returned by Allocate when no free block large enough
	// exists, though one could in principle fit in the arena.
	ErrNoFit = errors.New("allocator: no free block large enough")

	// ErrOutOfMemory is returned by Reallocate when neighbor growth isn't
	// possible and a relocating allocate also fails.
	ErrOutOfMemory = errors.New("allocator: out of memory for reallocation")

	// ErrForeignPointer is returned by Free/Reallocate when the supplied
	// pointer lies outside the arena's buffer, or so close to its start
	// that no header could precede it. A pointer inside the buffer is not
	// checked against actual block boundaries.
	ErrForeignPointer = errors.New("allocator: pointer does not address a valid block")
)

// ValidationError reports a structural invariant violation found while
// walking the arena or free list — a bug in the allocator itself rather
// than a caller misuse.
type ValidationError struct {
	Invariant string // short slug naming which check failed, e.g. "freelist-cycle"
	Detail    *stderrors.StandardError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("allocator: invariant %s violated: %s", e.Invariant, e.Detail.Error())
}

func (e *ValidationError) Unwrap() error {
	return e.Detail
}

func newValidationError(invariant, what string, offset uintptr) *ValidationError {
	return &ValidationError{
		Invariant: invariant,
		Detail:    stderrors.Corruption(what, offset),
	}
}

package allocator

import (
	"sync"
	"unsafe"
)

// SyncArena wraps an Arena with a mutex so it can be shared across
// goroutines, the same way a SystemAllocatorImpl layers a sync.RWMutex
// over an otherwise single-threaded allocator core. A plain Mutex is used
// rather than an RWMutex: every public Arena operation, including Stats
// and Validate, walks or mutates shared state, so there is no read-only
// path worth giving a separate lock class.
type SyncArena struct {
	mu    sync.Mutex
	arena *Arena
}

// NewSync builds a SyncArena over buf the same way New builds an Arena.
func NewSync(buf []byte, opts ...Option) (*SyncArena, error) {
	a, err := New(buf, opts...)
	if err != nil {
		return nil, err
	}

	return &SyncArena{arena: a}, nil
}

// Allocate is the mutex-guarded equivalent of Arena.Allocate.
func (s *SyncArena) Allocate(size uintptr) (unsafe.Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.arena.Allocate(size)
}

// Free is the mutex-guarded equivalent of Arena.Free.
func (s *SyncArena) Free(p unsafe.Pointer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.arena.Free(p)
}

// Reallocate is the mutex-guarded equivalent of Arena.Reallocate.
func (s *SyncArena) Reallocate(p unsafe.Pointer, size uintptr) (unsafe.Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.arena.Reallocate(p, size)
}

// Stats is the mutex-guarded equivalent of Arena.Stats.
func (s *SyncArena) Stats() AllocatorStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.arena.Stats()
}

// Validate is the mutex-guarded equivalent of Arena.Validate.
func (s *SyncArena) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.arena.Validate()
}

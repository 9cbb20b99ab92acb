package arena

import "sync"

// SafeArena is a mutex-protected wrapper around Arena for concurrent access.
// All operations are thread-safe but come with the overhead of mutex locking.
type SafeArena struct {
	mu sync.Mutex
	a  *Arena
}

// NewSafeArena creates a new thread-safe arena with the specified chunk size.
// If chunkSize <= 0, DefaultChunkSize is used.
func NewSafeArena(chunkSize int) *SafeArena {
	return &SafeArena{a: NewArena(chunkSize)}
}

// AllocBytes thread-safely allocates n bytes and returns a slice pointing to them.
// Returns nil if n <= 0.
func (s *SafeArena) AllocBytes(n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.AllocBytes(n)
}

// AllocAligned thread-safely allocates n bytes aligned to align.
func (s *SafeArena) AllocAligned(n int, align uintptr) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.AllocAligned(n, align)
}

// AllocZeroed thread-safely allocates n cleared bytes aligned to align.
func (s *SafeArena) AllocZeroed(n int, align uintptr) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.AllocZeroed(n, align)
}

// Resize thread-safely resizes b in place; see Arena.Resize.
// With several goroutines allocating, the most recent region is rarely the
// caller's, so expect Resize to fail more often than on a plain Arena.
func (s *SafeArena) Resize(b []byte, n int) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Resize(b, n)
}

// Free thread-safely gives b back if it is the most recent region.
func (s *SafeArena) Free(b []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Free(b)
}

// EnsureCapacity thread-safely ensures the current chunk has at least n free bytes.
func (s *SafeArena) EnsureCapacity(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.EnsureCapacity(n)
}

// Reset thread-safely resets allocation offsets to zero for arena reuse.
func (s *SafeArena) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Reset()
}

// Release thread-safely drops all chunks and makes the arena unusable.
func (s *SafeArena) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Release()
}

// Metrics thread-safely returns a snapshot of arena statistics.
func (s *SafeArena) Metrics() ArenaMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Metrics()
}

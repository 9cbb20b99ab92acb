package arena

import "unsafe"

// DefaultChunkSize is the default chunk size for new arenas (64 KiB).
const DefaultChunkSize = 1 << 16

// chunk represents a single memory chunk within an arena.
type chunk struct {
	buf    []byte  // backing memory
	offset uintptr // allocation offset within buf
	last   uintptr // start offset of the most recent region
}

// Arena is a chunked bump allocator. Not goroutine-safe by default.
// Use SafeArena for concurrent access.
//
// Only pointer-free data may live in an arena: the chunks are plain byte
// slices and are not scanned by the garbage collector.
type Arena struct {
	chunks    []chunk
	chunkSize int
	cur       int // index of the chunk regions are carved from
	counts    counters
}

// NewArena creates a new Arena with the specified chunk size.
// If chunkSize <= 0, DefaultChunkSize is used.
func NewArena(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	a := &Arena{chunkSize: chunkSize}
	a.grow(chunkSize)
	return a
}

// AllocBytes returns n pointer-aligned bytes carved from the current chunk.
// Returns nil if n <= 0.
func (a *Arena) AllocBytes(n int) []byte {
	return a.AllocAligned(n, ptrAlign)
}

// AllocAligned returns n bytes whose address is a multiple of align.
// align must be a power of two. Returns nil if n <= 0.
func (a *Arena) AllocAligned(n int, align uintptr) []byte {
	if n <= 0 {
		return nil
	}
	a.panicIfReleased()
	if align == 0 || align&(align-1) != 0 {
		panic("arena: alignment must be a power of two")
	}

	a.counts.regions++

	// Fast path: carve from the current chunk
	c := &a.chunks[a.cur]
	if off, ok := c.fit(n, align); ok {
		return c.take(off, n)
	}

	// Slow path: need new chunk, with room for worst case padding
	a.grow(n + int(align) - 1)
	c = &a.chunks[a.cur]
	off, _ := c.fit(n, align)
	return c.take(off, n)
}

// fit returns the aligned offset at which n bytes would start.
func (c *chunk) fit(n int, align uintptr) (uintptr, bool) {
	if len(c.buf) == 0 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(c.buf)))
	off := alignUp(base+c.offset, align) - base
	return off, off+uintptr(n) <= uintptr(len(c.buf))
}

func (c *chunk) take(off uintptr, n int) []byte {
	c.last = off
	c.offset = off + uintptr(n)
	return unsafe.Slice((*byte)(unsafe.Pointer(&c.buf[off])), n)
}

// isLast reports whether b is the most recent region of c.
func (c *chunk) isLast(b []byte) bool {
	if len(c.buf) == 0 || len(b) == 0 {
		return false
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(c.buf)))
	start := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	return start == base+c.last && c.last+uintptr(len(b)) == c.offset
}

// EnsureCapacity ensures the current chunk has at least n free bytes.
// If not, it grows the arena with a new chunk.
func (a *Arena) EnsureCapacity(n int) {
	a.panicIfReleased()
	c := &a.chunks[a.cur]
	if alignPtr(c.offset)+uintptr(n) > uintptr(len(c.buf)) {
		a.grow(n)
	}
}

// Reset resets allocation offsets to zero but keeps allocated chunks for reuse.
// Every region handed out before is invalidated.
func (a *Arena) Reset() {
	a.panicIfReleased()
	for i := range a.chunks {
		a.chunks[i].offset = 0
		a.chunks[i].last = 0
	}
	a.cur = 0
	a.counts.resets++
}

// Release drops all chunks and makes the arena unusable.
// Any subsequent operations will panic.
func (a *Arena) Release() {
	a.chunks = nil
	a.cur = 0
}

// grow makes a chunk of at least min bytes current, reusing an empty
// chunk left behind by Reset when one is large enough.
func (a *Arena) grow(min int) {
	for i := a.cur + 1; i < len(a.chunks); i++ {
		if a.chunks[i].offset == 0 && len(a.chunks[i].buf) >= min {
			a.cur = i
			return
		}
	}
	size := a.chunkSize
	if min > size {
		size = min
	}
	// backed by uint64 words so chunk bases are 8-byte aligned
	words := make([]uint64, (size+7)/8)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), size)
	a.chunks = append(a.chunks, chunk{buf: buf})
	a.cur = len(a.chunks) - 1
}

// panicIfReleased panics if the arena has been released.
func (a *Arena) panicIfReleased() {
	if a.chunks == nil {
		panic("arena: use after Release()")
	}
}

const ptrAlign = unsafe.Sizeof(uintptr(0))

// alignPtr aligns the offset up to pointer size alignment.
func alignPtr(off uintptr) uintptr {
	return alignUp(off, ptrAlign)
}

func alignUp(off, align uintptr) uintptr {
	mask := align - 1
	return (off + mask) & ^mask
}

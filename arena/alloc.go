package arena

import "unsafe"

// AllocZeroed is AllocAligned with the returned bytes cleared.
// Regions reused after Reset may hold stale data; fresh chunks are zero.
func (a *Arena) AllocZeroed(n int, align uintptr) []byte {
	b := a.AllocAligned(n, align)
	clear(b)
	return b
}

// Resize changes the length of region b to n bytes without moving it.
// Only the most recent region of the current chunk can be resized, and only
// while the chunk has room; otherwise Resize returns nil, false and b is
// left untouched.
func (a *Arena) Resize(b []byte, n int) ([]byte, bool) {
	a.panicIfReleased()
	if n <= 0 {
		return nil, false
	}
	c := &a.chunks[a.cur]
	if !c.isLast(b) {
		return nil, false
	}
	if c.last+uintptr(n) > uintptr(len(c.buf)) {
		return nil, false
	}
	c.offset = c.last + uintptr(n)
	a.counts.resized++
	return unsafe.Slice(unsafe.SliceData(b), n), true
}

// Free gives region b back to the arena if it is the most recent region of
// the current chunk. Other regions are reclaimed by Reset or Release only.
func (a *Arena) Free(b []byte) bool {
	if a.chunks == nil {
		return false
	}
	c := &a.chunks[a.cur]
	if !c.isLast(b) {
		return false
	}
	c.offset = c.last
	a.counts.freed++
	return true
}

// Owns reports whether b lies inside one of the arena's chunks.
func (a *Arena) Owns(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	p := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	for i := range a.chunks {
		buf := a.chunks[i].buf
		base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
		if p >= base && p+uintptr(len(b)) <= base+uintptr(len(buf)) {
			return true
		}
	}
	return false
}

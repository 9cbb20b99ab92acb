package storage

import (
	"unsafe"

	"github.com/pavanmanishd/dynarr/arena"
)

// Backend is the region allocator an Arena storage draws from; both
// *arena.Arena and *arena.SafeArena implement it.
type Backend interface {
	AllocAligned(n int, align uintptr) []byte
	AllocZeroed(n int, align uintptr) []byte
	Resize(b []byte, n int) ([]byte, bool)
	Free(b []byte) bool
}

var (
	_ Backend = (*arena.Arena)(nil)
	_ Backend = (*arena.SafeArena)(nil)
)

// Arena serves pointer-free layouts from a bump allocator. The array that
// allocated last can grow and shrink without copying; freed regions other
// than the most recent one are only reclaimed when the arena is reset.
//
// Arrays backed by an Arena storage must not outlive a Reset or Release of
// the underlying arena.
type Arena struct {
	backend Backend
}

var _ Storage = (*Arena)(nil)

// NewArena creates a storage over backend.
func NewArena(backend Backend) *Arena {
	return &Arena{backend: backend}
}

func (a *Arena) Allocate(l Layout) (Handle, error) {
	return a.allocate(l, false)
}

func (a *Arena) AllocateZeroed(l Layout) (Handle, error) {
	return a.allocate(l, true)
}

func (a *Arena) allocate(l Layout, zeroed bool) (Handle, error) {
	if l.Size == 0 {
		return Handle{}, nil
	}
	if l.HasPointers() {
		return Handle{}, allocError(l, ErrUnsupportedLayout)
	}
	align := max(l.Align, 1)
	var b []byte
	if zeroed {
		b = a.backend.AllocZeroed(int(l.Size), align)
	} else {
		b = a.backend.AllocAligned(int(l.Size), align)
	}
	return Handle{Ptr: unsafe.Pointer(unsafe.SliceData(b)), Size: uintptr(len(b))}, nil
}

func (a *Arena) Grow(h Handle, l Layout, preserve uintptr) (Handle, error) {
	if h.IsDangling() {
		return a.Allocate(l)
	}
	if l.Size <= h.Size {
		return h, nil
	}
	if b, ok := a.backend.Resize(h.Bytes(), int(l.Size)); ok {
		return Handle{Ptr: unsafe.Pointer(unsafe.SliceData(b)), Size: uintptr(len(b))}, nil
	}
	grown, err := a.Allocate(l)
	if err != nil {
		return h, err
	}
	n := min(preserve, h.Size)
	copy(grown.Bytes()[:n], h.Bytes()[:n])
	a.backend.Free(h.Bytes())
	return grown, nil
}

func (a *Arena) Shrink(h Handle, l Layout) (Handle, error) {
	if l.Size > h.Size {
		return h, allocError(l, ErrInvalidHandle)
	}
	if l.Size == 0 {
		a.Deallocate(h, l)
		return Handle{}, nil
	}
	a.backend.Resize(h.Bytes(), int(l.Size))
	return Handle{Ptr: h.Ptr, Size: l.Size}, nil
}

func (a *Arena) Deallocate(h Handle, _ Layout) {
	if h.IsDangling() {
		return
	}
	a.backend.Free(h.Bytes())
}

// Package storage defines the allocation capability growable arrays are
// built on, and the storages shipped with the module.
//
// A Storage hands out Handles, each owning one region of memory. Handles are
// plain values but carry move-only ownership: once a handle has been passed
// to Grow, Shrink or Deallocate, the old value must not be used again.
package storage

import (
	"unsafe"

	"go.uber.org/zap"
)

// Handle owns zero or one region. The zero Handle is the dangling handle:
// it owns nothing and must never be deallocated.
type Handle struct {
	Ptr  unsafe.Pointer
	Size uintptr // bytes granted, may exceed the request
}

// IsDangling reports whether h owns no memory.
func (h Handle) IsDangling() bool {
	return h.Ptr == nil
}

// Bytes returns the region as a byte slice.
func (h Handle) Bytes() []byte {
	if h.Ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(h.Ptr), h.Size)
}

// Storage allocates, resizes and frees regions.
//
// Every method that creates or resizes a region reports the handle actually
// granted, whose Size may be larger than requested. Zero-sized requests
// return the dangling handle.
type Storage interface {
	// Allocate returns a region of at least l.Size bytes aligned to l.Align.
	Allocate(l Layout) (Handle, error)
	// AllocateZeroed is Allocate with the region cleared.
	AllocateZeroed(l Layout) (Handle, error)
	// Grow resizes h to at least l.Size bytes, keeping its first preserve
	// bytes. The region may move; on error h is still valid.
	Grow(h Handle, l Layout, preserve uintptr) (Handle, error)
	// Shrink resizes h to l.Size bytes, keeping the first l.Size bytes.
	// Shrinking to zero frees the region and returns the dangling handle.
	Shrink(h Handle, l Layout) (Handle, error)
	// Deallocate frees h. l is the layout h was last sized with.
	Deallocate(h Handle, l Layout)
}

var logger = zap.NewNop()

// SetLogger sets the logger used by the storages of this package.
func SetLogger(l *zap.Logger) {
	logger = l
}

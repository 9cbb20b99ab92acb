package storage

import (
	"fmt"
	"math"
	"reflect"

	"github.com/pkg/errors"

	"github.com/pavanmanishd/dynarr/internal/typeinfo"
)

var (
	// ErrCapacityOverflow reports a size computation that would exceed
	// math.MaxInt bytes. It is a logic error, never an exhausted allocator.
	ErrCapacityOverflow = errors.New("capacity overflow")
	// ErrOutOfMemory is the cause of an AllocError when a storage has no room.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrUnsupportedLayout is the cause of an AllocError when a storage cannot
	// hold memory of the requested shape.
	ErrUnsupportedLayout = errors.New("unsupported layout")
	// ErrInvalidHandle is raised when a handle is not owned by the storage
	// it is given back to, for example on a double free.
	ErrInvalidHandle = errors.New("invalid handle")
)

// AllocError is returned when a storage refuses a request.
type AllocError struct {
	Layout Layout
	Err    error
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("allocation of %d bytes (align %d) failed: %v", e.Layout.Size, e.Layout.Align, e.Err)
}

func (e *AllocError) Unwrap() error { return e.Err }

func allocError(l Layout, err error) error {
	return &AllocError{Layout: l, Err: err}
}

// Layout describes a memory request: byte size, alignment and, for memory
// that will hold Go values, the element type that gives the GC its shape.
type Layout struct {
	Size  uintptr
	Align uintptr
	Elem  reflect.Type
}

// ArrayLayout returns the layout of n consecutive values of elem.
func ArrayLayout(elem reflect.Type, n int) (Layout, error) {
	if n < 0 {
		return Layout{}, ErrCapacityOverflow
	}
	size := elem.Size()
	if size != 0 && uintptr(n) > uintptr(math.MaxInt)/size {
		return Layout{}, ErrCapacityOverflow
	}
	return Layout{Size: size * uintptr(n), Align: uintptr(elem.Align()), Elem: elem}, nil
}

// ArrayOf is ArrayLayout for a static element type.
func ArrayOf[T any](n int) (Layout, error) {
	return ArrayLayout(reflect.TypeFor[T](), n)
}

// HasPointers reports whether the memory must be visible to the GC.
func (l Layout) HasPointers() bool {
	return l.Elem != nil && typeinfo.OfType(l.Elem).HasPointers()
}

// WithSize returns l resized to size bytes.
func (l Layout) WithSize(size uintptr) Layout {
	l.Size = size
	return l
}

func (l Layout) String() string {
	if l.Elem == nil {
		return fmt.Sprintf("%d bytes/%d", l.Size, l.Align)
	}
	return fmt.Sprintf("%d bytes/%d of %s", l.Size, l.Align, l.Elem)
}

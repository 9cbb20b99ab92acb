package storage

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// HeapConfig configures a Heap storage.
type HeapConfig struct {
	// MaxBytes caps the bytes live at once. Zero means unlimited.
	MaxBytes uint64 `toml:"max_bytes"`
	// ShrinkRatio is how many times smaller a region must become before
	// Shrink moves it to a new, smaller allocation. Smaller shrinks only
	// update the bookkeeping. Zero means 2.
	ShrinkRatio int `toml:"shrink_ratio"`
}

// Heap allocates from the Go heap. Memory for layouts with pointers is
// allocated with its element type so the GC scans it; pointer-free memory
// is word-aligned raw bytes. Heap is safe for concurrent use.
type Heap struct {
	cfg   HeapConfig
	inUse atomic.Int64
}

var _ Storage = (*Heap)(nil)

var defaultHeap = NewHeap(HeapConfig{})

// Default returns the process-wide unlimited heap storage.
func Default() *Heap {
	return defaultHeap
}

// NewHeap creates a heap storage.
func NewHeap(cfg HeapConfig) *Heap {
	if cfg.ShrinkRatio <= 0 {
		cfg.ShrinkRatio = 2
	}
	return &Heap{cfg: cfg}
}

// InUse returns the bytes currently accounted to live handles.
func (h *Heap) InUse() int64 {
	return h.inUse.Load()
}

func (h *Heap) Allocate(l Layout) (Handle, error) {
	if l.Size == 0 {
		return Handle{}, nil
	}
	if h.cfg.MaxBytes > 0 && uint64(h.inUse.Load())+uint64(l.Size) > h.cfg.MaxBytes {
		logger.Warn("heap storage limit reached",
			zap.Uintptr("size", l.Size),
			zap.Int64("in use", h.inUse.Load()),
			zap.Uint64("max bytes", h.cfg.MaxBytes),
		)
		return Handle{}, allocError(l, ErrOutOfMemory)
	}
	handle, err := h.alloc(l)
	if err != nil {
		logger.Warn("heap allocation failed", zap.Stringer("layout", l), zap.Error(err))
		return Handle{}, allocError(l, err)
	}
	h.inUse.Add(int64(handle.Size))
	return handle, nil
}

// AllocateZeroed is Allocate: fresh heap memory is always cleared.
func (h *Heap) AllocateZeroed(l Layout) (Handle, error) {
	return h.Allocate(l)
}

func (h *Heap) Grow(old Handle, l Layout, preserve uintptr) (Handle, error) {
	if old.IsDangling() {
		return h.Allocate(l)
	}
	if l.Size <= old.Size {
		return old, nil
	}
	handle, err := h.Allocate(l)
	if err != nil {
		return old, err
	}
	copyRegion(handle, old, l, min(preserve, old.Size))
	h.Deallocate(old, l.WithSize(old.Size))
	return handle, nil
}

func (h *Heap) Shrink(old Handle, l Layout) (Handle, error) {
	if l.Size > old.Size {
		return old, errors.Wrapf(ErrInvalidHandle, "shrink of %d byte region to %d bytes", old.Size, l.Size)
	}
	if l.Size == 0 {
		h.Deallocate(old, l)
		return Handle{}, nil
	}
	if l.Size*uintptr(h.cfg.ShrinkRatio) > old.Size {
		h.inUse.Add(-int64(old.Size - l.Size))
		return Handle{Ptr: old.Ptr, Size: l.Size}, nil
	}
	handle, err := h.Allocate(l)
	if err != nil {
		return old, err
	}
	copyRegion(handle, old, l, l.Size)
	h.Deallocate(old, l.WithSize(old.Size))
	return handle, nil
}

// Deallocate releases handle. l must be the layout the handle was last
// sized with; a layout larger than the region panics with ErrInvalidHandle.
func (h *Heap) Deallocate(handle Handle, l Layout) {
	if handle.IsDangling() {
		return
	}
	if l.Size > handle.Size {
		panic(errors.Wrapf(ErrInvalidHandle, "deallocate of %d byte region with a %d byte layout", handle.Size, l.Size))
	}
	h.inUse.Add(-int64(handle.Size))
}

func (h *Heap) alloc(l Layout) (handle Handle, err error) {
	defer func() {
		// make and reflect.ArrayOf panic on sizes the runtime cannot represent
		if r := recover(); r != nil {
			err = errors.Wrap(ErrOutOfMemory, fmt.Sprint(r))
		}
	}()
	if l.HasPointers() {
		size := l.Elem.Size()
		n := (l.Size + size - 1) / size
		arr := reflect.New(reflect.ArrayOf(int(n), l.Elem))
		return Handle{Ptr: arr.UnsafePointer(), Size: n * size}, nil
	}
	if l.Align > 8 {
		return Handle{}, errors.Wrapf(ErrUnsupportedLayout, "alignment %d", l.Align)
	}
	words := make([]uint64, (l.Size+7)/8)
	return Handle{Ptr: unsafe.Pointer(unsafe.SliceData(words)), Size: uintptr(len(words)) * 8}, nil
}

// copyRegion copies the first n bytes of src into dst. Memory holding
// pointers is copied as typed values so the GC write barriers see it.
func copyRegion(dst, src Handle, l Layout, n uintptr) {
	if n == 0 {
		return
	}
	if l.HasPointers() {
		count := int(n / l.Elem.Size())
		arr := reflect.ArrayOf(count, l.Elem)
		to := reflect.NewAt(arr, dst.Ptr).Elem().Slice(0, count)
		from := reflect.NewAt(arr, src.Ptr).Elem().Slice(0, count)
		reflect.Copy(to, from)
		return
	}
	copy(unsafe.Slice((*byte)(dst.Ptr), n), unsafe.Slice((*byte)(src.Ptr), n))
}

package dynarr

import (
	"math"
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pavanmanishd/dynarr/storage"
)

// danglingBase is the address handed out for empty and zero-sized arrays.
// It is never dereferenced for more than zero bytes.
var danglingBase uint64

func danglingPtr() unsafe.Pointer {
	return unsafe.Pointer(&danglingBase)
}

// RawArray owns at most one allocation sized for a number of T values. It
// never tracks which slots are initialized; DynArr does that on top of it.
//
// The zero RawArray is not usable; create one with NewRawArrayIn.
type RawArray[T any] struct {
	handle   storage.Handle
	storage  storage.Storage
	strategy ReserveStrategy
}

// NewRawArrayIn returns an empty array that allocates from s and grows with
// r. It never allocates. Nil arguments select the defaults.
func NewRawArrayIn[T any](s storage.Storage, r ReserveStrategy) RawArray[T] {
	if s == nil {
		s = storage.Default()
	}
	if r == nil {
		r = DefaultStrategy
	}
	return RawArray[T]{storage: s, strategy: r}
}

// RawArrayWithCapacityIn returns an array with room for exactly n values.
// It panics when the byte size overflows and aborts when s cannot serve the
// request.
func RawArrayWithCapacityIn[T any](n int, s storage.Storage, r ReserveStrategy) RawArray[T] {
	a, err := TryRawArrayWithCapacityIn[T](n, s, r)
	handleReserveError(err)
	return a
}

// RawArrayWithCapacityZeroedIn is RawArrayWithCapacityIn with the memory
// cleared.
func RawArrayWithCapacityZeroedIn[T any](n int, s storage.Storage, r ReserveStrategy) RawArray[T] {
	a, err := tryRawArrayWithCapacity[T](n, s, r, true)
	handleReserveError(err)
	return a
}

// TryRawArrayWithCapacityIn is RawArrayWithCapacityIn reporting failures as
// errors.
func TryRawArrayWithCapacityIn[T any](n int, s storage.Storage, r ReserveStrategy) (RawArray[T], error) {
	return tryRawArrayWithCapacity[T](n, s, r, false)
}

func tryRawArrayWithCapacity[T any](n int, s storage.Storage, r ReserveStrategy, zeroed bool) (RawArray[T], error) {
	a := NewRawArrayIn[T](s, r)
	if n == 0 || elemSize[T]() == 0 {
		return a, nil
	}
	l, err := a.layout(n)
	if err != nil {
		return a, err
	}
	if zeroed {
		a.handle, err = a.storage.AllocateZeroed(l)
	} else {
		a.handle, err = a.storage.Allocate(l)
	}
	if err != nil {
		return NewRawArrayIn[T](s, r), err
	}
	return a, nil
}

// RawArrayFromRawParts rebuilds an array from the pieces returned by
// IntoRawParts. h must have been allocated by s for values of T.
func RawArrayFromRawParts[T any](h storage.Handle, s storage.Storage, r ReserveStrategy) RawArray[T] {
	a := NewRawArrayIn[T](s, r)
	a.handle = h
	return a
}

// IntoRawParts gives up ownership of the allocation. The array is left
// empty.
func (a *RawArray[T]) IntoRawParts() (storage.Handle, storage.Storage, ReserveStrategy) {
	h := a.handle
	a.handle = storage.Handle{}
	return h, a.storage, a.strategy
}

func elemSize[T any]() uintptr {
	var zero T
	return unsafe.Sizeof(zero)
}

// minNonZeroCap is the smallest capacity a growing array jumps to. Tiny
// capacities mostly cost allocator round trips.
func minNonZeroCap(size uintptr) int {
	switch {
	case size == 1:
		return 8
	case size <= 1024:
		return 4
	default:
		return 1
	}
}

// Cap returns the number of values the allocation can hold. Zero-sized
// types have unlimited capacity.
func (a *RawArray[T]) Cap() int {
	size := elemSize[T]()
	if size == 0 {
		return math.MaxInt
	}
	return int(a.handle.Size / size)
}

// Ptr returns the base address. It is never nil.
func (a *RawArray[T]) Ptr() unsafe.Pointer {
	if a.handle.IsDangling() {
		return danglingPtr()
	}
	return a.handle.Ptr
}

// Handle returns the allocation handle without giving up ownership.
func (a *RawArray[T]) Handle() storage.Handle { return a.handle }

// Storage returns the storage the array allocates from.
func (a *RawArray[T]) Storage() storage.Storage { return a.storage }

// Strategy returns the growth strategy.
func (a *RawArray[T]) Strategy() ReserveStrategy { return a.strategy }

// AsSlice returns the whole capacity as a slice. Slots that were never
// written hold zero values or stale data.
func (a *RawArray[T]) AsSlice() []T {
	return unsafe.Slice((*T)(a.Ptr()), a.Cap())
}

// AsMutSlice is AsSlice; the returned slice may be written through.
func (a *RawArray[T]) AsMutSlice() []T {
	return a.AsSlice()
}

func (a *RawArray[T]) layout(n int) (storage.Layout, error) {
	return storage.ArrayLayout(reflect.TypeFor[T](), n)
}

func (a *RawArray[T]) currentLayout() storage.Layout {
	l, _ := a.layout(0)
	return l.WithSize(a.handle.Size)
}

func (a *RawArray[T]) needsToGrow(length, additional int) bool {
	return additional > a.Cap()-length
}

// Reserve makes room for at least additional values past length, growing
// by the strategy. It panics on capacity overflow and aborts when the
// storage refuses.
func (a *RawArray[T]) Reserve(length, additional int) {
	if a.needsToGrow(length, additional) {
		handleReserveError(a.growAmortized(length, additional))
	}
}

// GrowOne is Reserve(Cap(), 1), the slow path of a push.
func (a *RawArray[T]) GrowOne() {
	handleReserveError(a.growAmortized(a.Cap(), 1))
}

// TryReserve is Reserve reporting failures as errors.
func (a *RawArray[T]) TryReserve(length, additional int) error {
	if a.needsToGrow(length, additional) {
		return a.growAmortized(length, additional)
	}
	return nil
}

// ReserveExact makes room for exactly additional values past length.
func (a *RawArray[T]) ReserveExact(length, additional int) {
	handleReserveError(a.TryReserveExact(length, additional))
}

// TryReserveExact is ReserveExact reporting failures as errors.
func (a *RawArray[T]) TryReserveExact(length, additional int) error {
	if !a.needsToGrow(length, additional) {
		return nil
	}
	if elemSize[T]() == 0 || additional > math.MaxInt-length {
		return storage.ErrCapacityOverflow
	}
	return a.finishGrow(length+additional, length)
}

func (a *RawArray[T]) growAmortized(length, additional int) error {
	size := elemSize[T]()
	// a zero-sized array is never full, so growing it means len overflowed
	if size == 0 || additional > math.MaxInt-length {
		return storage.ErrCapacityOverflow
	}
	required := length + additional
	newCap, ok := a.strategy.Calculate(a.Cap(), required)
	if !ok {
		return storage.ErrCapacityOverflow
	}
	newCap = max(newCap, required, minNonZeroCap(size))
	return a.finishGrow(newCap, length)
}

func (a *RawArray[T]) finishGrow(newCap, length int) error {
	l, err := a.layout(newCap)
	if err != nil {
		return err
	}
	var h storage.Handle
	if a.handle.IsDangling() {
		h, err = a.storage.Allocate(l)
	} else {
		h, err = a.storage.Grow(a.handle, l, uintptr(length)*elemSize[T]())
	}
	if err != nil {
		return err
	}
	a.handle = h
	return nil
}

// ShrinkToFit shrinks the allocation to n values. Shrinking to zero frees
// it. It panics when n exceeds the capacity.
func (a *RawArray[T]) ShrinkToFit(n int) {
	handleReserveError(a.TryShrinkToFit(n))
}

// TryShrinkToFit is ShrinkToFit reporting storage failures as errors.
func (a *RawArray[T]) TryShrinkToFit(n int) error {
	if n > a.Cap() {
		panic("dynarr: tried to shrink to a larger capacity")
	}
	if elemSize[T]() == 0 || a.handle.IsDangling() {
		return nil
	}
	if n == 0 {
		a.storage.Deallocate(a.handle, a.currentLayout())
		a.handle = storage.Handle{}
		return nil
	}
	l, err := a.layout(n)
	if err != nil {
		return err
	}
	h, err := a.storage.Shrink(a.handle, l)
	if err != nil {
		return err
	}
	a.handle = h
	return nil
}

// free deallocates the allocation, if any, and leaves the array empty.
func (a *RawArray[T]) free() {
	if a.handle.IsDangling() || a.storage == nil {
		return
	}
	h, l := a.handle, a.currentLayout()
	a.handle = storage.Handle{}
	a.storage.Deallocate(h, l)
}

// handleReserveError turns an error from a fallible path into the behavior
// of the infallible API: a panic for overflow, an abort for the allocator.
func handleReserveError(err error) {
	if err == nil {
		return
	}
	var allocErr *storage.AllocError
	if errors.As(err, &allocErr) {
		abort("dynarr: memory allocation failed",
			zap.Stringer("layout", allocErr.Layout),
			zap.Error(allocErr.Err),
		)
		return
	}
	panic(err)
}

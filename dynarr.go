package dynarr

import (
	"fmt"
	"math"
	"math/bits"
	"reflect"
	"unsafe"

	"github.com/pavanmanishd/dynarr/storage"
)

// DynArr is a growable array whose memory comes from a storage.Storage.
// The first Len slots are initialized; the rest of the capacity is spare.
//
// Elements implementing Dropper are dropped when the array discards them.
// A DynArr is not safe for concurrent use.
type DynArr[T any] struct {
	buf RawArray[T]
	len int
}

// Option configures a new array.
type Option func(*options)

type options struct {
	storage  storage.Storage
	strategy ReserveStrategy
	zeroed   bool
}

// InStorage makes the array allocate from s instead of storage.Default().
func InStorage(s storage.Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithStrategy makes the array grow with r instead of DefaultStrategy.
func WithStrategy(r ReserveStrategy) Option {
	return func(o *options) { o.strategy = r }
}

// Zeroed requests cleared memory for the initial capacity.
func Zeroed() Option {
	return func(o *options) { o.zeroed = true }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns an empty array. It does not allocate.
func New[T any](opts ...Option) *DynArr[T] {
	o := buildOptions(opts)
	return &DynArr[T]{buf: NewRawArrayIn[T](o.storage, o.strategy)}
}

// WithCapacity returns an empty array with room for exactly n elements.
func WithCapacity[T any](n int, opts ...Option) *DynArr[T] {
	a, err := TryWithCapacity[T](n, opts...)
	handleReserveError(err)
	return a
}

// TryWithCapacity is WithCapacity reporting failures as errors.
func TryWithCapacity[T any](n int, opts ...Option) (*DynArr[T], error) {
	o := buildOptions(opts)
	buf, err := tryRawArrayWithCapacity[T](n, o.storage, o.strategy, o.zeroed)
	if err != nil {
		return nil, err
	}
	return &DynArr[T]{buf: buf}, nil
}

// From returns an array holding a copy of values.
func From[T any](values ...T) *DynArr[T] {
	a := WithCapacity[T](len(values))
	a.Extend(values...)
	return a
}

// Repeat returns an array holding n copies of v. When v is the zero value
// the array is built from zeroed memory and no element is written.
func Repeat[T any](v T, n int, opts ...Option) *DynArr[T] {
	if n < 0 {
		panic(storage.ErrCapacityOverflow)
	}
	if isZero(v) {
		a := WithCapacity[T](n, append(opts[:len(opts):len(opts)], Zeroed())...)
		a.len = n
		return a
	}
	a := WithCapacity[T](n, opts...)
	a.extendWith(n, v)
	return a
}

// isZero reports whether every bit of v is zero. Negative zero floats are
// not.
func isZero[T any](v T) bool {
	return reflect.ValueOf(&v).Elem().IsZero()
}

// FromRawParts builds an array over an existing allocation whose first n
// slots are initialized. h must have been allocated by s for values of T.
func FromRawParts[T any](h storage.Handle, s storage.Storage, r ReserveStrategy, n int) *DynArr[T] {
	a := &DynArr[T]{buf: RawArrayFromRawParts[T](h, s, r)}
	if n < 0 || n > a.buf.Cap() {
		panic(fmt.Sprintf("dynarr: length %d exceeds capacity %d", n, a.buf.Cap()))
	}
	a.len = n
	return a
}

// IntoRawParts gives up the allocation and its n initialized elements. The
// array is left empty and keeps its storage and strategy.
func (a *DynArr[T]) IntoRawParts() (h storage.Handle, s storage.Storage, r ReserveStrategy, n int) {
	n = a.len
	a.len = 0
	h, s, r = a.buf.IntoRawParts()
	return h, s, r, n
}

func (a *DynArr[T]) Len() int      { return a.len }
func (a *DynArr[T]) Cap() int      { return a.buf.Cap() }
func (a *DynArr[T]) IsEmpty() bool { return a.len == 0 }

// Ptr returns the base address of the elements. It is never nil.
func (a *DynArr[T]) Ptr() unsafe.Pointer { return a.buf.Ptr() }

// Storage returns the storage the array allocates from.
func (a *DynArr[T]) Storage() storage.Storage { return a.buf.Storage() }

// Strategy returns the growth strategy.
func (a *DynArr[T]) Strategy() ReserveStrategy { return a.buf.Strategy() }

// Slice returns the elements as a slice sharing the array's memory. It is
// valid until the next call that changes the capacity.
func (a *DynArr[T]) Slice() []T {
	return unsafe.Slice((*T)(a.buf.Ptr()), a.len)
}

func (a *DynArr[T]) spare() []T {
	return a.buf.AsSlice()
}

// Get returns the element at i, or false when i is out of range.
func (a *DynArr[T]) Get(i int) (T, bool) {
	if i < 0 || i >= a.len {
		var zero T
		return zero, false
	}
	return a.Slice()[i], true
}

// At returns the element at i. It panics when i is out of range.
func (a *DynArr[T]) At(i int) T {
	return a.Slice()[i]
}

// Set replaces the element at i, dropping the old one.
func (a *DynArr[T]) Set(i int, v T) {
	s := a.Slice()
	old := s[i]
	s[i] = v
	dropValue(old)
}

// Replace stores v at i and returns the old element without dropping it.
func (a *DynArr[T]) Replace(i int, v T) T {
	s := a.Slice()
	old := s[i]
	s[i] = v
	return old
}

// Push appends v.
func (a *DynArr[T]) Push(v T) {
	if a.len == a.buf.Cap() {
		a.buf.GrowOne()
	}
	a.spare()[a.len] = v
	a.len++
}

// PushWithinCapacity appends v only if no growth is needed. It reports
// whether v was stored; when it was not, v still belongs to the caller.
func (a *DynArr[T]) PushWithinCapacity(v T) bool {
	if a.len == a.buf.Cap() {
		return false
	}
	a.spare()[a.len] = v
	a.len++
	return true
}

// TryPush is Push reporting growth failures as errors. v is not stored on
// error.
func (a *DynArr[T]) TryPush(v T) error {
	if a.len == a.buf.Cap() {
		if err := a.buf.TryReserve(a.len, 1); err != nil {
			return err
		}
	}
	a.spare()[a.len] = v
	a.len++
	return nil
}

// Pop removes and returns the last element.
func (a *DynArr[T]) Pop() (T, bool) {
	var zero T
	if a.len == 0 {
		return zero, false
	}
	a.len--
	s := a.spare()
	v := s[a.len]
	s[a.len] = zero
	return v, true
}

// PopIf removes and returns the last element if pred accepts it. pred may
// modify the element in place.
func (a *DynArr[T]) PopIf(pred func(*T) bool) (T, bool) {
	if a.len == 0 || !pred(&a.Slice()[a.len-1]) {
		var zero T
		return zero, false
	}
	return a.Pop()
}

// Insert places v at i, shifting later elements right.
func (a *DynArr[T]) Insert(i int, v T) {
	if i < 0 || i > a.len {
		panic(fmt.Sprintf("dynarr: insertion index (is %d) should be <= len (is %d)", i, a.len))
	}
	if a.len == a.buf.Cap() {
		a.buf.GrowOne()
	}
	s := a.spare()
	copy(s[i+1:a.len+1], s[i:a.len])
	s[i] = v
	a.len++
}

// Remove removes and returns the element at i, shifting later elements
// left.
func (a *DynArr[T]) Remove(i int) T {
	if i < 0 || i >= a.len {
		panic(fmt.Sprintf("dynarr: removal index (is %d) should be < len (is %d)", i, a.len))
	}
	s := a.spare()
	v := s[i]
	copy(s[i:a.len-1], s[i+1:a.len])
	a.len--
	var zero T
	s[a.len] = zero
	return v
}

// SwapRemove removes and returns the element at i, replacing it with the
// last element.
func (a *DynArr[T]) SwapRemove(i int) T {
	if i < 0 || i >= a.len {
		panic(fmt.Sprintf("dynarr: swap_remove index (is %d) should be < len (is %d)", i, a.len))
	}
	s := a.spare()
	v := s[i]
	a.len--
	s[i] = s[a.len]
	var zero T
	s[a.len] = zero
	return v
}

// Truncate drops the elements past n. It does nothing when n >= Len.
func (a *DynArr[T]) Truncate(n int) {
	if n < 0 || n >= a.len {
		return
	}
	tail := a.spare()[n:a.len]
	a.len = n
	dropSlice(tail)
}

// Clear drops every element, keeping the capacity.
func (a *DynArr[T]) Clear() {
	a.Truncate(0)
}

// Reserve makes room for at least additional more elements.
func (a *DynArr[T]) Reserve(additional int) {
	a.buf.Reserve(a.len, additional)
}

// ReserveExact makes room for exactly additional more elements.
func (a *DynArr[T]) ReserveExact(additional int) {
	a.buf.ReserveExact(a.len, additional)
}

// TryReserve is Reserve reporting failures as errors.
func (a *DynArr[T]) TryReserve(additional int) error {
	return a.buf.TryReserve(a.len, additional)
}

// TryReserveExact is ReserveExact reporting failures as errors.
func (a *DynArr[T]) TryReserveExact(additional int) error {
	return a.buf.TryReserveExact(a.len, additional)
}

// ShrinkToFit shrinks the capacity to Len.
func (a *DynArr[T]) ShrinkToFit() {
	if a.buf.Cap() > a.len {
		a.buf.ShrinkToFit(a.len)
	}
}

// ShrinkTo shrinks the capacity to max(Len, n).
func (a *DynArr[T]) ShrinkTo(n int) {
	if a.buf.Cap() > n {
		a.buf.ShrinkToFit(max(a.len, n))
	}
}

// SetLen sets the length without touching the elements. The caller must
// have initialized the first n slots; the ones past n are forgotten, not
// dropped.
func (a *DynArr[T]) SetLen(n int) {
	if n < 0 || n > a.buf.Cap() {
		panic(fmt.Sprintf("dynarr: length %d exceeds capacity %d", n, a.buf.Cap()))
	}
	a.len = n
}

// Extend appends copies of values.
func (a *DynArr[T]) Extend(values ...T) {
	a.Reserve(len(values))
	copy(a.spare()[a.len:], values)
	a.len += len(values)
}

// ExtendFromWithin appends copies of the elements in [start, end).
func (a *DynArr[T]) ExtendFromWithin(start, end int) {
	switch {
	case start < 0 || start > a.len:
		panic(fmt.Sprintf("dynarr: range start index %d out of range for slice of length %d", start, a.len))
	case end > a.len:
		panic(fmt.Sprintf("dynarr: range end index %d out of range for slice of length %d", end, a.len))
	case start > end:
		panic(fmt.Sprintf("dynarr: slice index starts at %d but ends at %d", start, end))
	}
	a.Reserve(end - start)
	s := a.spare()
	copy(s[a.len:], s[start:end])
	a.len += end - start
}

// Resize changes the length to n. New slots hold copies of v; elements
// past n are dropped.
func (a *DynArr[T]) Resize(n int, v T) {
	if n > a.len {
		a.extendWith(n-a.len, v)
		return
	}
	a.Truncate(n)
}

// ResizeFunc is Resize filling new slots with the results of f, called
// once per slot in order.
func (a *DynArr[T]) ResizeFunc(n int, f func() T) {
	if n <= a.len {
		a.Truncate(n)
		return
	}
	a.Reserve(n - a.len)
	s := a.spare()
	for a.len < n {
		s[a.len] = f()
		a.len++
	}
}

func (a *DynArr[T]) extendWith(n int, v T) {
	a.Reserve(n)
	s := a.spare()[a.len : a.len+n]
	for i := range s {
		s[i] = v
	}
	a.len += n
}

// ExtendIter appends every item of it, then drops it.
func (a *DynArr[T]) ExtendIter(it Iterator[T]) {
	defer it.Drop()
	for {
		v, ok := it.Next()
		if !ok {
			return
		}
		if a.len == a.buf.Cap() {
			lower, _ := it.SizeHint()
			a.Reserve(lower + 1)
		}
		a.spare()[a.len] = v
		a.len++
	}
}

// Append moves every element of other to the end of a, leaving other
// empty.
func (a *DynArr[T]) Append(other *DynArr[T]) {
	src := other.Slice()
	a.Reserve(len(src))
	copy(a.spare()[a.len:], src)
	a.len += len(src)
	other.len = 0
	clear(src)
}

// SplitOff moves the elements from at onwards into a new array using the
// same storage and strategy.
func (a *DynArr[T]) SplitOff(at int) *DynArr[T] {
	if at < 0 || at > a.len {
		panic(fmt.Sprintf("dynarr: `at` split index (is %d) should be <= len (is %d)", at, a.len))
	}
	tail := a.Slice()[at:]
	other := WithCapacity[T](len(tail), InStorage(a.buf.storage), WithStrategy(a.buf.strategy))
	other.Extend(tail...)
	a.len = at
	clear(tail)
	return other
}

// IntoIter moves the elements and the allocation into an iterator. The
// array is left empty and can be reused.
func (a *DynArr[T]) IntoIter() *IntoIter[T] {
	it := &IntoIter[T]{buf: a.buf, base: a.buf.Ptr(), end: a.len}
	a.buf = NewRawArrayIn[T](a.buf.storage, a.buf.strategy)
	a.len = 0
	return it
}

// IntoFlattened turns an array of fixed-size arrays A into an array of
// their elements T, reusing the allocation. A must be an array type with
// element type T. a is left empty.
func IntoFlattened[T, A any](a *DynArr[A]) *DynArr[T] {
	at, tt := reflect.TypeFor[A](), reflect.TypeFor[T]()
	if at.Kind() != reflect.Array || at.Elem() != tt {
		panic(fmt.Sprintf("dynarr: cannot flatten %s into %s", at, tt))
	}
	h, s, r, n := a.IntoRawParts()
	hi, lo := bits.Mul64(uint64(n), uint64(at.Len()))
	if hi != 0 || lo > math.MaxInt {
		panic("dynarr: len overflow")
	}
	return FromRawParts[T](h, s, r, int(lo))
}

// Leak gives up the allocation and returns the elements. The storage never
// gets the memory back; for arena storage the slice is still invalidated by
// a Reset or Release of the arena. a is left empty.
func (a *DynArr[T]) Leak() []T {
	s := a.Slice()
	a.buf = NewRawArrayIn[T](a.buf.storage, a.buf.strategy)
	a.len = 0
	return s
}

// Free drops every element and gives the allocation back to the storage.
// The array stays usable.
func (a *DynArr[T]) Free() {
	defer a.buf.free()
	a.Clear()
}

// Drop is Free, so arrays of arrays release their elements.
func (a *DynArr[T]) Drop() {
	a.Free()
}

func (a *DynArr[T]) String() string {
	return fmt.Sprint(a.Slice())
}

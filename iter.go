package dynarr

import (
	"iter"
	"unsafe"

	"github.com/pavanmanishd/dynarr/internal/typeinfo"
	"github.com/pavanmanishd/dynarr/storage"
)

// Iterator is a consuming sequence of owned values. Every value returned by
// Next belongs to the caller. Drop releases whatever the iterator still
// owns; it must be called once the caller is done, even after exhaustion,
// and is safe to call more than once.
type Iterator[T any] interface {
	Next() (T, bool)
	// SizeHint returns bounds on the remaining length. A negative upper
	// bound means unknown.
	SizeHint() (lower, upper int)
	Drop()
}

// All adapts it to a range-over-func sequence. The iterator is dropped when
// the loop ends.
func All[T any](it Iterator[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		defer it.Drop()
		for {
			v, ok := it.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Values returns an iterator over xs. The iterator owns the values: the
// ones never yielded are dropped by Drop.
func Values[T any](xs ...T) Iterator[T] {
	return &sliceIter[T]{s: xs}
}

type sliceIter[T any] struct {
	s []T
}

func (it *sliceIter[T]) Next() (T, bool) {
	var zero T
	if len(it.s) == 0 {
		return zero, false
	}
	v := it.s[0]
	it.s[0] = zero
	it.s = it.s[1:]
	return v, true
}

func (it *sliceIter[T]) SizeHint() (int, int) {
	return len(it.s), len(it.s)
}

func (it *sliceIter[T]) Drop() {
	rest := it.s
	it.s = nil
	dropSlice(rest)
}

// The interfaces below let Collect look through an adapter chain. They are
// unexported so only the iterators of this package take part in in-place
// collection.

// sourceIter is implemented by iterators that can reach the IntoIter at the
// root of their chain. inPlaceSource returns nil when there is none.
type sourceIter interface {
	inPlaceSource() inPlaceSrc
}

// inPlaceIterable is implemented by iterators that never hold more output
// than the input they consumed: after reading merge inputs at most expand
// outputs have been yielded.
type inPlaceIterable interface {
	inPlaceStep() (merge, expand int, ok bool)
}

// trustedRandomAccess is implemented by chains whose items can be computed
// by index without advancing the source.
type trustedRandomAccess[T any] interface {
	size() int
	getUnchecked(i int) T
	// mayRandomAccess reports whether the items may be read by index
	// without ever being dropped by the source.
	mayRandomAccess() bool
}

// inPlaceSrc is the type-erased view of an IntoIter that Collect needs.
type inPlaceSrc interface {
	elemInfo() *typeinfo.Info
	// parts returns the allocation facts without giving up ownership.
	parts() srcParts
	// takeStorage leaves the allocation to the caller. The source keeps
	// reading and dropping its remaining items but no longer frees memory.
	takeStorage()
	readPos() int
	// advance marks n items as consumed by random access.
	advance(n int)
}

type srcParts struct {
	base     unsafe.Pointer
	pos, end int
	handle   storage.Handle
	storage  storage.Storage
	strategy ReserveStrategy
}

func sourceOf(it any) inPlaceSrc {
	if s, ok := it.(sourceIter); ok {
		return s.inPlaceSource()
	}
	return nil
}

func stepOf(it any) (merge, expand int, ok bool) {
	if s, ok := it.(inPlaceIterable); ok {
		return s.inPlaceStep()
	}
	return 0, 0, false
}

func randomAccessOf[T any](it any) (trustedRandomAccess[T], bool) {
	ra, ok := it.(trustedRandomAccess[T])
	if !ok || !ra.mayRandomAccess() {
		return nil, false
	}
	return ra, true
}

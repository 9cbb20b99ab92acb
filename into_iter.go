package dynarr

import (
	"unsafe"

	"github.com/pavanmanishd/dynarr/internal/typeinfo"
)

// IntoIter yields the elements of a consumed DynArr by value, front to back.
// It owns the allocation until Drop, or until Collect reuses it.
type IntoIter[T any] struct {
	buf  RawArray[T]
	base unsafe.Pointer
	// [pos, end) are initialized and not yet yielded
	pos, end int
	// taken is set once Collect owns the allocation; buf is empty from
	// then on
	taken bool
}

var (
	_ Iterator[int]            = (*IntoIter[int])(nil)
	_ sourceIter               = (*IntoIter[int])(nil)
	_ inPlaceIterable          = (*IntoIter[int])(nil)
	_ trustedRandomAccess[int] = (*IntoIter[int])(nil)
)

func (it *IntoIter[T]) at(i int) *T {
	return (*T)(unsafe.Add(it.base, uintptr(i)*elemSize[T]()))
}

func (it *IntoIter[T]) Next() (T, bool) {
	var zero T
	if it.pos >= it.end {
		return zero, false
	}
	p := it.at(it.pos)
	v := *p
	*p = zero
	it.pos++
	return v, true
}

func (it *IntoIter[T]) SizeHint() (int, int) {
	n := it.Len()
	return n, n
}

// Len returns the number of items left.
func (it *IntoIter[T]) Len() int {
	return it.end - it.pos
}

// AsSlice returns the items left. They still belong to the iterator.
func (it *IntoIter[T]) AsSlice() []T {
	return unsafe.Slice(it.at(it.pos), it.Len())
}

// Drop drops the items left and frees the allocation.
func (it *IntoIter[T]) Drop() {
	rest := it.AsSlice()
	it.pos = it.end
	if !it.taken {
		defer it.buf.free()
	}
	dropSlice(rest)
}

// inPlaceSource is nil once the allocation has been taken, so collecting
// the iterator again copies what is left instead of reusing memory it no
// longer owns.
func (it *IntoIter[T]) inPlaceSource() inPlaceSrc {
	if it.taken {
		return nil
	}
	return it
}

func (it *IntoIter[T]) inPlaceStep() (int, int, bool) { return 1, 1, true }

func (it *IntoIter[T]) size() int { return it.Len() }

func (it *IntoIter[T]) getUnchecked(i int) T {
	return *it.at(it.pos + i)
}

func (it *IntoIter[T]) mayRandomAccess() bool {
	return !needsDrop[T]()
}

func (it *IntoIter[T]) elemInfo() *typeinfo.Info {
	return typeinfo.Of[T]()
}

func (it *IntoIter[T]) parts() srcParts {
	return srcParts{
		base:     it.base,
		pos:      it.pos,
		end:      it.end,
		handle:   it.buf.handle,
		storage:  it.buf.storage,
		strategy: it.buf.strategy,
	}
}

// takeStorage forgets the handle; base stays so the remaining items can
// still be read and dropped.
func (it *IntoIter[T]) takeStorage() {
	it.taken = true
	it.buf = NewRawArrayIn[T](it.buf.storage, it.buf.strategy)
}

func (it *IntoIter[T]) readPos() int { return it.pos }

func (it *IntoIter[T]) advance(n int) {
	it.pos += n
}

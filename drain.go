package dynarr

import "fmt"

// Drain removes a range of elements from an array and yields them by value.
// The elements after the range move back into place on Drop, whether or not
// the iterator was exhausted.
type Drain[T any] struct {
	arr *DynArr[T]
	// [idx, end) are still to be yielded
	idx, end int
	// the elements after the range, not yet moved back
	tailStart, tailLen int
	done               bool
}

var _ Iterator[int] = (*Drain[int])(nil)

// Drain removes the elements in [start, end). The array appears truncated
// to start until the iterator is dropped.
func (a *DynArr[T]) Drain(start, end int) *Drain[T] {
	if start < 0 || start > end {
		panic(fmt.Sprintf("dynarr: slice index starts at %d but ends at %d", start, end))
	}
	if end > a.len {
		panic(fmt.Sprintf("dynarr: range end index %d out of range for slice of length %d", end, a.len))
	}
	d := &Drain[T]{
		arr:       a,
		idx:       start,
		end:       end,
		tailStart: end,
		tailLen:   a.len - end,
	}
	a.len = start
	return d
}

func (d *Drain[T]) Next() (T, bool) {
	var zero T
	if d.idx >= d.end {
		return zero, false
	}
	s := d.arr.spare()
	v := s[d.idx]
	s[d.idx] = zero
	d.idx++
	return v, true
}

func (d *Drain[T]) SizeHint() (int, int) {
	n := d.Len()
	return n, n
}

// Len returns the number of items left.
func (d *Drain[T]) Len() int {
	return d.end - d.idx
}

// AsSlice returns the items left. They still belong to the iterator.
func (d *Drain[T]) AsSlice() []T {
	return d.arr.spare()[d.idx:d.end]
}

// KeepRest ends the drain keeping the items not yet yielded in the array.
func (d *Drain[T]) KeepRest() {
	if d.done {
		return
	}
	rest := d.AsSlice()
	s := d.arr.spare()
	start := d.arr.len
	if start != d.idx {
		copy(s[start:], rest)
		clear(s[start+len(rest) : d.end])
	}
	d.arr.len = start + len(rest)
	d.idx = d.end
	d.moveTail()
}

// Drop drops the items not yet yielded and closes the gap.
func (d *Drain[T]) Drop() {
	if d.done {
		return
	}
	rest := d.AsSlice()
	d.idx = d.end
	defer d.moveTail()
	dropSlice(rest)
}

// moveTail moves the tail right behind the array's current length.
func (d *Drain[T]) moveTail() {
	if d.done {
		return
	}
	d.done = true
	a := d.arr
	if d.tailLen > 0 {
		s := a.spare()
		if a.len != d.tailStart {
			copy(s[a.len:], s[d.tailStart:d.tailStart+d.tailLen])
			clear(s[max(a.len+d.tailLen, d.tailStart) : d.tailStart+d.tailLen])
		}
	}
	a.len += d.tailLen
}

package dynarr

// ExtractIf removes and yields the elements for which pred returns true,
// in order. Elements not extracted keep their relative order. The array
// appears empty until the iterator is dropped.
type ExtractIf[T any] struct {
	arr  *DynArr[T]
	pred func(*T) bool
	// [idx, oldLen) are unvisited
	idx, del, oldLen int
	done             bool
}

var _ Iterator[int] = (*ExtractIf[int])(nil)

// ExtractIf returns an iterator removing the elements matching pred.
// pred may modify the elements it keeps.
func (a *DynArr[T]) ExtractIf(pred func(*T) bool) *ExtractIf[T] {
	e := &ExtractIf[T]{arr: a, pred: pred, oldLen: a.len}
	a.len = 0
	return e
}

// Next yields the next matching element. If pred panics, the element being
// tested and all unvisited ones are kept and the array is restored.
func (e *ExtractIf[T]) Next() (v T, ok bool) {
	if e.done {
		return v, false
	}
	completed := false
	defer func() {
		if !completed {
			e.finish()
		}
	}()
	s := e.arr.spare()
	for e.idx < e.oldLen {
		i := e.idx
		extract := e.pred(&s[i])
		e.idx++
		if extract {
			e.del++
			v = s[i]
			var zero T
			s[i] = zero
			completed = true
			return v, true
		}
		if e.del > 0 {
			s[i-e.del] = s[i]
		}
	}
	completed = true
	return v, false
}

func (e *ExtractIf[T]) SizeHint() (int, int) {
	return 0, e.oldLen - e.idx
}

// Drop stops extracting; unvisited elements stay in the array.
func (e *ExtractIf[T]) Drop() {
	e.finish()
}

func (e *ExtractIf[T]) finish() {
	if e.done {
		return
	}
	e.done = true
	s := e.arr.spare()
	if e.del > 0 {
		copy(s[e.idx-e.del:], s[e.idx:e.oldLen])
		clear(s[e.oldLen-e.del : e.oldLen])
	}
	e.arr.len = e.oldLen - e.del
}

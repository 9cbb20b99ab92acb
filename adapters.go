package dynarr

import "math"

// mulStep multiplies an in-place step factor, reporting overflow as not
// in-place.
func mulStep(a, n int) (int, bool) {
	if n <= 0 || a > math.MaxInt/n {
		return 0, false
	}
	return a * n, true
}

// Map returns an iterator yielding f of each item of it.
func Map[T, U any](it Iterator[T], f func(T) U) Iterator[U] {
	return &mapIter[T, U]{inner: it, f: f}
}

type mapIter[T, U any] struct {
	inner Iterator[T]
	f     func(T) U
}

func (m *mapIter[T, U]) Next() (U, bool) {
	v, ok := m.inner.Next()
	if !ok {
		var zero U
		return zero, false
	}
	return m.f(v), true
}

func (m *mapIter[T, U]) SizeHint() (int, int)                      { return m.inner.SizeHint() }
func (m *mapIter[T, U]) Drop()                                     { m.inner.Drop() }
func (m *mapIter[T, U]) inPlaceSource() inPlaceSrc                 { return sourceOf(m.inner) }
func (m *mapIter[T, U]) inPlaceStep() (merge, expand int, ok bool) { return stepOf(m.inner) }

func (m *mapIter[T, U]) size() int {
	return m.inner.(trustedRandomAccess[T]).size()
}

func (m *mapIter[T, U]) getUnchecked(i int) U {
	return m.f(m.inner.(trustedRandomAccess[T]).getUnchecked(i))
}

func (m *mapIter[T, U]) mayRandomAccess() bool {
	_, ok := randomAccessOf[T](m.inner)
	return ok
}

// Filter returns an iterator yielding the items of it for which keep
// returns true. Rejected items are dropped.
func Filter[T any](it Iterator[T], keep func(T) bool) Iterator[T] {
	return &filterIter[T]{inner: it, keep: keep}
}

type filterIter[T any] struct {
	inner Iterator[T]
	keep  func(T) bool
}

func (f *filterIter[T]) Next() (T, bool) {
	for {
		v, ok := f.inner.Next()
		if !ok {
			return v, false
		}
		if f.test(v) {
			return v, true
		}
	}
}

func (f *filterIter[T]) test(v T) bool {
	tested := false
	defer func() {
		if !tested {
			dropValueOrAbort(v)
		}
	}()
	keep := f.keep(v)
	tested = true
	if !keep {
		dropValue(v)
	}
	return keep
}

func (f *filterIter[T]) SizeHint() (int, int) {
	_, upper := f.inner.SizeHint()
	return 0, upper
}

func (f *filterIter[T]) Drop()                                     { f.inner.Drop() }
func (f *filterIter[T]) inPlaceSource() inPlaceSrc                 { return sourceOf(f.inner) }
func (f *filterIter[T]) inPlaceStep() (merge, expand int, ok bool) { return stepOf(f.inner) }

// FilterMap returns an iterator yielding f of each item of it for which f
// reports true. f owns the items it is given.
func FilterMap[T, U any](it Iterator[T], f func(T) (U, bool)) Iterator[U] {
	return &filterMapIter[T, U]{inner: it, f: f}
}

type filterMapIter[T, U any] struct {
	inner Iterator[T]
	f     func(T) (U, bool)
}

func (m *filterMapIter[T, U]) Next() (U, bool) {
	for {
		v, ok := m.inner.Next()
		if !ok {
			var zero U
			return zero, false
		}
		if u, ok := m.f(v); ok {
			return u, true
		}
	}
}

func (m *filterMapIter[T, U]) SizeHint() (int, int) {
	_, upper := m.inner.SizeHint()
	return 0, upper
}

func (m *filterMapIter[T, U]) Drop()                                     { m.inner.Drop() }
func (m *filterMapIter[T, U]) inPlaceSource() inPlaceSrc                 { return sourceOf(m.inner) }
func (m *filterMapIter[T, U]) inPlaceStep() (merge, expand int, ok bool) { return stepOf(m.inner) }

// Indexed is an item paired with its position in the sequence.
type Indexed[T any] struct {
	Index int
	Value T
}

// Enumerate returns an iterator pairing each item of it with its index.
func Enumerate[T any](it Iterator[T]) Iterator[Indexed[T]] {
	return &enumerateIter[T]{inner: it}
}

type enumerateIter[T any] struct {
	inner Iterator[T]
	count int
}

func (e *enumerateIter[T]) Next() (Indexed[T], bool) {
	v, ok := e.inner.Next()
	if !ok {
		return Indexed[T]{}, false
	}
	i := e.count
	e.count++
	return Indexed[T]{Index: i, Value: v}, true
}

func (e *enumerateIter[T]) SizeHint() (int, int)                      { return e.inner.SizeHint() }
func (e *enumerateIter[T]) Drop()                                     { e.inner.Drop() }
func (e *enumerateIter[T]) inPlaceSource() inPlaceSrc                 { return sourceOf(e.inner) }
func (e *enumerateIter[T]) inPlaceStep() (merge, expand int, ok bool) { return stepOf(e.inner) }

func (e *enumerateIter[T]) size() int {
	return e.inner.(trustedRandomAccess[T]).size()
}

func (e *enumerateIter[T]) getUnchecked(i int) Indexed[T] {
	return Indexed[T]{Index: e.count + i, Value: e.inner.(trustedRandomAccess[T]).getUnchecked(i)}
}

func (e *enumerateIter[T]) mayRandomAccess() bool {
	_, ok := randomAccessOf[T](e.inner)
	return ok
}

// Take returns an iterator yielding at most n items of it.
func Take[T any](it Iterator[T], n int) Iterator[T] {
	return &takeIter[T]{inner: it, n: n}
}

type takeIter[T any] struct {
	inner Iterator[T]
	n     int
}

func (t *takeIter[T]) Next() (T, bool) {
	if t.n <= 0 {
		var zero T
		return zero, false
	}
	t.n--
	return t.inner.Next()
}

func (t *takeIter[T]) SizeHint() (int, int) {
	if t.n <= 0 {
		return 0, 0
	}
	lower, upper := t.inner.SizeHint()
	if upper < 0 || upper > t.n {
		upper = t.n
	}
	return min(lower, t.n), upper
}

func (t *takeIter[T]) Drop()                                     { t.inner.Drop() }
func (t *takeIter[T]) inPlaceSource() inPlaceSrc                 { return sourceOf(t.inner) }
func (t *takeIter[T]) inPlaceStep() (merge, expand int, ok bool) { return stepOf(t.inner) }

// Skip returns an iterator that drops the first n items of it.
func Skip[T any](it Iterator[T], n int) Iterator[T] {
	return &skipIter[T]{inner: it, n: n}
}

type skipIter[T any] struct {
	inner Iterator[T]
	n     int
}

func (s *skipIter[T]) Next() (T, bool) {
	for ; s.n > 0; s.n-- {
		v, ok := s.inner.Next()
		if !ok {
			s.n = 0
			return v, false
		}
		dropValue(v)
	}
	return s.inner.Next()
}

func (s *skipIter[T]) SizeHint() (int, int) {
	lower, upper := s.inner.SizeHint()
	lower = max(lower-s.n, 0)
	if upper >= 0 {
		upper = max(upper-s.n, 0)
	}
	return lower, upper
}

func (s *skipIter[T]) Drop()                                     { s.inner.Drop() }
func (s *skipIter[T]) inPlaceSource() inPlaceSrc                 { return sourceOf(s.inner) }
func (s *skipIter[T]) inPlaceStep() (merge, expand int, ok bool) { return stepOf(s.inner) }

// Inspect returns an iterator calling f on each item before yielding it.
func Inspect[T any](it Iterator[T], f func(*T)) Iterator[T] {
	return &inspectIter[T]{inner: it, f: f}
}

type inspectIter[T any] struct {
	inner Iterator[T]
	f     func(*T)
}

func (in *inspectIter[T]) Next() (v T, ok bool) {
	v, ok = in.inner.Next()
	if !ok {
		return v, false
	}
	inspected := false
	defer func() {
		if !inspected {
			dropValueOrAbort(v)
		}
	}()
	in.f(&v)
	inspected = true
	return v, true
}

func (in *inspectIter[T]) SizeHint() (int, int)                      { return in.inner.SizeHint() }
func (in *inspectIter[T]) Drop()                                     { in.inner.Drop() }
func (in *inspectIter[T]) inPlaceSource() inPlaceSrc                 { return sourceOf(in.inner) }
func (in *inspectIter[T]) inPlaceStep() (merge, expand int, ok bool) { return stepOf(in.inner) }

// Chunks returns an iterator that groups the items of it n at a time and
// yields merge of each group. merge owns the items of the slice it is given
// and must not retain the slice. A trailing group shorter than n is dropped.
func Chunks[T, U any](it Iterator[T], n int, merge func([]T) U) Iterator[U] {
	if n <= 0 {
		panic("dynarr: chunk size must be positive")
	}
	return &chunksIter[T, U]{inner: it, merge: merge, buf: make([]T, n)}
}

type chunksIter[T, U any] struct {
	inner Iterator[T]
	merge func([]T) U
	buf   []T
}

func (c *chunksIter[T, U]) Next() (U, bool) {
	var zero U
	k := 0
	defer func() {
		// inner panicked with a partial group buffered
		if k > 0 && k < len(c.buf) {
			dropSliceOrAbort(c.buf[:k])
			clear(c.buf)
		}
	}()
	for k < len(c.buf) {
		v, ok := c.inner.Next()
		if !ok {
			rest := c.buf[:k]
			k = 0
			dropSlice(rest)
			return zero, false
		}
		c.buf[k] = v
		k++
	}
	u := c.merge(c.buf)
	clear(c.buf)
	return u, true
}

func (c *chunksIter[T, U]) SizeHint() (int, int) {
	n := len(c.buf)
	lower, upper := c.inner.SizeHint()
	if upper >= 0 {
		upper /= n
	}
	return lower / n, upper
}

func (c *chunksIter[T, U]) Drop()                     { c.inner.Drop() }
func (c *chunksIter[T, U]) inPlaceSource() inPlaceSrc { return sourceOf(c.inner) }

func (c *chunksIter[T, U]) inPlaceStep() (int, int, bool) {
	merge, expand, ok := stepOf(c.inner)
	if !ok {
		return 0, 0, false
	}
	merge, ok = mulStep(merge, len(c.buf))
	return merge, expand, ok
}

// Expand returns an iterator that splits each item of it into at most n
// outputs. split writes the outputs for one item into out, which has
// length n, and returns how many it wrote. split owns the item it is given.
func Expand[T, U any](it Iterator[T], n int, split func(T, []U) int) Iterator[U] {
	if n <= 0 {
		panic("dynarr: expansion factor must be positive")
	}
	return &expandIter[T, U]{inner: it, split: split, buf: make([]U, n)}
}

type expandIter[T, U any] struct {
	inner Iterator[T]
	split func(T, []U) int
	buf   []U
	// [head, tail) of buf are pending
	head, tail int
}

func (e *expandIter[T, U]) Next() (U, bool) {
	var zero U
	for e.head == e.tail {
		v, ok := e.inner.Next()
		if !ok {
			return zero, false
		}
		n := e.split(v, e.buf)
		if n < 0 || n > len(e.buf) {
			panic("dynarr: Expand split wrote more than n items")
		}
		e.head, e.tail = 0, n
	}
	u := e.buf[e.head]
	e.buf[e.head] = zero
	e.head++
	return u, true
}

func (e *expandIter[T, U]) SizeHint() (int, int) {
	pending := e.tail - e.head
	_, upper := e.inner.SizeHint()
	if upper >= 0 {
		if u, ok := mulStep(upper, len(e.buf)); ok {
			upper = u + pending
		} else {
			upper = -1
		}
	}
	return pending, upper
}

// Drop drops the pending outputs and the rest of the input.
func (e *expandIter[T, U]) Drop() {
	pending := e.buf[e.head:e.tail]
	e.head, e.tail = 0, 0
	defer e.inner.Drop()
	dropSlice(pending)
}

func (e *expandIter[T, U]) inPlaceSource() inPlaceSrc { return sourceOf(e.inner) }

func (e *expandIter[T, U]) inPlaceStep() (int, int, bool) {
	merge, expand, ok := stepOf(e.inner)
	if !ok {
		return 0, 0, false
	}
	expand, ok = mulStep(expand, len(e.buf))
	return merge, expand, ok
}

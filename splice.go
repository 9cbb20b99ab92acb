package dynarr

// Splice replaces a range of an array with the items of another iterator.
// It yields the removed elements; the replacement happens on Drop.
type Splice[T any] struct {
	drain       *Drain[T]
	replaceWith Iterator[T]
}

var _ Iterator[int] = (*Splice[int])(nil)

// Splice removes [start, end) and, once the returned iterator is dropped,
// inserts the items of replaceWith in their place. replaceWith is dropped
// along with the splice.
func (a *DynArr[T]) Splice(start, end int, replaceWith Iterator[T]) *Splice[T] {
	return &Splice[T]{drain: a.Drain(start, end), replaceWith: replaceWith}
}

func (sp *Splice[T]) Next() (T, bool) { return sp.drain.Next() }

func (sp *Splice[T]) SizeHint() (int, int) { return sp.drain.SizeHint() }

// Drop drops the removed elements not yet yielded, inserts the replacement
// and closes the gap.
func (sp *Splice[T]) Drop() {
	d := sp.drain
	if d.done {
		return
	}
	defer sp.replaceWith.Drop()
	defer d.moveTail()

	rest := d.AsSlice()
	d.idx = d.end
	dropSlice(rest)

	a := d.arr
	if d.tailLen == 0 {
		a.ExtendIter(noDrop(sp.replaceWith))
		return
	}
	if !sp.fill() {
		return
	}
	// the gap is full; make room for what the size hint promises
	if lower, _ := sp.replaceWith.SizeHint(); lower > 0 {
		sp.moveTail(lower)
		if !sp.fill() {
			return
		}
	}
	// whatever is left has no reliable length, so buffer it first
	buffered := New[T](InStorage(a.buf.storage), WithStrategy(a.buf.strategy))
	buffered.ExtendIter(noDrop(sp.replaceWith))
	if buffered.len > 0 {
		sp.moveTail(buffered.len)
		items := buffered.Slice()
		s := a.spare()
		copy(s[a.len:], items)
		a.len += len(items)
		buffered.len = 0
		clear(items)
	}
	buffered.Free()
}

// fill moves replacement items into the gap before the tail. It reports
// whether the gap was filled.
func (sp *Splice[T]) fill() bool {
	d := sp.drain
	a := d.arr
	s := a.spare()
	for a.len < d.tailStart {
		v, ok := sp.replaceWith.Next()
		if !ok {
			return false
		}
		s[a.len] = v
		a.len++
	}
	return true
}

// moveTail shifts the tail n slots right, growing the array as needed.
func (sp *Splice[T]) moveTail(n int) {
	d := sp.drain
	a := d.arr
	used := d.tailStart + d.tailLen
	a.buf.Reserve(used, n)
	s := a.spare()
	newStart := d.tailStart + n
	copy(s[newStart:], s[d.tailStart:used])
	clear(s[d.tailStart:min(newStart, used)])
	d.tailStart = newStart
}

// noDrop hides Drop from ExtendIter so the caller keeps ownership.
func noDrop[T any](it Iterator[T]) Iterator[T] {
	return borrowed[T]{it}
}

type borrowed[T any] struct {
	Iterator[T]
}

func (borrowed[T]) Drop() {}

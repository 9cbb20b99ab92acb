package dynarr

import (
	"math"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanmanishd/dynarr/arena"
	"github.com/pavanmanishd/dynarr/storage"
)

func TestDynArrBasics(t *testing.T) {
	a := New[int]()
	assert.True(t, a.IsEmpty())
	_, ok := a.Pop()
	assert.False(t, ok)

	for i := 0; i < 10; i++ {
		a.Push(i)
	}
	assert.Equal(t, 10, a.Len())
	assert.Equal(t, seq[int](10), a.Slice())

	v, ok := a.Get(3)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	_, ok = a.Get(10)
	assert.False(t, ok)
	_, ok = a.Get(-1)
	assert.False(t, ok)

	a.Insert(0, -1)
	a.Insert(a.Len(), 100)
	assert.Equal(t, -1, a.At(0))
	assert.Equal(t, 100, a.At(11))
	assert.Equal(t, -1, a.Remove(0))
	assert.Equal(t, 100, a.Remove(10))
	assert.Equal(t, seq[int](10), a.Slice())

	assert.Equal(t, 2, a.SwapRemove(2))
	assert.Equal(t, []int{0, 1, 9, 3, 4, 5, 6, 7, 8}, a.Slice())

	last, ok := a.Pop()
	assert.True(t, ok)
	assert.Equal(t, 8, last)
	assert.Equal(t, "[0 1 9 3 4 5 6 7]", a.String())

	assert.Panics(t, func() { a.At(8) })
	assert.PanicsWithValue(t, "dynarr: insertion index (is 9) should be <= len (is 8)", func() { a.Insert(9, 0) })
	assert.PanicsWithValue(t, "dynarr: removal index (is 8) should be < len (is 8)", func() { a.Remove(8) })
}

func TestDynArrDropsWhatItDiscards(t *testing.T) {
	log := newDropLog()
	a := From(log.tokens(10)...)

	a.Truncate(8)
	assert.Equal(t, map[int]int{8: 1, 9: 1}, log.counts)

	a.Set(0, token{id: 100, log: log})
	assert.Equal(t, 1, log.counts[0])

	old := a.Replace(1, token{id: 101, log: log})
	assert.Equal(t, 1, old.id)
	assert.Zero(t, log.counts[1])
	old.Drop()

	removed := a.Remove(2)
	assert.Zero(t, log.counts[2], "removed elements belong to the caller")
	removed.Drop()

	a.Free()
	assert.Empty(t, log.droppedOnce(10))
	assert.Equal(t, 1, log.counts[100])
	assert.Equal(t, 1, log.counts[101])
	assert.Zero(t, a.Cap())
}

func TestDynArrTruncateKeepsDroppingAfterPanic(t *testing.T) {
	catchAborts(t)
	log := newDropLog()
	log.explode[3] = true
	a := From(log.tokens(6)...)

	r := recovered(func() { a.Truncate(1) })
	assert.Equal(t, "drop of token 3", r)
	assert.Equal(t, 1, a.Len())
	assert.Empty(t, log.droppedOnce(6)[1:], "every truncated token is dropped")

	log.explode[4] = true
	b := From(log.tokens(6)...)
	log.counts = map[int]int{}
	r = recovered(func() { b.Clear() })
	assert.Equal(t, aborted{"dynarr: panic while dropping elements during unwind"}, r)
}

func TestDynArrWithCapacity(t *testing.T) {
	m := storage.NewMetrics(storage.NewHeap(storage.HeapConfig{}), nil)
	a := WithCapacity[uint64](10, InStorage(m), WithStrategy(DoubleOrMin{}))
	assert.Equal(t, 10, a.Cap())
	assert.Equal(t, m, a.Storage())
	assert.Equal(t, DoubleOrMin{}, a.Strategy())

	z := WithCapacity[uint64](4, Zeroed())
	z.SetLen(4)
	assert.Equal(t, []uint64{0, 0, 0, 0}, z.Slice())
	assert.Panics(t, func() { z.SetLen(5) })

	_, err := TryWithCapacity[uint64](1<<20, InStorage(storage.NewHeap(storage.HeapConfig{MaxBytes: 1024})))
	assert.ErrorIs(t, err, storage.ErrOutOfMemory)

	for i := 0; i < 11; i++ {
		a.Push(uint64(i))
	}
	assert.Equal(t, 20, a.Cap())
	a.ShrinkTo(15)
	assert.Equal(t, 15, a.Cap())
	a.ShrinkToFit()
	assert.Equal(t, 11, a.Cap())
	a.ShrinkTo(0)
	assert.Equal(t, 11, a.Cap())

	a.Free()
	assert.Zero(t, m.Stats().Live)
}

func TestDynArrTryPush(t *testing.T) {
	a := New[uint64](InStorage(storage.NewHeap(storage.HeapConfig{MaxBytes: 32})))
	for i := 0; i < 4; i++ {
		require.NoError(t, a.TryPush(uint64(i)))
	}
	assert.ErrorIs(t, a.TryPush(4), storage.ErrOutOfMemory)
	assert.Equal(t, seq[uint64](4), a.Slice())
	assert.Error(t, a.TryReserve(100))
	assert.Error(t, a.TryReserveExact(100))
}

func TestDynArrExtendAppendSplit(t *testing.T) {
	a := From(1, 2, 3)
	a.Extend(4, 5)
	a.ExtendIter(Values(6, 7, 8))

	b := From(9, 10)
	a.Append(b)
	assert.True(t, b.IsEmpty())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, a.Slice())

	tail := a.SplitOff(7)
	assert.Equal(t, []int{8, 9, 10}, tail.Slice())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, a.Slice())
	assert.Empty(t, a.SplitOff(7).Slice())
	assert.Panics(t, func() { a.SplitOff(8) })

	a.ReserveExact(100)
	assert.Equal(t, 107, a.Cap())
	a.Reserve(1)
	assert.Equal(t, 107, a.Cap())
}

func TestDynArrRetain(t *testing.T) {
	log := newDropLog()
	a := From(log.tokens(10)...)
	a.Retain(func(tk token) bool { return tk.id%3 == 0 })

	ids := make([]int, 0, a.Len())
	for _, tk := range a.Slice() {
		ids = append(ids, tk.id)
	}
	assert.Equal(t, []int{0, 3, 6, 9}, ids)
	assert.Equal(t, map[int]int{1: 1, 2: 1, 4: 1, 5: 1, 7: 1, 8: 1}, log.counts)

	b := From(seq[int](6)...)
	b.RetainMut(func(v *int) bool {
		*v *= 10
		return *v != 20
	})
	assert.Equal(t, []int{0, 10, 30, 40, 50}, b.Slice())
}

func TestDynArrRetainPanicKeepsUnvisited(t *testing.T) {
	a := From(seq[int](8)...)
	r := recovered(func() {
		a.Retain(func(v int) bool {
			if v == 5 {
				panic("boom")
			}
			return v%2 == 0
		})
	})
	assert.Equal(t, "boom", r)
	assert.Equal(t, []int{0, 2, 4, 5, 6, 7}, a.Slice())

	log := newDropLog()
	log.explode[2] = true
	b := From(log.tokens(6)...)
	r = recovered(func() { b.Retain(func(tk token) bool { return tk.id != 2 }) })
	assert.Equal(t, "drop of token 2", r)
	assert.Equal(t, 5, b.Len())
	b.Free()
	assert.Empty(t, log.droppedOnce(6))
}

func TestDynArrDedup(t *testing.T) {
	a := From(1, 1, 2, 3, 3, 3, 1, 4, 4)
	a.DedupFunc(func(cur, prev *int) bool { return *cur == *prev })
	assert.Equal(t, []int{1, 2, 3, 1, 4}, a.Slice())

	words := From("apple", "avocado", "banana", "blueberry", "cherry")
	DedupBy(words, func(s *string) byte { return (*s)[0] })
	assert.Equal(t, []string{"apple", "banana", "cherry"}, words.Slice())

	b := From(1, 1, 2, 2, 3)
	r := recovered(func() {
		b.DedupFunc(func(cur, prev *int) bool {
			if *cur == 3 {
				panic("boom")
			}
			return *cur == *prev
		})
	})
	assert.Equal(t, "boom", r)
	assert.Equal(t, []int{1, 2, 3}, b.Slice())
}

func TestDynArrDrain(t *testing.T) {
	a := From(seq[int](10)...)
	d := a.Drain(2, 5)
	assert.Equal(t, 2, a.Len(), "drained range is hidden until drop")
	v, ok := d.Next()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, []int{3, 4}, d.AsSlice())
	d.Drop()
	d.Drop()
	assert.Equal(t, []int{0, 1, 5, 6, 7, 8, 9}, a.Slice())

	got := Collect[int](a.Drain(0, 3))
	assert.Equal(t, []int{0, 1, 5}, got.Slice())
	assert.Equal(t, []int{6, 7, 8, 9}, a.Slice())

	k := a.Drain(1, 3)
	k.Next()
	k.KeepRest()
	assert.Equal(t, []int{6, 8, 9}, a.Slice())

	assert.Panics(t, func() { a.Drain(2, 1) })
	assert.Panics(t, func() { a.Drain(0, 4) })
}

func TestDynArrDrainDropsRest(t *testing.T) {
	log := newDropLog()
	a := From(log.tokens(6)...)
	d := a.Drain(1, 4)
	first, _ := d.Next()
	first.Drop()
	d.Drop()
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1}, log.counts)
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, 5, a.At(2).id)
}

func TestDynArrSplice(t *testing.T) {
	tests := []struct {
		name        string
		start, end  int
		replaceWith func() Iterator[int]
		want        []int
	}{
		{"at the end", 3, 5, func() Iterator[int] { return Values(7, 8, 9) }, []int{0, 1, 2, 7, 8, 9}},
		{"shorter", 1, 4, func() Iterator[int] { return Values(7) }, []int{0, 7, 4}},
		{"same length", 1, 3, func() Iterator[int] { return Values(7, 8) }, []int{0, 7, 8, 3, 4}},
		{"longer with size hint", 1, 2, func() Iterator[int] { return Values(7, 8, 9) }, []int{0, 7, 8, 9, 2, 3, 4}},
		{"longer without size hint", 1, 2, func() Iterator[int] {
			return Filter(Values(7, 8, 9, 10), func(v int) bool { return v != 8 })
		}, []int{0, 7, 9, 10, 2, 3, 4}},
		{"insert only", 2, 2, func() Iterator[int] { return Values(7, 8) }, []int{0, 1, 7, 8, 2, 3, 4}},
		{"remove only", 0, 5, func() Iterator[int] { return Values[int]() }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := From(seq[int](5)...)
			sp := a.Splice(tt.start, tt.end, tt.replaceWith())
			removed := Collect[int](sp)
			assert.Equal(t, tt.end-tt.start, removed.Len())
			if diff := cmp.Diff(tt.want, a.Slice(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("splice mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDynArrExtractIf(t *testing.T) {
	a := From(seq[int](10)...)
	evens := Collect[int](a.ExtractIf(func(v *int) bool { return *v%2 == 0 }))
	assert.Equal(t, []int{0, 2, 4, 6, 8}, evens.Slice())
	assert.Equal(t, []int{1, 3, 5, 7, 9}, a.Slice())

	e := a.ExtractIf(func(v *int) bool { return *v > 2 })
	v, ok := e.Next()
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	e.Drop()
	assert.Equal(t, []int{1, 5, 7, 9}, a.Slice())

	b := From(1, 5, 7, 9)
	r := recovered(func() {
		e := b.ExtractIf(func(v *int) bool {
			if *v == 7 {
				panic("boom")
			}
			return *v == 5
		})
		e.Next()
		e.Next()
	})
	assert.Equal(t, "boom", r)
	assert.Equal(t, []int{1, 7, 9}, b.Slice())
}

func TestDynArrIntoIter(t *testing.T) {
	m := storage.NewMetrics(storage.NewHeap(storage.HeapConfig{}), nil)
	a := fromIn(m, seq[int](5)...)
	it := a.IntoIter()
	assert.True(t, a.IsEmpty())
	assert.Zero(t, a.Cap())

	v, _ := it.Next()
	assert.Equal(t, 0, v)
	assert.Equal(t, 4, it.Len())
	assert.Equal(t, []int{1, 2, 3, 4}, it.AsSlice())
	lo, hi := it.SizeHint()
	assert.Equal(t, 4, lo)
	assert.Equal(t, 4, hi)

	it.Drop()
	it.Drop()
	assert.Zero(t, m.Stats().Live)

	var sum int
	for v := range All[int](From(1, 2, 3).IntoIter()) {
		sum += v
	}
	assert.Equal(t, 6, sum)
}

func TestDynArrRawParts(t *testing.T) {
	a := From[uint32](1, 2, 3)
	h, s, r, n := a.IntoRawParts()
	assert.Zero(t, a.Len())

	b := FromRawParts[uint32](h, s, r, n)
	assert.Equal(t, []uint32{1, 2, 3}, b.Slice())
	assert.Panics(t, func() { FromRawParts[uint32](h, s, r, 100) })
}

func TestDynArrZeroSized(t *testing.T) {
	a := New[struct{}]()
	for i := 0; i < 1000; i++ {
		a.Push(struct{}{})
	}
	assert.Equal(t, 1000, a.Len())
	a.Remove(10)
	a.Truncate(500)
	assert.Equal(t, 500, a.Len())
	assert.NotNil(t, a.Ptr())
}

func TestDynArrNested(t *testing.T) {
	log := newDropLog()
	outer := New[*DynArr[token]]()
	outer.Push(From(log.tokens(3)...))
	outer.Push(New[token]())
	outer.Free()
	assert.Empty(t, log.droppedOnce(3))
}

func TestDynArrInArena(t *testing.T) {
	ar := arena.NewSafeArena(1024)
	s := storage.NewArena(ar)

	a := New[uint32](InStorage(s))
	for i := 0; i < 100; i++ {
		a.Push(uint32(i))
	}
	assert.Equal(t, seq[uint32](100), a.Slice())
	assert.Positive(t, ar.Metrics().Resized, "the newest region grows in place")

	_, err := TryWithCapacity[*int](4, InStorage(s))
	assert.ErrorIs(t, err, storage.ErrUnsupportedLayout)

	used := ar.Metrics().SizeInUse
	a.Free()
	assert.Less(t, ar.Metrics().SizeInUse, used)
}

func TestDynArrResize(t *testing.T) {
	a := From(1, 2, 3)
	a.Resize(5, 9)
	assert.Equal(t, []int{1, 2, 3, 9, 9}, a.Slice())
	a.Resize(2, 0)
	assert.Equal(t, []int{1, 2}, a.Slice())

	next := 10
	a.ResizeFunc(4, func() int { next++; return next })
	assert.Equal(t, []int{1, 2, 11, 12}, a.Slice())
	a.ResizeFunc(1, nil)
	assert.Equal(t, []int{1}, a.Slice())

	log := newDropLog()
	tokens := From(log.tokens(4)...)
	tokens.Resize(1, token{id: 100, log: log})
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1}, log.counts)
	tokens.Free()
	assert.Empty(t, log.droppedOnce(4))
}

func TestDynArrExtendFromWithin(t *testing.T) {
	a := From(seq[int](4)...)
	a.ExtendFromWithin(1, 3)
	assert.Equal(t, []int{0, 1, 2, 3, 1, 2}, a.Slice())
	a.ExtendFromWithin(0, 0)
	assert.Equal(t, 6, a.Len())

	assert.PanicsWithValue(t, "dynarr: range start index 7 out of range for slice of length 6", func() { a.ExtendFromWithin(7, 7) })
	assert.PanicsWithValue(t, "dynarr: range end index 8 out of range for slice of length 6", func() { a.ExtendFromWithin(0, 8) })
	assert.PanicsWithValue(t, "dynarr: slice index starts at 4 but ends at 2", func() { a.ExtendFromWithin(4, 2) })
}

func TestDynArrPopIf(t *testing.T) {
	a := From(1, 2, 3)
	_, ok := a.PopIf(func(v *int) bool { return *v%2 == 0 })
	assert.False(t, ok)

	_, ok = a.PopIf(func(v *int) bool { *v *= 10; return false })
	assert.False(t, ok)
	assert.Equal(t, []int{1, 2, 30}, a.Slice())

	v, ok := a.PopIf(func(v *int) bool { return *v > 10 })
	assert.True(t, ok)
	assert.Equal(t, 30, v)

	_, ok = New[int]().PopIf(func(*int) bool { return true })
	assert.False(t, ok)
}

func TestDynArrPushWithinCapacity(t *testing.T) {
	a := WithCapacity[int](2)
	assert.True(t, a.PushWithinCapacity(1))
	assert.True(t, a.PushWithinCapacity(2))
	assert.False(t, a.PushWithinCapacity(3))
	assert.Equal(t, []int{1, 2}, a.Slice())
	assert.Equal(t, 2, a.Cap())

	assert.False(t, New[int]().PushWithinCapacity(1), "an empty array has no room")
}

func TestDynArrLeak(t *testing.T) {
	m := newMetrics()
	a := fromIn(m, 1, 2, 3)

	s := a.Leak()
	assert.Equal(t, []int{1, 2, 3}, s)
	assert.Zero(t, a.Len())
	assert.Zero(t, a.Cap())
	assert.Equal(t, 1, m.Stats().Live, "leaked memory is never given back")

	a.Push(4)
	a.Free()
	assert.Equal(t, 1, m.Stats().Live)
	assert.Equal(t, []int{1, 2, 3}, s)
}

func TestDynArrIntoFlattened(t *testing.T) {
	m := newMetrics()
	a := fromIn(m, [3]uint16{1, 2, 3}, [3]uint16{4, 5, 6})
	base := a.Ptr()
	allocs := m.Stats().Allocations

	out := IntoFlattened[uint16](a)

	assert.Equal(t, base, out.Ptr())
	assert.Equal(t, allocs, m.Stats().Allocations)
	assert.Equal(t, []uint16{1, 2, 3, 4, 5, 6}, out.Slice())
	assert.GreaterOrEqual(t, out.Cap(), 6)
	assert.Zero(t, a.Len())
	assert.Zero(t, a.Cap())

	out.Free()
	assert.Zero(t, m.Stats().Live)

	zst := New[[4]struct{}]()
	zst.Extend([4]struct{}{}, [4]struct{}{}, [4]struct{}{})
	assert.Equal(t, 12, IntoFlattened[struct{}](zst).Len())

	assert.PanicsWithValue(t, "dynarr: cannot flatten [2]uint16 into uint32", func() {
		IntoFlattened[uint32](New[[2]uint16]())
	})
}

func TestDynArrRepeat(t *testing.T) {
	assert.Equal(t, []int{7, 7, 7, 7, 7}, Repeat(7, 5).Slice())
	assert.Zero(t, Repeat(0, 0).Cap())
	assert.Panics(t, func() { Repeat(1, -1) })

	// zero values come from zeroed memory, even when the region is reused
	ar := arena.NewArena(1024)
	dirty := ar.AllocAligned(64, 8)
	for i := range dirty {
		dirty[i] = 0xFF
	}
	require.True(t, ar.Free(dirty))

	z := Repeat[uint64](0, 8, InStorage(storage.NewArena(ar)))
	assert.Equal(t, unsafe.Pointer(&dirty[0]), z.Ptr())
	assert.Equal(t, make([]uint64, 8), z.Slice())

	negZero := Repeat(math.Copysign(0, -1), 2)
	assert.True(t, math.Signbit(negZero.At(1)), "negative zero is not the zero value")

	assert.Equal(t, 3, Repeat(struct{}{}, 3).Len())
}

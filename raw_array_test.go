package dynarr

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanmanishd/dynarr/storage"
)

func TestRawArrayNewDoesNotAllocate(t *testing.T) {
	m := storage.NewMetrics(storage.NewHeap(storage.HeapConfig{}), nil)
	a := NewRawArrayIn[uint64](m, nil)

	assert.Zero(t, a.Cap())
	assert.NotNil(t, a.Ptr())
	assert.True(t, a.Handle().IsDangling())
	assert.Equal(t, DefaultStrategy, a.Strategy())
	assert.Zero(t, m.Stats().Allocations)
}

func TestRawArrayWithCapacity(t *testing.T) {
	m := storage.NewMetrics(storage.NewHeap(storage.HeapConfig{}), nil)
	a := RawArrayWithCapacityIn[uint32](10, m, nil)
	assert.Equal(t, 10, a.Cap())
	assert.Equal(t, 1, m.Stats().Live)

	z := RawArrayWithCapacityZeroedIn[uint64](16, m, nil)
	assert.Equal(t, make([]uint64, 16), z.AsSlice())

	empty := RawArrayWithCapacityIn[uint32](0, m, nil)
	assert.True(t, empty.Handle().IsDangling())

	a.free()
	z.free()
	assert.Zero(t, m.Stats().Live)
}

func TestRawArrayMinNonZeroCap(t *testing.T) {
	bytes := NewRawArrayIn[byte](nil, nil)
	bytes.Reserve(0, 1)
	assert.Equal(t, 8, bytes.Cap())

	words := NewRawArrayIn[uint32](nil, nil)
	words.Reserve(0, 1)
	assert.Equal(t, 4, words.Cap())

	big := NewRawArrayIn[[2048]byte](nil, nil)
	big.Reserve(0, 1)
	assert.Equal(t, 1, big.Cap())
}

func TestRawArrayGrowthIsMonotonic(t *testing.T) {
	for _, s := range []ReserveStrategy{ThreeHalves{}, DoubleOrMin{}, Pow2{}} {
		a := New[uint64](WithStrategy(s))
		prev := a.Cap()
		for i := 0; i < 5000; i++ {
			a.Push(uint64(i))
			require.GreaterOrEqual(t, a.Cap(), prev, "%T", s)
			require.GreaterOrEqual(t, a.Cap(), a.Len(), "%T", s)
			prev = a.Cap()
		}
		assert.Equal(t, uint64(4999), a.At(4999))
		a.Free()
	}
}

func TestRawArrayReserveExact(t *testing.T) {
	a := NewRawArrayIn[uint64](nil, nil)
	a.ReserveExact(0, 3)
	assert.Equal(t, 3, a.Cap())
	a.ReserveExact(3, 0)
	assert.Equal(t, 3, a.Cap())
	a.ReserveExact(2, 5)
	assert.Equal(t, 7, a.Cap())
}

func TestRawArrayCapacityOverflow(t *testing.T) {
	a := NewRawArrayIn[uint64](nil, nil)
	assert.ErrorIs(t, a.TryReserve(0, math.MaxInt), storage.ErrCapacityOverflow)
	assert.ErrorIs(t, a.TryReserveExact(0, math.MaxInt/4), storage.ErrCapacityOverflow)
	assert.ErrorIs(t, a.TryReserve(math.MaxInt, 1), storage.ErrCapacityOverflow)
	assert.PanicsWithError(t, "capacity overflow", func() { a.Reserve(0, math.MaxInt) })
	assert.Zero(t, a.Cap(), "a failed reservation leaves the array alone")
}

func TestRawArrayZeroSized(t *testing.T) {
	m := storage.NewMetrics(storage.NewHeap(storage.HeapConfig{}), nil)
	a := RawArrayWithCapacityIn[struct{}](100, m, nil)
	assert.Equal(t, math.MaxInt, a.Cap())
	assert.NoError(t, a.TryReserve(1<<40, 1<<40))
	assert.ErrorIs(t, a.TryReserve(math.MaxInt, 1), storage.ErrCapacityOverflow)
	assert.PanicsWithError(t, "capacity overflow", a.GrowOne)
	a.ShrinkToFit(0)
	assert.Zero(t, m.Stats().Allocations)
}

func TestRawArrayAllocError(t *testing.T) {
	catchAborts(t)
	heap := storage.NewHeap(storage.HeapConfig{MaxBytes: 64})
	a := NewRawArrayIn[uint64](heap, nil)

	assert.ErrorIs(t, a.TryReserve(0, 100), storage.ErrOutOfMemory)

	err := a.TryReserveExact(0, 100)
	var allocErr *storage.AllocError
	require.True(t, errors.As(err, &allocErr))
	assert.ErrorIs(t, err, storage.ErrOutOfMemory)
	assert.Equal(t, uintptr(800), allocErr.Layout.Size)
	assert.False(t, errors.Is(err, storage.ErrCapacityOverflow))

	assert.Equal(t, aborted{"dynarr: memory allocation failed"}, recovered(func() { a.Reserve(0, 100) }))
	assert.Zero(t, a.Cap())
}

func TestRawArrayShrink(t *testing.T) {
	m := storage.NewMetrics(storage.NewHeap(storage.HeapConfig{}), nil)
	a := RawArrayWithCapacityIn[uint64](64, m, nil)
	copy(a.AsMutSlice(), seq[uint64](64))

	assert.PanicsWithValue(t, "dynarr: tried to shrink to a larger capacity", func() { a.ShrinkToFit(65) })

	a.ShrinkToFit(8)
	assert.Equal(t, 8, a.Cap())
	assert.Equal(t, seq[uint64](8), a.AsSlice())

	a.ShrinkToFit(0)
	assert.True(t, a.Handle().IsDangling())
	assert.Zero(t, m.Stats().Live)
	assert.Zero(t, m.Stats().BytesInUse)
}

func TestRawArrayRawParts(t *testing.T) {
	a := RawArrayWithCapacityIn[uint32](8, nil, Pow2{})
	h, s, r := a.IntoRawParts()
	assert.True(t, a.Handle().IsDangling())

	b := RawArrayFromRawParts[uint32](h, s, r)
	assert.Equal(t, 8, b.Cap())
	assert.Equal(t, Pow2{}, b.Strategy())
	assert.Equal(t, storage.Default(), b.Storage())
	b.free()
}

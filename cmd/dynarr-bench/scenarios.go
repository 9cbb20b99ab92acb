package main

import (
	"sort"

	"github.com/pavanmanishd/dynarr"
	"github.com/pavanmanishd/dynarr/storage"
)

// env is what one scenario run gets to work with.
type env struct {
	storage  storage.Storage
	strategy dynarr.ReserveStrategy
	length   int
}

func (e env) opts() []dynarr.Option {
	return []dynarr.Option{dynarr.InStorage(e.storage), dynarr.WithStrategy(e.strategy)}
}

// scenario runs once and returns a checksum so the work is not optimized
// away.
type scenario func(e env) uint64

var scenarios = map[string]scenario{
	"new":            benchNew,
	"with-capacity":  benchWithCapacity,
	"push":           benchPush,
	"push-reserved":  benchPushReserved,
	"index":          benchIndex,
	"map-cast":       benchMapCast,
	"filter-map":     benchFilterMap,
	"flatten":        benchFlatten,
	"chunks":         benchChunks,
	"fallback-align": benchFallbackAlign,
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fill(e env) *dynarr.DynArr[uint64] {
	a := dynarr.WithCapacity[uint64](e.length, e.opts()...)
	for i := 0; i < e.length; i++ {
		a.Push(uint64(i))
	}
	return a
}

func sum[T ~uint8 | ~uint32 | ~uint64 | ~int64](a *dynarr.DynArr[T]) uint64 {
	var s uint64
	for _, v := range a.Slice() {
		s += uint64(v)
	}
	a.Free()
	return s
}

func benchNew(e env) uint64 {
	a := dynarr.New[uint64](e.opts()...)
	return uint64(a.Cap())
}

func benchWithCapacity(e env) uint64 {
	a := dynarr.WithCapacity[uint64](64, e.opts()...)
	defer a.Free()
	return uint64(a.Cap())
}

func benchPush(e env) uint64 {
	a := dynarr.New[uint64](e.opts()...)
	for i := 0; i < e.length; i++ {
		a.Push(uint64(i))
	}
	return sum(a)
}

func benchPushReserved(e env) uint64 {
	return sum(fill(e))
}

func benchIndex(e env) uint64 {
	a := fill(e)
	defer a.Free()
	var s uint64
	for i := 0; i < a.Len(); i++ {
		s += a.At(i)
	}
	return s
}

func benchMapCast(e env) uint64 {
	return sum(dynarr.Collect(dynarr.Map(fill(e).IntoIter(), func(v uint64) int64 { return int64(v) - 1 })))
}

func benchFilterMap(e env) uint64 {
	it := dynarr.Enumerate(fill(e).IntoIter())
	return sum(dynarr.Collect(dynarr.FilterMap(it, func(p dynarr.Indexed[uint64]) (uint64, bool) {
		return p.Value * 3, p.Index%2 == 0
	})))
}

func benchFlatten(e env) uint64 {
	pairs := dynarr.WithCapacity[[2]uint32](e.length, e.opts()...)
	for i := 0; i < e.length; i++ {
		pairs.Push([2]uint32{uint32(i), uint32(i >> 1)})
	}
	return sum(dynarr.Collect(dynarr.Expand(pairs.IntoIter(), 2, func(p [2]uint32, out []uint32) int {
		return copy(out, p[:])
	})))
}

func benchChunks(e env) uint64 {
	bytes := dynarr.WithCapacity[uint8](e.length, e.opts()...)
	for i := 0; i < e.length; i++ {
		bytes.Push(uint8(i))
	}
	words := dynarr.Collect(dynarr.Chunks(bytes.IntoIter(), 4, func(b []uint8) [4]uint8 { return [4]uint8(b) }))
	defer words.Free()
	var s uint64
	for _, w := range words.Slice() {
		s += uint64(w[0]) + uint64(w[3])
	}
	return s
}

func benchFallbackAlign(e env) uint64 {
	return sum(dynarr.Collect(dynarr.Map(fill(e).IntoIter(), func(v uint64) uint32 { return uint32(v) })))
}

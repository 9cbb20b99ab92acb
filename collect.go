package dynarr

import (
	"go.uber.org/zap"

	"github.com/pavanmanishd/dynarr/internal/typeinfo"
)

// Collect consumes it and returns its items as an array.
//
// When it is a chain of this package's adapters rooted at an IntoIter and
// the output fits in the memory the input frees, the source allocation is
// reused and no memory is allocated. Otherwise the items are copied into a
// new array that uses the source's storage and strategy, or the defaults
// when there is no source.
func Collect[T any](it Iterator[T]) *DynArr[T] {
	src := sourceOf(it)
	if src == nil {
		return collectInto(it, New[T]())
	}
	merge, expand, ok := stepOf(it)
	if ok && inPlaceCollectible(src.elemInfo(), typeinfo.Of[T](), merge, expand) {
		return collectInPlace(it, src)
	}
	if ce := logger.Check(zap.DebugLevel, "collecting into a new allocation"); ce != nil {
		ce.Write(
			zap.Stringer("from", src.elemInfo().Type),
			zap.Stringer("to", typeinfo.Of[T]().Type),
			zap.Int("merge", merge),
			zap.Int("expand", expand),
		)
	}
	p := src.parts()
	return collectInto(it, New[T](InStorage(p.storage), WithStrategy(p.strategy)))
}

// CollectIn consumes it into a new array built with opts. It never reuses
// the source allocation.
func CollectIn[T any](it Iterator[T], opts ...Option) *DynArr[T] {
	return collectInto(it, New[T](opts...))
}

func collectInto[T any](it Iterator[T], out *DynArr[T]) *DynArr[T] {
	done := false
	defer func() {
		if !done {
			cleanupOrAbort(func() {
				defer it.Drop()
				out.Free()
			})
		}
	}()
	if lower, _ := it.SizeHint(); lower > 0 {
		out.Reserve(lower)
	}
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		out.Push(v)
	}
	it.Drop()
	done = true
	return out
}

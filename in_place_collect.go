package dynarr

import (
	"fmt"
	"math/bits"
	"unsafe"

	"go.uber.org/zap"

	"github.com/pavanmanishd/dynarr/internal/typeinfo"
	"github.com/pavanmanishd/dynarr/storage"
)

// inPlaceCollectible reports whether a chain reading src values and writing
// dst values can reuse the source allocation. After every merge inputs the
// chain yields at most expand outputs, so the write cursor never passes the
// read cursor when src*merge >= dst*expand.
func inPlaceCollectible(src, dst *typeinfo.Info, merge, expand int) bool {
	if src.IsZeroSized() || dst.IsZeroSized() || src.Align != dst.Align {
		return false
	}
	// the GC reads the memory with the source's pointer map
	if !typeinfo.SameGCShape(src, dst) {
		return false
	}
	if merge <= 0 || expand <= 0 {
		return false
	}
	hi, in := bits.Mul64(uint64(src.Size), uint64(merge))
	if hi != 0 {
		return false
	}
	hi, out := bits.Mul64(uint64(dst.Size), uint64(expand))
	if hi != 0 {
		return false
	}
	return in >= out
}

// needsRealloc reports whether an allocation of size bytes must be shrunk
// before it can be described as an array of dstSize values.
func needsRealloc(srcSize, dstSize, size uintptr) bool {
	if srcSize%dstSize == 0 && size%srcSize == 0 {
		return false
	}
	return size%dstSize != 0
}

// collectPhase tracks which guard owns the allocation during an in-place
// collect.
type collectPhase int

const (
	phaseWriting collectPhase = iota
	phaseDroppingSource
	phaseDone
)

// collectInPlace drives it, writing every item back into the allocation of
// the IntoIter at the root of the chain, and turns that allocation into the
// result.
func collectInPlace[U any](it Iterator[U], src inPlaceSrc) *DynArr[U] {
	srcInfo, dstInfo := src.elemInfo(), typeinfo.Of[U]()
	p := src.parts()
	src.takeStorage()

	dstCap := int(p.handle.Size / dstInfo.Size)
	srcLayout := storage.Layout{Size: p.handle.Size, Align: srcInfo.Align, Elem: srcInfo.Type}

	dst := inPlaceDrop[U]{base: p.base}
	var moved dstDataSrcBufDrop[U]
	phase := phaseWriting
	defer func() {
		switch phase {
		case phaseWriting:
			// a callback panicked: the written items, the rest of the chain
			// and the allocation all go
			cleanupOrAbort(func() {
				defer func() {
					if !p.handle.IsDangling() {
						p.storage.Deallocate(p.handle, srcLayout)
					}
				}()
				defer it.Drop()
				dst.drop()
			})
		case phaseDroppingSource:
			moved.drop()
		}
	}()

	srcEnd := uintptr(p.end) * srcInfo.Size
	if ra, ok := randomAccessOf[U](it); ok {
		writeCounted(ra, &dst)
	} else {
		writeAll(it, &dst, src, srcInfo.Size, srcEnd)
	}

	if pos := src.readPos(); pos != p.pos {
		if uintptr(dst.n)*dstInfo.Size > uintptr(pos)*srcInfo.Size {
			panic(fmt.Sprintf("dynarr: in-place collect wrote %d items past read position %d", dst.n, pos))
		}
	} else if ra, ok := randomAccessOf[U](it); ok {
		// the counted path read by index; nothing is left for the source
		src.advance(ra.size())
	}

	moved = dstDataSrcBufDrop[U]{
		base:    p.base,
		n:       dst.n,
		handle:  p.handle,
		storage: p.storage,
		layout:  srcLayout,
	}
	phase = phaseDroppingSource
	it.Drop()

	if !p.handle.IsDangling() && needsRealloc(srcInfo.Size, dstInfo.Size, p.handle.Size) {
		l, err := storage.ArrayLayout(dstInfo.Type, dstCap)
		if err != nil {
			abort("dynarr: in-place collect layout", zap.Error(err))
		}
		h, err := p.storage.Shrink(p.handle, l)
		if err != nil {
			abort("dynarr: in-place collect shrink failed", zap.Stringer("layout", l), zap.Error(err))
		}
		moved.handle = h
		moved.base = h.Ptr
		moved.layout = l
		if h.IsDangling() {
			moved.base = danglingPtr()
		}
	}
	if dstInfo.HasPointers() && dstCap > moved.n {
		// consumed source items leave stale copies behind the written ones
		clear(unsafe.Slice((*U)(moved.base), dstCap)[moved.n:])
	}

	out := FromRawParts[U](moved.handle, p.storage, p.strategy, moved.n)
	phase = phaseDone
	return out
}

// writeAll is the general path: it pulls items one at a time.
func writeAll[U any](it Iterator[U], dst *inPlaceDrop[U], src inPlaceSrc, srcSize, srcEnd uintptr) {
	dstSize := elemSize[U]()
	for {
		v, ok := it.Next()
		if !ok {
			return
		}
		if debugAssertions {
			end := uintptr(dst.n+1) * dstSize
			if end > srcEnd || end > uintptr(src.readPos())*srcSize {
				panic("dynarr: in-place collect write cursor passed the read cursor")
			}
		}
		*dst.slot(dst.n) = v
		dst.n++
	}
}

// writeCounted is the counted path for chains computed by index.
func writeCounted[U any](ra trustedRandomAccess[U], dst *inPlaceDrop[U]) {
	n := ra.size()
	for i := 0; i < n; i++ {
		v := ra.getUnchecked(i)
		*dst.slot(i) = v
		dst.n = i + 1
	}
}

package dynarr

import (
	"unsafe"

	"github.com/pavanmanishd/dynarr/storage"
)

// inPlaceDrop owns the items written so far into a reused allocation. It is
// the write guard of an in-place collect: while the chain is being driven,
// base[0, n) are initialized values of U.
type inPlaceDrop[U any] struct {
	base unsafe.Pointer
	n    int
}

func (g *inPlaceDrop[U]) slot(i int) *U {
	return (*U)(unsafe.Add(g.base, uintptr(i)*elemSize[U]()))
}

func (g *inPlaceDrop[U]) written() []U {
	return unsafe.Slice((*U)(g.base), g.n)
}

// drop runs while unwinding.
func (g *inPlaceDrop[U]) drop() {
	dropSliceOrAbort(g.written())
}

// dstDataSrcBufDrop owns both the collected items and the source allocation
// once the chain is exhausted but before the result array exists.
type dstDataSrcBufDrop[U any] struct {
	base    unsafe.Pointer
	n       int
	handle  storage.Handle
	storage storage.Storage
	layout  storage.Layout
}

// drop runs while unwinding from a panic in the source's Drop.
func (g *dstDataSrcBufDrop[U]) drop() {
	defer g.storage.Deallocate(g.handle, g.layout)
	dropSliceOrAbort(unsafe.Slice((*U)(g.base), g.n))
}

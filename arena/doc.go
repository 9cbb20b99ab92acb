// Package arena implements a chunked bump allocator (memory arena) used as a
// backing store for pointer-free array buffers.
//
// # Overview
//
// An arena hands out regions carved sequentially from large chunks. Regions
// are normally reclaimed in bulk with Reset or Release, but the most recent
// region of the current chunk is special: it can be resized in place and
// given back early. Growable arrays take advantage of this, since the array
// that grew last is usually the one that grows next:
//
//	a := arena.NewArena(0) // Use default chunk size
//	defer a.Release()
//
//	buf := a.AllocAligned(64, 8)
//	if bigger, ok := a.Resize(buf, 128); ok {
//		buf = bigger // extended without copying
//	}
//	a.Free(buf) // most recent region, so the bytes are reusable immediately
//
// # Thread Safety
//
// The basic Arena type is not thread-safe. For concurrent access, use SafeArena.
//
// # Important Notes
//
//   - Allocated memory is only valid while the arena exists and until Reset
//   - Chunks are not scanned by the garbage collector: never store Go
//     pointers, strings, slices, maps or interfaces in arena memory
//   - Memory is not zeroed after Reset unless using AllocZeroed
//
// # Metrics and Monitoring
//
//	m := a.Metrics()
//	fmt.Printf("Utilization: %.2f%%\n", m.Utilization*100)
//	fmt.Printf("Resized in place: %d\n", m.Resized)
package arena

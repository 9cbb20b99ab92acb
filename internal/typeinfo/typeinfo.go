// Package typeinfo caches the layout facts the array code needs about an
// element type: size, alignment, where the GC expects pointers, and whether
// elements must be dropped.
package typeinfo

import (
	"reflect"
	"slices"
	"sync"
	"unsafe"
)

// Dropper is implemented by values that own resources which must be released
// exactly once when the value is discarded by a container.
type Dropper interface {
	Drop()
}

var dropperType = reflect.TypeFor[Dropper]()

// Info describes one Go type.
type Info struct {
	Type  reflect.Type
	Size  uintptr
	Align uintptr
	// PtrOffsets lists the byte offsets of every pointer word in the type.
	PtrOffsets []uintptr
	// NeedsDrop is set when values of the type implement Dropper, or may do so
	// dynamically (interface types).
	NeedsDrop bool
}

// HasPointers reports whether the GC must scan memory holding this type.
func (i *Info) HasPointers() bool {
	return len(i.PtrOffsets) > 0
}

// IsZeroSized reports whether the type occupies no memory.
func (i *Info) IsZeroSized() bool {
	return i.Size == 0
}

var cache sync.Map // reflect.Type -> *Info

// Of returns the cached Info for T.
func Of[T any]() *Info {
	return OfType(reflect.TypeFor[T]())
}

// OfType returns the cached Info for t.
func OfType(t reflect.Type) *Info {
	if v, ok := cache.Load(t); ok {
		return v.(*Info)
	}
	info := &Info{
		Type:       t,
		Size:       t.Size(),
		Align:      uintptr(t.Align()),
		PtrOffsets: pointerOffsets(t, 0, nil),
		NeedsDrop:  t.Kind() == reflect.Interface || t.Implements(dropperType),
	}
	v, _ := cache.LoadOrStore(t, info)
	return v.(*Info)
}

// SameGCShape reports whether memory typed as a can be reinterpreted as b
// without lying to the garbage collector.
func SameGCShape(a, b *Info) bool {
	if !a.HasPointers() && !b.HasPointers() {
		return true
	}
	return a.Size == b.Size && slices.Equal(a.PtrOffsets, b.PtrOffsets)
}

func pointerOffsets(t reflect.Type, base uintptr, out []uintptr) []uintptr {
	const word = unsafe.Sizeof(uintptr(0))
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan,
		reflect.Func, reflect.String, reflect.Slice:
		return append(out, base)
	case reflect.Interface:
		return append(out, base, base+word)
	case reflect.Array:
		if t.Len() == 0 {
			return out
		}
		elem := pointerOffsets(t.Elem(), 0, nil)
		if len(elem) == 0 {
			return out
		}
		for i := 0; i < t.Len(); i++ {
			off := base + uintptr(i)*t.Elem().Size()
			for _, p := range elem {
				out = append(out, off+p)
			}
		}
		return out
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			out = pointerOffsets(f.Type, base+f.Offset, out)
		}
		return out
	default:
		return out
	}
}

package dynarr

import (
	"github.com/pavanmanishd/dynarr/internal/typeinfo"
)

// Dropper is implemented by element types that own resources. Arrays and
// iterators call Drop exactly once on every element they discard.
type Dropper = typeinfo.Dropper

func needsDrop[T any]() bool {
	return typeinfo.Of[T]().NeedsDrop
}

func dropValue[T any](v T) {
	if d, ok := any(v).(Dropper); ok {
		d.Drop()
	}
}

// dropValueOrAbort drops v on an unwinding path.
func dropValueOrAbort[T any](v T) {
	defer abortOnPanic("dynarr: panic while dropping an element during unwind")
	dropValue(v)
}

// dropSlice drops every element of s and clears the slots. If one Drop
// panics the remaining elements are still dropped before the panic
// continues; a second panic aborts.
func dropSlice[T any](s []T) {
	if len(s) == 0 {
		return
	}
	if !needsDrop[T]() {
		clear(s)
		return
	}
	i := 0
	defer func() {
		if i < len(s) {
			dropSliceOrAbort(s[i+1:])
			clear(s)
		}
	}()
	for ; i < len(s); i++ {
		dropValue(s[i])
	}
	clear(s)
}

// dropSliceOrAbort drops s on an unwinding path.
func dropSliceOrAbort[T any](s []T) {
	defer abortOnPanic("dynarr: panic while dropping elements during unwind")
	if !needsDrop[T]() {
		return
	}
	for _, v := range s {
		dropValue(v)
	}
}

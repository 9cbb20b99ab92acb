package dynarr

import (
	"math"
	"math/bits"
)

// ReserveStrategy decides how much capacity an array grows to when it runs
// out of room.
type ReserveStrategy interface {
	// Calculate returns the new capacity for an array holding cur elements
	// that needs room for at least required. It returns false when the
	// result cannot be represented.
	Calculate(cur, required int) (int, bool)
}

// DefaultStrategy is used by arrays created without WithStrategy.
var DefaultStrategy ReserveStrategy = ThreeHalves{}

// ThreeHalves grows the capacity by half of itself until it fits. It keeps
// peak memory lower than doubling.
type ThreeHalves struct{}

func (ThreeHalves) Calculate(cur, required int) (int, bool) {
	c := max(cur, 1)
	for c < required {
		if c > math.MaxInt/2 {
			return required, true
		}
		c = (c << 1) - (c >> 1)
	}
	return c, true
}

// DoubleOrMin doubles the capacity, or jumps straight to the required
// capacity when doubling is not enough.
type DoubleOrMin struct{}

func (DoubleOrMin) Calculate(cur, required int) (int, bool) {
	if cur > math.MaxInt/2 {
		return required, true
	}
	return max(cur*2, required), true
}

// Pow2 rounds the required capacity up to a power of two.
type Pow2 struct{}

func (Pow2) Calculate(_, required int) (int, bool) {
	if required <= 1 {
		return 1, true
	}
	shift := bits.Len(uint(required - 1))
	if shift >= bits.UintSize-1 {
		return 0, false
	}
	return 1 << shift, true
}

package format

import "math/bits"

// IsPow2 reports whether n is a non-zero power of two.
func IsPow2(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// AlignUp returns n rounded up to a multiple of align. align must be a power
// of two. ok is false when the result does not fit in 32 bits.
//
// Example:
//
//	AlignUp(1, 8)  = 8
//	AlignUp(8, 8)  = 8
//	AlignUp(9, 16) = 16
func AlignUp(n, align uint32) (uint32, bool) {
	mask := align - 1
	sum, carry := bits.Add32(n, mask, 0)
	if carry != 0 {
		return 0, false
	}
	return sum &^ mask, true
}

// IsAligned reports whether n is a multiple of align (a power of two).
func IsAligned(n, align uint32) bool {
	return n&(align-1) == 0
}

// IsGranular reports whether n is a multiple of Granularity.
func IsGranular(n uint32) bool {
	return n&GranularityMask == 0
}

// Package abi holds the checked size arithmetic shared by layout
// construction and the WIT type system.
package abi

import "math"

func SafeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

func SafeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// AlignToChecked is AlignTo reporting overflow instead of wrapping.
func AlignToChecked(offset, align uint32) (uint32, bool) {
	if align == 0 {
		return offset, true
	}
	sum, ok := SafeAddU32(offset, align-1)
	if !ok {
		return 0, false
	}
	return sum &^ (align - 1), true
}

// DiscriminantSize: 1 byte for <=256 cases, 2 for <=65536, else 4.
func DiscriminantSize(numCases int) uint32 {
	if numCases <= 256 {
		return 1
	} else if numCases <= 65536 {
		return 2
	}
	return 4
}

// SPDX-License-Identifier: MIT
/*
Package bitint holds the power-of-two helpers used to size analyser FFTs
and to validate configured frame sizes. All functions are O(1), allocate
nothing and are safe to call from the audio loop.

NextPowerOfTwo subtracts one before taking the bit length so that an
exact power of two maps to itself:

	8 -> 7 (0111) -> Len 3 -> 1<<3 = 8
	9 -> 8 (1000) -> Len 4 -> 1<<4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size, and 1 for
// size <= 0.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has one bit set, so clearing its lowest set bit with n&(n-1) leaves zero.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Package core provides the storage primitives shared by the mixer and its
// kernels: lane padding, cache-aligned int16 vectors and a bump arena that
// lays out a whole mixer tree in one allocation.
//
// Vectors handed to the kernels always have a length that is a multiple of
// the active lane width, so the inner loops read whole lane blocks and never
// handle a tail. Padding slots are zero and contribute nothing to a dot
// product.
package core

// AlignSize rounds size up to the specified alignment boundary.
// align must be a power of two.
func AlignSize(size, align int) int {
	return (size + align - 1) &^ (align - 1)
}

// PadTo rounds n up to a multiple of width, the number of int16 lanes the
// active kernel processes at once. width must be a power of two.
func PadTo(n, width int) int {
	if width <= 0 || width&(width-1) != 0 {
		panic("core: lane width must be a positive power of two")
	}
	return AlignSize(n, width)
}

// AlignCacheLine rounds an int16 element count up so the following vector
// also starts on a cache line.
func AlignCacheLine(n int) int {
	return AlignSize(n, int16PerLine)
}

// IsPadded reports whether n is a whole number of lane blocks.
func IsPadded(n, width int) bool {
	return n&(width-1) == 0
}

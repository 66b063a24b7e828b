package core

import "unsafe"

const (
	// CacheLineSize is a common cache line size, typically 64 bytes.
	// Weight rows and input vectors start on this boundary so that a
	// 256-bit lane block never straddles two lines.
	CacheLineSize = 64

	// int16PerLine is the number of int16 lanes held by one cache line.
	int16PerLine = CacheLineSize / 2
)

// IsAligned checks if a pointer (represented as a uintptr) is aligned to a cache line boundary.
func IsAligned(addr uintptr) bool {
	return addr%CacheLineSize == 0
}

// AlignedSize calculates the size rounded up to the nearest cache line multiple.
func AlignedSize(size uintptr) uintptr {
	return (size + uintptr(CacheLineSize-1)) & ^uintptr(CacheLineSize-1)
}

// AlignedInt16s allocates an int16 slice of length n whose backing array
// starts on a cache line boundary. All elements are zero.
func AlignedInt16s(n int) []int16 {
	if n == 0 {
		return nil
	}
	// Over-allocate by one line, then slide the window to the boundary.
	buf := make([]int16, n+int16PerLine-1)

	ptr := uintptr(unsafe.Pointer(&buf[0]))
	offset := 0
	if mod := ptr % CacheLineSize; mod != 0 {
		offset = int((CacheLineSize - mod) / 2)
	}
	return buf[offset : offset+n : offset+n]
}

// IsInt16sAligned reports whether s starts on a cache line boundary.
func IsInt16sAligned(s []int16) bool {
	if len(s) == 0 {
		return true
	}
	return IsAligned(uintptr(unsafe.Pointer(&s[0])))
}

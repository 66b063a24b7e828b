package core

import (
	"fmt"
	"unsafe"
)

// ArenaRegion records one allocation handed out by the Arena.
type ArenaRegion struct {
	Offset int
	Size   int
	Name   string
}

// Arena manages a single pre-allocated int16 buffer for a mixer tree.
// Every node takes its weight matrix and input vector from the arena, so a
// tree built bottom-up sits in one contiguous, cache-aligned block.
// Not safe for concurrent use.
type Arena struct {
	buffer  []int16
	offset  int
	regions []ArenaRegion
}

// NewArena allocates an arena holding capacity int16 elements.
func NewArena(capacity int) (*Arena, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cannot create arena with capacity %d", capacity)
	}
	return &Arena{buffer: AlignedInt16s(AlignCacheLine(capacity))}, nil
}

// Int16s carves n zeroed elements from the arena. The returned slice starts
// on a cache line boundary and has no spare capacity.
func (a *Arena) Int16s(n int, name string) ([]int16, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid arena request %q of %d elements", name, n)
	}
	start := AlignCacheLine(a.offset)
	end := start + n
	if end > len(a.buffer) {
		return nil, fmt.Errorf("arena exhausted: %q requested %d, available %d", name, n, a.Remaining())
	}
	out := a.buffer[start:end:end]
	clear(out)
	a.offset = end
	a.regions = append(a.regions, ArenaRegion{Offset: start, Size: n, Name: name})
	return out, nil
}

// Reset rewinds the bump allocator. Slices handed out earlier alias the
// memory returned by later requests.
func (a *Arena) Reset() {
	a.offset = 0
	a.regions = a.regions[:0]
}

// Regions returns the allocations made since the last Reset.
func (a *Arena) Regions() []ArenaRegion {
	return a.regions
}

// TotalSize returns the arena capacity in elements.
func (a *Arena) TotalSize() int {
	return len(a.buffer)
}

// Used returns the number of elements consumed, alignment gaps included.
func (a *Arena) Used() int {
	return a.offset
}

// Remaining returns the elements still available after alignment.
func (a *Arena) Remaining() int {
	start := AlignCacheLine(a.offset)
	if start >= len(a.buffer) {
		return 0
	}
	return len(a.buffer) - start
}

// Bytes returns the arena footprint in bytes.
func (a *Arena) Bytes() uintptr {
	return uintptr(len(a.buffer)) * unsafe.Sizeof(int16(0))
}

package codec

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/sbl8/ctxmix/coder"
)

// Stats describes one compression or decompression run.
type Stats struct {
	BytesIn  uint64
	BytesOut uint64

	// Bits is the number of modelled bits.
	Bits uint64
	// IdealBits is the summed information content -log2(p) of the coded
	// bits under the predictor, the length an exact coder would reach.
	IdealBits float64

	PendingRuns uint64
	MaxPending  uint32

	Duration time.Duration
}

// bitCost[p] is -log2(p/4096), the information content in bits of an
// outcome predicted with 12-bit probability p. Entry 0 is clamped to the
// cost of 1/4096.
var bitCost [4097]float32

func init() {
	for p := range bitCost {
		bitCost[p] = -math32.Log2(float32(max(p, 1)) / 4096)
	}
}

// observe adds the cost of coding bit with 12-bit probability p1 of a one.
// Per-bit costs come from a float32 table; the total is kept in float64 so
// long streams do not lose the small terms.
func (s *Stats) observe(p1, bit int) {
	if bit == 0 {
		p1 = 4096 - p1
	}
	s.IdealBits += float64(bitCost[min(max(p1, 0), 4096)])
	s.Bits++
}

func (s *Stats) addCoder(cs coder.Stats) {
	s.PendingRuns += cs.PendingRuns
	s.MaxPending = max(s.MaxPending, cs.MaxPending)
}

// Ratio returns output size over input size.
func (s Stats) Ratio() float64 {
	if s.BytesIn == 0 {
		return 0
	}
	return float64(s.BytesOut) / float64(s.BytesIn)
}

// BitsPerByte returns coded bits per original byte for a compression run.
func (s Stats) BitsPerByte() float64 {
	if s.BytesIn == 0 {
		return 0
	}
	return 8 * float64(s.BytesOut) / float64(s.BytesIn)
}

// Overhead returns the coded payload size relative to IdealBits, excluding
// the header. A value of 1.01 means one percent above the ideal length.
func (s Stats) Overhead(headerBytes int) float64 {
	if s.IdealBits == 0 {
		return 0
	}
	return 8 * float64(int(s.BytesOut)-headerBytes) / s.IdealBits
}

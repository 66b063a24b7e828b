package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitCostTable(t *testing.T) {
	for p := 1; p <= 4096; p++ {
		want := -math.Log2(float64(p) / 4096)
		assert.InDelta(t, want, float64(bitCost[p]), 1e-5, "p=%d", p)
	}
	assert.Equal(t, bitCost[1], bitCost[0], "zero probability costs as much as 1/4096")
	assert.InDelta(t, 0, float64(bitCost[4096]), 1e-7)
}

func TestObserve(t *testing.T) {
	var s Stats
	s.observe(1024, 1) // p(1) = 1/4: two bits
	s.observe(1024, 0) // p(0) = 3/4
	s.observe(0, 1)    // clamped to 1/4096: twelve bits
	assert.Equal(t, uint64(3), s.Bits)
	assert.InDelta(t, 2+math.Log2(4.0/3)+12, s.IdealBits, 1e-5)
}

func TestIdealBitsKeepGrowingOnLongStreams(t *testing.T) {
	var s Stats
	const n = 1<<24 + 1000
	for range n {
		s.observe(2048, 1)
	}
	assert.InDelta(t, float64(n), s.IdealBits, float64(n)*1e-6, "a float32 total would stop at 1<<24")
}

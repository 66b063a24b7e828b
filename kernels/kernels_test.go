package kernels

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomLanes returns n int16 values. Half the draws come from the
// stretched range the mixer normally sees, the rest from the full int16
// range so saturation and wrap-around paths are exercised too.
func randomLanes(rng *rand.Rand, n int) []int16 {
	s := make([]int16, n)
	for i := range s {
		if rng.Intn(2) == 0 {
			s[i] = int16(rng.Intn(2*StretchMax+1) - StretchMax)
		} else {
			s[i] = int16(rng.Intn(1<<16) - 1<<15)
		}
	}
	return s
}

// Go reference for dot: a plain loop written independently of the kernels.
func dotGo(t, w []int16) int32 {
	var sum int32
	for i := 0; i+1 < len(t); i += 2 {
		p := int32(t[i])*int32(w[i]) + int32(t[i+1])*int32(w[i+1])
		sum += p >> 8
	}
	return sum
}

// Padded lengths valid for every variant.
var testSizes = []int{0, 16, 32, 48, 64, 160, 1024}

func TestDotCrossVariant(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range testSizes {
		for trial := 0; trial < 20; trial++ {
			tx := randomLanes(rng, n)
			wx := randomLanes(rng, n)
			want := dotGo(tx, wx)
			for _, v := range Variants() {
				got := Get(v).Dot(tx, wx)
				require.Equal(t, want, got, "variant %s n=%d trial=%d", v, n, trial)
			}
		}
	}
}

func TestTrainCrossVariant(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	errs := []int{0, 1, -1, 7, -4096, 16383, -16384, 32767, -32768, 1 << 20, -(1 << 20)}
	for _, n := range testSizes {
		for _, e := range errs {
			tx := randomLanes(rng, n)
			base := randomLanes(rng, n)

			want := slices.Clone(base)
			TrainReference(tx, want, e)

			for _, v := range Variants() {
				got := slices.Clone(base)
				Get(v).Train(tx, got, e)
				require.Equal(t, want, got, "variant %s n=%d err=%d", v, n, e)
			}
		}
	}
}

func TestZeroPaddingNeutral(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, v := range Variants() {
		k := Get(v)
		tx := randomLanes(rng, 32)
		wx := randomLanes(rng, 32)
		want := k.Dot(tx, wx)

		for extra := 1; extra <= 4; extra++ {
			pad := extra * 16
			tp := append(slices.Clone(tx), make([]int16, pad)...)
			wp := append(slices.Clone(wx), randomLanes(rng, pad)...)
			assert.Equal(t, want, k.Dot(tp, wp), "variant %s padded by %d (zero inputs)", v, pad)

			wz := append(slices.Clone(wx), make([]int16, pad)...)
			tr := append(slices.Clone(tx), randomLanes(rng, pad)...)
			assert.Equal(t, want, k.Dot(tr, wz), "variant %s padded by %d (zero weights)", v, pad)
		}
	}
}

func TestZeroPaddingUntouchedByTraining(t *testing.T) {
	for _, v := range Variants() {
		k := Get(v)
		tx := make([]int16, 16)
		wx := make([]int16, 16)
		tx[0] = 2047
		k.Train(tx, wx, 16383)
		assert.Equal(t, int16(512), wx[0], "variant %s", v)
		for i := 1; i < len(wx); i++ {
			assert.Zero(t, wx[i], "variant %s lane %d", v, i)
		}
	}
}

func TestDotKnownValues(t *testing.T) {
	tests := []struct {
		name string
		t, w []int16
		want int32
	}{
		{"single input", []int16{2047, 0}, []int16{512, 0}, 4094},
		{"pair shifted together", []int16{1, 1}, []int16{128, 128}, 1},
		{"pairs shifted separately", []int16{1, 0, 1, 0}, []int16{128, 0, 128, 0}, 0},
		{"negative rounds down", []int16{-1, 0}, []int16{1, 0}, -1},
		{"madd wrap", []int16{math.MinInt16, math.MinInt16}, []int16{math.MinInt16, math.MinInt16}, math.MinInt32 >> 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dotScalar(tt.t, tt.w))
		})
	}
}

func TestTrainLaneSaturates(t *testing.T) {
	// 2t saturates before the multiply.
	assert.Equal(t, int16(math.MaxInt16), trainLane(math.MaxInt16, math.MaxInt16, math.MaxInt16))
	assert.Equal(t, int16(math.MinInt16), trainLane(math.MaxInt16, math.MinInt16, math.MinInt16))
	// Rounding: tiny products vanish.
	assert.Equal(t, int16(100), trainLane(2047, 100, 7))
	assert.Equal(t, int16(101), trainLane(2047, 100, 32))
}

func TestLengthChecks(t *testing.T) {
	for _, v := range Variants() {
		k := Get(v)
		if k.Width > 2 {
			assert.Panics(t, func() { k.Dot(make([]int16, 2), make([]int16, 2)) }, "variant %s", v)
		}
		assert.Panics(t, func() { k.Dot(make([]int16, 3), make([]int16, 3)) }, "variant %s", v)
		assert.Panics(t, func() { k.Train(make([]int16, 16), make([]int16, 8), 1) }, "variant %s", v)
	}
}

func TestVariantMetadata(t *testing.T) {
	for _, v := range Variants() {
		k := Get(v)
		assert.Equal(t, v, k.Variant)
		assert.Equal(t, v.Width(), k.Width)
		parsed, err := ParseVariant(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, parsed)
	}

	auto, err := ParseVariant("auto")
	require.NoError(t, err)
	assert.Equal(t, Best(), auto)

	_, err = ParseVariant("avx512")
	assert.Error(t, err)
	assert.Panics(t, func() { Get(numVariants) })
	assert.Equal(t, "variant(9)", Variant(9).String())
}

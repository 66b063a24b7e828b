package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/ctxmix/kernels"
)

func TestCounterAdapts(t *testing.T) {
	c := NewCounter()
	assert.Equal(t, 2048, c.P12())
	for i := 0; i < 200; i++ {
		c.Update(1, 4)
	}
	assert.Greater(t, c.P12(), 4000)
	assert.LessOrEqual(t, c.P12(), 4095)
	for i := 0; i < 200; i++ {
		c.Update(0, 4)
	}
	assert.Less(t, c.P12(), 100)
}

func testOptions() Options {
	o := DefaultOptions()
	o.TableBits = 12
	o.Orders = []int{0, 1, 2}
	return o
}

// cost feeds data through p and returns the ideal code length in bits.
func cost(p *Predictor, data []byte) float64 {
	bits := 0.0
	for _, c := range data {
		for i := 7; i >= 0; i-- {
			bit := int(c>>i) & 1
			pr := float64(p.P()) / 4096
			if bit == 0 {
				pr = 1 - pr
			}
			bits -= math.Log2(max(pr, 1.0/4096))
			p.Update(bit)
		}
	}
	return bits
}

func TestPredictorLearnsRepetition(t *testing.T) {
	p, err := New(testOptions(), nil)
	require.NoError(t, err)

	block := []byte("the quick brown fox jumps over the lazy dog. ")
	first := cost(p, block)
	var last float64
	for i := 0; i < 30; i++ {
		last = cost(p, block)
	}
	assert.Less(t, last, first/4, "repeated text should become cheap")
	assert.Equal(t, uint64(31*len(block)), p.Bytes())
	assert.Zero(t, p.Shared().Updates.Pending())
}

func TestPredictorIsDeterministic(t *testing.T) {
	data := []byte("abracadabra, abracadabra! 0123456789 abracadabra")
	trace := func(v kernels.Variant) []int {
		o := testOptions()
		o.Variant = v
		p, err := New(o, nil)
		require.NoError(t, err)
		var out []int
		for _, c := range data {
			for i := 7; i >= 0; i-- {
				out = append(out, p.P())
				p.Update(int(c>>i) & 1)
			}
		}
		return out
	}
	want := trace(kernels.Scalar)
	for _, v := range kernels.Variants() {
		assert.Equal(t, want, trace(v), "variant %s", v)
	}
}

func TestPredictorWithArena(t *testing.T) {
	o := testOptions()
	o.UseArena = true
	p, err := New(o, nil)
	require.NoError(t, err)
	require.NotNil(t, p.Shared().Arena)
	assert.Len(t, p.Shared().Arena.Regions(), 4)
	assert.Equal(t, 2, p.Mixer().Nodes())
	assert.Equal(t, len(o.Orders)+1, p.Mixer().Inputs())

	cost(p, []byte("arena"))
	assert.Equal(t, uint64(5), p.Bytes())
}

func TestPredictorCallOrder(t *testing.T) {
	p, err := New(testOptions(), nil)
	require.NoError(t, err)
	assert.Panics(t, func() { p.Update(1) })
	p.P()
	assert.Panics(t, func() { p.P() })
}

func TestOptionsValidation(t *testing.T) {
	o := testOptions()
	o.Orders = nil
	o.TableBits = 40
	o.CounterRate = 0
	o.ScaleFactor = 0
	_, err := New(o, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoOrders)
	assert.Contains(t, err.Error(), "table bits 40")
	assert.Contains(t, err.Error(), "counter rate 0")
	assert.Contains(t, err.Error(), "scale factors")

	o = testOptions()
	o.Orders = []int{1, 9}
	_, err = New(o, nil)
	assert.ErrorContains(t, err, "order 9")
}

func TestOptionsRejectUnusableMixerSettings(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Options)
		want string
	}{
		{"zero rate", func(o *Options) { o.LearningRate = 0 }, "must be positive"},
		{"zero leaf floor", func(o *Options) { o.LeafFloor = 0 }, "must be positive"},
		{"negative internal floor", func(o *Options) { o.InternalFloor = -1 }, "must be positive"},
		{"rate below internal floor", func(o *Options) { o.LearningRate = o.InternalFloor - 1 }, "below a floor"},
		{"too many orders", func(o *Options) { o.Orders = make([]int, MaxOrders+1) }, "exceed the limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOptions()
			tt.edit(&o)
			assert.NotPanics(t, func() {
				_, err := New(o, nil)
				assert.ErrorContains(t, err, tt.want)
			})
		})
	}

	o := testOptions()
	o.Orders = make([]int, MaxOrders)
	_, err := New(o, nil)
	assert.NoError(t, err, "the limit itself is allowed")
}

// Package mixer implements the online-trained logistic mixing network.
//
// A Mixer combines stretched predictions (inputs) into one 12-bit
// probability. It holds m weight rows; each prediction round the caller
// adds inputs, then selects one row per context set with Set or Skip. A
// node with s > 1 context sets owns a combiner node that mixes the s
// per-set outputs, forming a two-level tree; with s == 1 the node is a leaf
// and returns its single set's output directly.
//
// Every P registers the node with the shared UpdateBroadcaster. When the
// coded bit is known, Shared.Update notifies the nodes in prediction order
// and each trains the rows it used. Exactly one update must follow every
// prediction.
package mixer

import (
	"fmt"
	"math"
	"slices"

	"github.com/sbl8/ctxmix/core"
	"github.com/sbl8/ctxmix/kernels"
)

// skipped marks a context set that contributes nothing this round.
const skipped = math.MaxUint32

// Mixer is one node of a mixing network.
type Mixer struct {
	sh     *Shared
	kernel kernels.Kernel

	inputs int // requested input count
	n      int // inputs padded to the kernel width
	m      int // weight rows
	s      int // context sets per round

	tx []int16 // current inputs
	wx []int16 // m rows of n weights
	nx int

	cxt         []uint32 // selected row per set, or skipped
	rates       []int
	pr          []int // squashed output per set
	numContexts int
	base        int

	scaleFactor int
	floor       int

	combiner *Mixer
}

// New builds a node with n inputs, m weight rows and s context sets. For
// s > 1 it also builds the combiner that mixes the s outputs. n, m and s
// must be positive.
func New(sh *Shared, n, m, s int, opts ...Option) *Mixer {
	if sh == nil {
		panic("mixer: nil shared context")
	}
	if n <= 0 || m <= 0 || s <= 0 {
		panic(fmt.Sprintf("mixer: invalid shape n=%d m=%d s=%d", n, m, s))
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.validate()

	k := kernels.Get(sh.Variant)
	mx := &Mixer{
		sh:     sh,
		kernel: k,
		inputs: n,
		n:      core.PadTo(n, k.Width),
		m:      m,
		s:      s,
		cxt:    make([]uint32, s),
		rates:  make([]int, s),
		pr:     make([]int, s),
	}
	mx.tx = mx.alloc(mx.n, "inputs")
	mx.wx = mx.alloc(mx.n*m, "weights")
	for i := range s {
		mx.rates[i] = o.rate
		mx.pr[i] = 2048
	}

	mx.floor = o.leafFloor
	if s > 1 {
		mx.floor = o.internalFloor
		mx.combiner = New(sh, s+o.promoted, 1, 1,
			WithLearningRate(o.rate), WithFloors(o.leafFloor, o.internalFloor))
	}

	sh.Logger.Debug("mixer node created",
		"inputs", n, "padded", mx.n, "rows", m, "sets", s,
		"variant", k.Variant.String(), "combiner", mx.combiner != nil)
	return mx
}

func (mx *Mixer) alloc(n int, name string) []int16 {
	if mx.sh.Arena == nil {
		return core.AlignedInt16s(n)
	}
	buf, err := mx.sh.Arena.Int16s(n, name)
	if err != nil {
		mx.sh.Logger.Warn("arena allocation failed, using heap", "region", name, "err", err)
		return core.AlignedInt16s(n)
	}
	return buf
}

// Add appends a stretched input. x must fit in an int16 and the node must
// have room for it.
func (mx *Mixer) Add(x int) {
	if mx.nx >= mx.inputs {
		panic(fmt.Sprintf("mixer: more than %d inputs", mx.inputs))
	}
	if x != int(int16(x)) {
		panic(fmt.Sprintf("mixer: input %d overflows int16", x))
	}
	mx.tx[mx.nx] = int16(x)
	mx.nx++
}

// Set selects row base+cx for the next context set, where rng is the number
// of rows the set spans, and advances base past them.
func (mx *Mixer) Set(cx, rng int) {
	mx.checkSet(rng)
	if cx < 0 || cx >= rng {
		panic(fmt.Sprintf("mixer: context %d outside range %d", cx, rng))
	}
	mx.cxt[mx.numContexts] = uint32(mx.base + cx)
	mx.numContexts++
	mx.base += rng
}

// Skip reserves rng rows for the next context set without using any of
// them this round.
func (mx *Mixer) Skip(rng int) {
	mx.checkSet(rng)
	mx.cxt[mx.numContexts] = skipped
	mx.numContexts++
	mx.base += rng
}

func (mx *Mixer) checkSet(rng int) {
	if mx.numContexts >= mx.s {
		panic(fmt.Sprintf("mixer: more than %d context sets", mx.s))
	}
	if rng <= 0 || mx.base+rng > mx.m {
		panic(fmt.Sprintf("mixer: context range %d at base %d exceeds %d rows", rng, mx.base, mx.m))
	}
}

// Promote passes x straight to the combiner as an extra input. Without a
// combiner the value becomes one of this node's own inputs.
func (mx *Mixer) Promote(x int) {
	if mx.combiner != nil {
		mx.combiner.Add(x)
		return
	}
	mx.Add(x)
}

// SetScaleFactor sets this node's output scale to sf0 and the combiner's to
// sf1. Scales are 16.16 fixed point.
func (mx *Mixer) SetScaleFactor(sf0, sf1 int) {
	mx.scaleFactor = sf0
	if mx.combiner != nil {
		mx.combiner.SetScaleFactor(sf1, 0)
	}
}

// P returns the probability, in [0, 4095], that the next bit is 1 and
// subscribes the node for the matching update.
func (mx *Mixer) P() int {
	mx.sh.Updates.Subscribe(mx)
	if mx.scaleFactor <= 0 {
		panic("mixer: scale factor not set")
	}
	for mx.nx&(mx.kernel.Width-1) != 0 {
		mx.tx[mx.nx] = 0
		mx.nx++
	}

	if mx.combiner != nil {
		for i := 0; i < mx.numContexts; i++ {
			dp := 0
			if mx.cxt[i] != skipped {
				dp = mx.dot(mx.cxt[i])
			}
			mx.combiner.Add(dp)
			mx.pr[i] = kernels.Squash(dp)
		}
		mx.combiner.Set(0, 1)
		return mx.combiner.P()
	}

	if mx.numContexts == 0 {
		panic("mixer: no context selected")
	}
	dp := 0
	if mx.cxt[0] != skipped {
		dp = mx.dot(mx.cxt[0])
	}
	mx.pr[0] = kernels.Squash(dp)
	return mx.pr[0]
}

// dot returns the scaled and clamped output of one weight row.
func (mx *Mixer) dot(row uint32) int {
	dp := int64(mx.kernel.Dot(mx.tx[:mx.nx], mx.row(int(row))))
	dp = (dp * int64(mx.scaleFactor)) >> 16
	return kernels.ClampStretch(int(dp))
}

func (mx *Mixer) row(i int) []int16 {
	return mx.wx[i*mx.n : (i+1)*mx.n]
}

// Update trains every row used in the last round toward the bit in the
// shared context, then clears the round.
func (mx *Mixer) Update() {
	target := mx.sh.Y << kernels.ProbBits
	if mx.nx > 0 {
		for i := 0; i < mx.numContexts; i++ {
			if mx.cxt[i] == skipped {
				continue
			}
			err := target - mx.pr[i]
			if mx.rates[i] > mx.floor {
				mx.rates[i]--
			}
			mx.kernel.Train(mx.tx[:mx.nx], mx.row(int(mx.cxt[i])), (err*mx.rates[i])>>16)
		}
	}
	mx.reset()
}

func (mx *Mixer) reset() {
	mx.nx = 0
	mx.base = 0
	mx.numContexts = 0
}

// Inputs returns the number of inputs the node was built for.
func (mx *Mixer) Inputs() int { return mx.inputs }

// PaddedInputs returns the input count rounded up to the kernel width.
func (mx *Mixer) PaddedInputs() int { return mx.n }

// Contexts returns the number of weight rows.
func (mx *Mixer) Contexts() int { return mx.m }

// Sets returns the number of context sets per round.
func (mx *Mixer) Sets() int { return mx.s }

// Combiner returns the node mixing this node's outputs, or nil for a leaf.
func (mx *Mixer) Combiner() *Mixer { return mx.combiner }

// Variant returns the kernel variant the node trains with.
func (mx *Mixer) Variant() kernels.Variant { return mx.kernel.Variant }

// Nodes counts this node and every node it owns.
func (mx *Mixer) Nodes() int {
	if mx.combiner == nil {
		return 1
	}
	return 1 + mx.combiner.Nodes()
}

// Rate returns the current learning rate of context set i.
func (mx *Mixer) Rate(i int) int { return mx.rates[i] }

// Weights returns a copy of weight row i, padding included.
func (mx *Mixer) Weights(i int) []int16 {
	if i < 0 || i >= mx.m {
		panic(fmt.Sprintf("mixer: row %d outside %d rows", i, mx.m))
	}
	return slices.Clone(mx.row(i))
}

// Footprint returns the int16 storage a node built with New(n, m, s) and
// WithPromoted(promoted) takes from an arena when the kernel consumes width
// lanes per step.
func Footprint(n, m, s, width, promoted int) int {
	padded := core.PadTo(n, width)
	total := core.AlignCacheLine(padded) + core.AlignCacheLine(padded*m)
	if s > 1 {
		total += Footprint(s+promoted, 1, 1, width, 0)
	}
	return total
}

// Package model provides a reference bit predictor built on the mixer.
//
// The predictor keeps one hashed table of counters per context order. For
// every bit it looks up the counter selected by the last k bytes and the
// bits of the current byte seen so far, stretches each estimate and feeds
// them, with a bias input, to a mixer. The mixer selects its weight rows by
// the partial byte and by the previous byte, and a combiner merges the two.
package model

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sbl8/ctxmix/core"
	"github.com/sbl8/ctxmix/kernels"
	"github.com/sbl8/ctxmix/mixer"
)

// MaxOrder is the longest context the predictor can hash.
const MaxOrder = 8

// MaxOrders bounds how many context orders a predictor may use. Each order
// owns a table of 1<<TableBits counters.
const MaxOrders = 16

// bias is the constant input that lets a row learn an offset.
const bias = 256

// Options configures a Predictor.
type Options struct {
	Orders      []int // context lengths in bytes, each in [0, MaxOrder]
	TableBits   int   // log2 of counters per order
	CounterRate int   // counter adaptation shift

	Variant             kernels.Variant
	ScaleFactor         int
	CombinerScaleFactor int
	LearningRate        int
	LeafFloor           int
	InternalFloor       int
	UseArena            bool
}

// DefaultOptions returns the settings the command-line tools start from.
func DefaultOptions() Options {
	return Options{
		Orders:              []int{0, 1, 2, 3, 4, 6},
		TableBits:           18,
		CounterRate:         4,
		Variant:             kernels.Best(),
		ScaleFactor:         1024,
		CombinerScaleFactor: 1024,
		LearningRate:        mixer.MaxLearningRate,
		LeafFloor:           mixer.MinLearningRateLeaf,
		InternalFloor:       mixer.MinLearningRateInternal,
	}
}

var errNoOrders = errors.New("at least one context order is required")

func (o Options) check() error {
	var errs []error
	if len(o.Orders) == 0 {
		errs = append(errs, errNoOrders)
	}
	if len(o.Orders) > MaxOrders {
		errs = append(errs, fmt.Errorf("%d orders exceed the limit of %d", len(o.Orders), MaxOrders))
	}
	for _, k := range o.Orders {
		if k < 0 || k > MaxOrder {
			errs = append(errs, fmt.Errorf("order %d outside [0, %d]", k, MaxOrder))
		}
	}
	if o.TableBits < 8 || o.TableBits > 28 {
		errs = append(errs, fmt.Errorf("table bits %d outside [8, 28]", o.TableBits))
	}
	if o.CounterRate < 1 || o.CounterRate > 15 {
		errs = append(errs, fmt.Errorf("counter rate %d outside [1, 15]", o.CounterRate))
	}
	if o.ScaleFactor <= 0 || o.CombinerScaleFactor <= 0 {
		errs = append(errs, errors.New("scale factors must be positive"))
	}
	if o.LearningRate <= 0 || o.LeafFloor <= 0 || o.InternalFloor <= 0 {
		errs = append(errs, fmt.Errorf("learning rate %d and floors (leaf %d, internal %d) must be positive",
			o.LearningRate, o.LeafFloor, o.InternalFloor))
	} else if o.LearningRate < max(o.LeafFloor, o.InternalFloor) {
		errs = append(errs, fmt.Errorf("learning rate %d is below a floor (leaf %d, internal %d)",
			o.LearningRate, o.LeafFloor, o.InternalFloor))
	}
	return errors.Join(errs...)
}

// Predictor estimates the next bit of a byte stream.
type Predictor struct {
	opts Options
	sh   *mixer.Shared
	mx   *mixer.Mixer

	tables [][]Counter
	hashes []uint32 // per order, fixed for the current byte
	slots  []uint32 // counters read by the last P

	c0   int    // current byte with a leading 1 bit
	hist uint64 // previous bytes, most recent in the low byte
	pos  uint64

	predicted bool
}

// New builds a predictor. The returned predictor starts at the beginning of
// a stream; encoder and decoder must use identical options.
func New(o Options, logger *slog.Logger) (*Predictor, error) {
	if err := o.check(); err != nil {
		return nil, fmt.Errorf("model options: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	n := len(o.Orders) + 1
	const rows = 256 + 256
	shOpts := []mixer.SharedOption{mixer.WithVariant(o.Variant), mixer.WithLogger(logger)}
	if o.UseArena {
		arena, err := core.NewArena(mixer.Footprint(n, rows, 2, o.Variant.Width(), 0))
		if err != nil {
			return nil, fmt.Errorf("mixer arena: %w", err)
		}
		shOpts = append(shOpts, mixer.WithArena(arena))
	}
	sh := mixer.NewShared(shOpts...)

	mx := mixer.New(sh, n, rows, 2,
		mixer.WithLearningRate(o.LearningRate),
		mixer.WithFloors(o.LeafFloor, o.InternalFloor))
	mx.SetScaleFactor(o.ScaleFactor, o.CombinerScaleFactor)

	p := &Predictor{
		opts:   o,
		sh:     sh,
		mx:     mx,
		tables: make([][]Counter, len(o.Orders)),
		hashes: make([]uint32, len(o.Orders)),
		slots:  make([]uint32, len(o.Orders)),
		c0:     1,
	}
	for i := range p.tables {
		t := make([]Counter, 1<<o.TableBits)
		for j := range t {
			t[j] = NewCounter()
		}
		p.tables[i] = t
	}
	p.rehash()

	logger.Debug("predictor ready",
		"orders", o.Orders, "table_bits", o.TableBits,
		"variant", o.Variant.String(), "arena", o.UseArena)
	return p, nil
}

// P returns the 12-bit probability that the next bit is 1. Every call must
// be followed by exactly one Update.
func (p *Predictor) P() int {
	if p.predicted {
		panic("model: P called twice without Update")
	}
	p.predicted = true

	shift := 32 - p.opts.TableBits
	for i, h := range p.hashes {
		slot := (h ^ uint32(p.c0)*0x9E3779B1) * 0x85EBCA6B >> shift
		p.slots[i] = slot
		p.mx.Add(kernels.Stretch(p.tables[i][slot].P12()))
	}
	p.mx.Add(bias)
	p.mx.Set(p.c0, 256)
	p.mx.Set(int(p.hist&0xFF), 256)
	return p.mx.P()
}

// Update reports the actual bit, trains every component and advances the
// context.
func (p *Predictor) Update(bit int) {
	if !p.predicted {
		panic("model: Update without P")
	}
	p.predicted = false

	for i, slot := range p.slots {
		p.tables[i][slot].Update(bit, p.opts.CounterRate)
	}
	p.sh.Update(bit)

	p.c0 = p.c0<<1 | bit
	if p.c0 >= 256 {
		p.hist = p.hist<<8 | uint64(p.c0&0xFF)
		p.pos++
		p.c0 = 1
		p.rehash()
	}
}

// rehash recomputes the per-order context hashes at a byte boundary.
func (p *Predictor) rehash() {
	for i, k := range p.opts.Orders {
		ctx := p.hist
		if k < MaxOrder {
			ctx &= 1<<(8*k) - 1
		}
		h := uint64(k+1)*0x9E3779B97F4A7C15 ^ ctx*0xC2B2AE3D27D4EB4F
		p.hashes[i] = uint32(h >> 32)
	}
}

// Bytes returns the number of whole bytes seen.
func (p *Predictor) Bytes() uint64 { return p.pos }

// Mixer returns the root of the predictor's mixing network.
func (p *Predictor) Mixer() *mixer.Mixer { return p.mx }

// Shared returns the prediction context shared by the mixer nodes.
func (p *Predictor) Shared() *mixer.Shared { return p.sh }

// Package kernels provides the fixed-point inner loops of the mixing network.
//
// Two routines dominate the mixer: the dot product of a stretched input
// vector with one weight row, and the delta-rule training step that moves
// that row toward the observed bit. Both are implemented once per
// instruction-set variant:
//   - Scalar: two int16 lanes per step, the portable reference path
//   - SSE2, NEON: 128-bit blocks of eight int16 lanes
//   - AVX2: 256-bit blocks of sixteen int16 lanes
//
// The variant only changes how many lanes are accumulated per step. Every
// variant returns the same integers for the same inputs; the scalar path is
// the oracle the others are tested against.
//
// The package also carries the logistic transforms (Squash, Stretch) that
// map between the stretched domain and 12-bit probabilities.
package kernels

import (
	"fmt"
	"strings"
)

// Variant names an instruction-set flavour of the inner loops.
type Variant uint8

const (
	Scalar Variant = iota
	SSE2
	AVX2
	NEON

	numVariants
)

var variantNames = [numVariants]string{
	Scalar: "scalar",
	SSE2:   "sse2",
	AVX2:   "avx2",
	NEON:   "neon",
}

func (v Variant) String() string {
	if v < numVariants {
		return variantNames[v]
	}
	return fmt.Sprintf("variant(%d)", uint8(v))
}

// Width returns the number of int16 lanes the variant consumes per step.
// Input vectors must be padded to a multiple of it.
func (v Variant) Width() int {
	switch v {
	case AVX2:
		return 32 / 2
	case SSE2, NEON:
		return 16 / 2
	case Scalar:
		return 4 / 2
	}
	panic("kernels: unknown variant " + v.String())
}

// ParseVariant maps a configuration name to a Variant. "auto" and the empty
// string select Best().
func ParseVariant(name string) (Variant, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		return Best(), nil
	}
	for v, n := range variantNames {
		if n == name {
			return Variant(v), nil
		}
	}
	return Scalar, fmt.Errorf("unknown kernel variant %q", name)
}

// DotFn returns the fixed-point dot product of t and w over len(t) lanes.
type DotFn func(t, w []int16) int32

// TrainFn applies one delta-rule step with scaled error err to w.
type TrainFn func(t, w []int16, err int)

// Kernel bundles the routines of one variant.
type Kernel struct {
	Variant Variant
	Width   int
	Dot     DotFn
	Train   TrainFn
}

// Catalog maps every variant to its kernel. All entries run on any
// architecture; Best only decides which one a mixer uses by default.
var Catalog = [numVariants]Kernel{
	Scalar: {Variant: Scalar, Width: 2, Dot: dotScalar, Train: trainScalar},
	SSE2:   {Variant: SSE2, Width: 8, Dot: dot128, Train: train128},
	AVX2:   {Variant: AVX2, Width: 16, Dot: dot256, Train: train256},
	NEON:   {Variant: NEON, Width: 8, Dot: dotNEON, Train: train128},
}

// Get returns the kernel for v.
func Get(v Variant) Kernel {
	if v >= numVariants {
		panic("kernels: unknown variant " + v.String())
	}
	return Catalog[v]
}

// Variants lists every variant in catalog order.
func Variants() []Variant {
	out := make([]Variant, 0, numVariants)
	for v := Variant(0); v < numVariants; v++ {
		out = append(out, v)
	}
	return out
}

var best = detect()

// Best returns the widest variant the running CPU supports. It is computed
// once at start-up.
func Best() Variant {
	return best
}

func checkLanes(t, w []int16, width int) {
	if len(t)&(width-1) != 0 {
		panic("kernels: input length not padded to lane width")
	}
	if len(w) < len(t) {
		panic("kernels: weight row shorter than input vector")
	}
}

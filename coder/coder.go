// Package coder implements a binary arithmetic coder with carry-free
// renormalization.
//
// The coding interval [x1, x2] is kept in 32-bit unsigned integers and split
// by a probability with Precision fractional bits. Leading bits that x1 and
// x2 share are final and are shifted out one at a time. When the interval
// straddles the midpoint too narrowly to settle a bit, it is expanded around
// the centre and the undecided bit is counted as pending; the run of pending
// bits is written, inverted, right after the next settled bit. No output is
// ever revisited, so the coder needs no look-ahead buffer.
//
// Encoder and Decoder each own their state and must not be shared between
// goroutines.
package coder

import "fmt"

const (
	// Precision is the number of fractional bits in a probability.
	Precision = 28

	// Scale is the probability of certainty. Valid probabilities lie in the
	// open interval (0, Scale).
	Scale = 1 << Precision

	half          = 0x80000000
	quarter       = 0x40000000
	threeQuarters = 0xC0000000
)

// Stats counts the work done by an Encoder or Decoder.
type Stats struct {
	Bits        uint64 // bits coded
	Bytes       uint64 // bytes written (encoder) or read (decoder)
	PendingRuns uint64 // number of pending runs started
	MaxPending  uint32 // longest pending run
}

// Rescale12 converts a 12-bit probability, as produced by a mixer, into the
// coder's domain. The input is clamped to [1, 4095] so the result is never 0
// or Scale.
func Rescale12(p12 int) uint32 {
	if p12 < 1 {
		p12 = 1
	} else if p12 > 4095 {
		p12 = 4095
	}
	return uint32(p12) << (Precision - 12)
}

func checkProb(p uint32) {
	if p == 0 || p >= Scale {
		panic(fmt.Sprintf("coder: probability %d outside (0, %d)", p, Scale))
	}
}

// split returns the last value of the lower sub-interval, the one assigned
// to a 1 bit.
func split(x1, x2, p uint32) uint32 {
	return x1 + uint32((uint64(x2-x1)*uint64(p))>>Precision)
}

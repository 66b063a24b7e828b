package coder

import (
	"fmt"
	"io"
	"math"
)

// Encoder writes arithmetic-coded bits to a byte sink.
type Encoder struct {
	w       io.ByteWriter
	x1, x2  uint32
	pending uint32
	b       byte
	nb      uint
	flushed bool
	err     error
	stats   Stats
}

// NewEncoder returns an encoder writing to w. The encoder does not own w;
// buffering and closing are up to the caller.
func NewEncoder(w io.ByteWriter) *Encoder {
	return &Encoder{w: w, x2: math.MaxUint32}
}

// EncodeBit codes bit with probability p/Scale that it is 1.
// p must lie in (0, Scale) and bit must be 0 or 1.
func (e *Encoder) EncodeBit(p uint32, bit int) {
	if e.flushed {
		panic("coder: EncodeBit after Flush")
	}
	if bit&^1 != 0 {
		panic(fmt.Sprintf("coder: bit %d is not 0 or 1", bit))
	}
	checkProb(p)

	xmid := split(e.x1, e.x2, p)
	if bit != 0 {
		e.x2 = xmid
	} else {
		e.x1 = xmid + 1
	}
	e.stats.Bits++

	for (e.x1^e.x2)&half == 0 {
		e.writeSettled(int(e.x2 >> 31))
		e.x1 <<= 1
		e.x2 = e.x2<<1 | 1
	}
	for e.x1 >= quarter && e.x2 < threeQuarters {
		e.addPending()
		e.x1 = (e.x1 << 1) & (half - 1)
		e.x2 = e.x2<<1 | half | 1
	}
}

// Flush writes the bits that pin the decoder inside the final interval and
// pads the last byte with zeros. It returns the first error reported by the
// sink. Further calls return the same error without writing.
func (e *Encoder) Flush() error {
	if e.flushed {
		return e.err
	}
	e.flushed = true

	// After renormalization either x1 < 1/4 or x2 >= 3/4, so one of the
	// two middle quarters lies inside the interval. One bit picks it.
	e.addPending()
	e.writeSettled(int(e.x1>>30) & 1)
	if e.nb > 0 {
		e.emit(e.b << (8 - e.nb))
	}
	return e.err
}

// Err returns the first error reported by the sink.
func (e *Encoder) Err() error { return e.err }

// Stats returns the counters accumulated so far.
func (e *Encoder) Stats() Stats { return e.stats }

func (e *Encoder) addPending() {
	if e.pending == 0 {
		e.stats.PendingRuns++
	}
	e.pending++
	if e.pending > e.stats.MaxPending {
		e.stats.MaxPending = e.pending
	}
}

// writeSettled writes bit followed by the pending run, which now resolves
// to the opposite value.
func (e *Encoder) writeSettled(bit int) {
	e.writeBit(bit)
	for ; e.pending > 0; e.pending-- {
		e.writeBit(bit ^ 1)
	}
}

func (e *Encoder) writeBit(bit int) {
	e.b = e.b<<1 | byte(bit)
	e.nb++
	if e.nb == 8 {
		e.emit(e.b)
		e.b, e.nb = 0, 0
	}
}

func (e *Encoder) emit(c byte) {
	if e.err != nil {
		return
	}
	if err := e.w.WriteByte(c); err != nil {
		e.err = fmt.Errorf("coder: write: %w", err)
		return
	}
	e.stats.Bytes++
}

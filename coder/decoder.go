package coder

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// Decoder reads bits coded by an Encoder. The caller must supply the same
// probabilities, in the same order, that the encoder used.
type Decoder struct {
	r       io.ByteReader
	x1, x2  uint32
	x       uint32
	pending uint32
	b       byte
	nb      uint
	primed  bool
	eof     bool
	err     error
	stats   Stats
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.ByteReader) *Decoder {
	return &Decoder{r: r, x2: math.MaxUint32}
}

// Prefetch loads the first 32 bits of the stream. DecodeBit calls it on
// first use, so calling it early only moves the initial reads.
func (d *Decoder) Prefetch() {
	if d.primed {
		return
	}
	d.primed = true
	for i := 0; i < 32; i++ {
		d.x = d.x<<1 | d.readBit()
	}
}

// DecodeBit returns the next bit given probability p/Scale that it is 1.
// Past the end of the stream the decoder reads zeros; detecting truncation
// is left to the framing around the coded data.
func (d *Decoder) DecodeBit(p uint32) int {
	checkProb(p)
	d.Prefetch()

	xmid := split(d.x1, d.x2, p)
	bit := 0
	if d.x <= xmid {
		bit = 1
		d.x2 = xmid
	} else {
		d.x1 = xmid + 1
	}
	d.stats.Bits++

	for (d.x1^d.x2)&half == 0 {
		d.pending = 0
		d.x1 <<= 1
		d.x2 = d.x2<<1 | 1
		d.x = d.x<<1 | d.readBit()
	}
	for d.x1 >= quarter && d.x2 < threeQuarters {
		if d.pending == 0 {
			d.stats.PendingRuns++
		}
		d.pending++
		d.stats.MaxPending = max(d.stats.MaxPending, d.pending)
		d.x1 = (d.x1 << 1) & (half - 1)
		d.x2 = d.x2<<1 | half | 1
		d.x = (d.x<<1 ^ half) + d.readBit()
	}
	return bit
}

// Err returns the first read error other than io.EOF.
func (d *Decoder) Err() error { return d.err }

// Stats returns the counters accumulated so far.
func (d *Decoder) Stats() Stats { return d.stats }

func (d *Decoder) readBit() uint32 {
	if d.nb == 0 {
		d.b, d.nb = d.nextByte(), 8
	}
	d.nb--
	return uint32(d.b>>d.nb) & 1
}

func (d *Decoder) nextByte() byte {
	if d.eof {
		return 0
	}
	c, err := d.r.ReadByte()
	if err != nil {
		d.eof = true
		if !errors.Is(err, io.EOF) && d.err == nil {
			d.err = fmt.Errorf("coder: read: %w", err)
		}
		return 0
	}
	d.stats.Bytes++
	return c
}

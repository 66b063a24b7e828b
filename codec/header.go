package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/sbl8/ctxmix/model"
)

// Version is the container format written by this package.
const Version uint16 = 1

// Magic opens every container.
var Magic = [4]byte{'C', 'M', 'X', '1'}

var (
	// ErrBadMagic means the input is not a ctxmix container.
	ErrBadMagic = errors.New("not a ctxmix stream")
	// ErrVersion means the container was written by an unsupported version.
	ErrVersion = errors.New("unsupported container version")
	// ErrChecksum means the decoded data does not match the stored CRC.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrHeader means a header field is out of range.
	ErrHeader = errors.New("corrupt header")
)

// Params are the predictor settings that shape the coded stream. The
// decoder rebuilds its predictor from them, so they travel in the header.
type Params struct {
	Orders              []int
	TableBits           int
	CounterRate         int
	ScaleFactor         int
	CombinerScaleFactor int
	LearningRate        int
	LeafFloor           int
	InternalFloor       int
}

// ParamsFrom extracts the stream-shaping part of predictor options.
func ParamsFrom(o model.Options) Params {
	return Params{
		Orders:              append([]int(nil), o.Orders...),
		TableBits:           o.TableBits,
		CounterRate:         o.CounterRate,
		ScaleFactor:         o.ScaleFactor,
		CombinerScaleFactor: o.CombinerScaleFactor,
		LearningRate:        o.LearningRate,
		LeafFloor:           o.LeafFloor,
		InternalFloor:       o.InternalFloor,
	}
}

// Apply overwrites the stream-shaping fields of o.
func (p Params) Apply(o model.Options) model.Options {
	o.Orders = append([]int(nil), p.Orders...)
	o.TableBits = p.TableBits
	o.CounterRate = p.CounterRate
	o.ScaleFactor = p.ScaleFactor
	o.CombinerScaleFactor = p.CombinerScaleFactor
	o.LearningRate = p.LearningRate
	o.LeafFloor = p.LeafFloor
	o.InternalFloor = p.InternalFloor
	return o
}

// Header precedes the coded bits.
// Layout (little endian): magic(4) version(2) length(8) crc32(4)
// tableBits(1) counterRate(1) nOrders(1) orders(nOrders)
// scale(4) combinerScale(4) rate(4) leafFloor(4) internalFloor(4)
type Header struct {
	Version  uint16
	Length   uint64 // bytes of original data
	Checksum uint32 // CRC-32 (IEEE) of the original data
	Params   Params
}

// Size returns the encoded header length in bytes.
func (h Header) Size() int {
	return 4 + 2 + 8 + 4 + 3 + len(h.Params.Orders) + 5*4
}

// WriteHeader encodes h to w.
func WriteHeader(w io.Writer, h Header) error {
	p := h.Params
	if len(p.Orders) > 255 || !fitsByte(p.TableBits) || !fitsByte(p.CounterRate) {
		return fmt.Errorf("%w: parameters do not fit the header", ErrHeader)
	}
	buf := make([]byte, 0, h.Size())
	buf = append(buf, Magic[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, h.Version)
	buf = binary.LittleEndian.AppendUint64(buf, h.Length)
	buf = binary.LittleEndian.AppendUint32(buf, h.Checksum)
	buf = append(buf, byte(p.TableBits), byte(p.CounterRate), byte(len(p.Orders)))
	for _, k := range p.Orders {
		if !fitsByte(k) {
			return fmt.Errorf("%w: order %d", ErrHeader, k)
		}
		buf = append(buf, byte(k))
	}
	for _, v := range []int{p.ScaleFactor, p.CombinerScaleFactor, p.LearningRate, p.LeafFloor, p.InternalFloor} {
		if v < 0 || v > 1<<31-1 {
			return fmt.Errorf("%w: value %d", ErrHeader, v)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func fitsByte(v int) bool { return v >= 0 && v <= 255 }

// ReadHeader decodes a header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var fixed [4 + 2 + 8 + 4 + 3]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, fmt.Errorf("%w: short header", ErrBadMagic)
		}
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	if [4]byte(fixed[:4]) != Magic {
		return Header{}, ErrBadMagic
	}

	var h Header
	h.Version = binary.LittleEndian.Uint16(fixed[4:])
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	h.Length = binary.LittleEndian.Uint64(fixed[6:])
	h.Checksum = binary.LittleEndian.Uint32(fixed[14:])
	h.Params.TableBits = int(fixed[18])
	h.Params.CounterRate = int(fixed[19])

	rest := make([]byte, int(fixed[20])+5*4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return Header{}, fmt.Errorf("%w: truncated parameters: %w", ErrHeader, err)
	}
	h.Params.Orders = make([]int, fixed[20])
	for i := range h.Params.Orders {
		h.Params.Orders[i] = int(rest[i])
	}
	vals := rest[len(h.Params.Orders):]
	for i, dst := range []*int{
		&h.Params.ScaleFactor, &h.Params.CombinerScaleFactor,
		&h.Params.LearningRate, &h.Params.LeafFloor, &h.Params.InternalFloor,
	} {
		*dst = int(binary.LittleEndian.Uint32(vals[4*i:]))
	}
	return h, nil
}

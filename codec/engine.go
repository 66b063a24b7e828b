// Package codec drives the predictor, mixer and arithmetic coder over whole
// byte streams and frames the result in a small container.
//
// A container is a Header followed by the coded bits. The header stores the
// original length, which bounds decoding, a CRC-32 of the original data and
// the predictor parameters the decoder must reproduce. Kernel variant and
// arena use are local choices: every variant codes identical streams.
package codec

import (
	"bufio"
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"time"

	"github.com/sbl8/ctxmix/coder"
	"github.com/sbl8/ctxmix/config"
	"github.com/sbl8/ctxmix/model"
)

// cancelEvery is how many bytes pass between context checks.
const cancelEvery = 1 << 16

// Engine compresses and decompresses streams with one configuration.
// Each call builds a fresh predictor, so an Engine can be reused and shared
// between goroutines.
type Engine struct {
	opts    model.Options
	logger  *slog.Logger
	metrics *Metrics
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger. The default discards.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records every run in m.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine returns an engine for cfg. cfg should already be validated.
func NewEngine(cfg config.Config, opts ...EngineOption) *Engine {
	e := &Engine{
		opts:   cfg.ModelOptions(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compress reads all of r and writes a container to w.
//
// The header records the length and CRC of the whole input before any coded
// bit, so the input is held in memory for the duration of the call. Callers
// with inputs larger than memory should split them into several containers.
func (e *Engine) Compress(ctx context.Context, r io.Reader, w io.Writer) (stats Stats, err error) {
	start := time.Now()
	defer func() { e.finish("compress", &stats, start, err) }()

	data, err := io.ReadAll(r)
	if err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}
	stats.BytesIn = uint64(len(data))

	pred, err := model.New(e.opts, e.logger)
	if err != nil {
		return stats, err
	}

	h := Header{
		Version:  Version,
		Length:   uint64(len(data)),
		Checksum: crc32.ChecksumIEEE(data),
		Params:   ParamsFrom(e.opts),
	}
	bw := bufio.NewWriter(w)
	if err := WriteHeader(bw, h); err != nil {
		return stats, err
	}

	enc := coder.NewEncoder(bw)
	for i, c := range data {
		if i%cancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		for j := 7; j >= 0; j-- {
			bit := int(c>>j) & 1
			p := pred.P()
			stats.observe(p, bit)
			enc.EncodeBit(coder.Rescale12(p), bit)
			pred.Update(bit)
		}
	}
	if err := enc.Flush(); err != nil {
		return stats, err
	}
	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("write output: %w", err)
	}

	cs := enc.Stats()
	stats.addCoder(cs)
	stats.BytesOut = uint64(h.Size()) + cs.Bytes
	return stats, nil
}

// Decompress reads a container from r and writes the original data to w.
func (e *Engine) Decompress(ctx context.Context, r io.Reader, w io.Writer) (stats Stats, err error) {
	start := time.Now()
	defer func() { e.finish("decompress", &stats, start, err) }()

	br := bufio.NewReader(r)
	h, err := ReadHeader(br)
	if err != nil {
		return stats, err
	}

	pred, err := model.New(h.Params.Apply(e.opts), e.logger)
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrHeader, err)
	}

	crc := crc32.NewIEEE()
	bw := bufio.NewWriter(io.MultiWriter(w, crc))
	dec := coder.NewDecoder(br)
	dec.Prefetch()
	for i := uint64(0); i < h.Length; i++ {
		if i%cancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		c := 0
		for range 8 {
			p := pred.P()
			bit := dec.DecodeBit(coder.Rescale12(p))
			stats.observe(p, bit)
			pred.Update(bit)
			c = c<<1 | bit
		}
		if err := bw.WriteByte(byte(c)); err != nil {
			return stats, fmt.Errorf("write output: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("write output: %w", err)
	}
	if err := dec.Err(); err != nil {
		return stats, err
	}

	cs := dec.Stats()
	stats.addCoder(cs)
	stats.BytesIn = uint64(h.Size()) + cs.Bytes
	stats.BytesOut = h.Length
	if sum := crc.Sum32(); sum != h.Checksum {
		return stats, fmt.Errorf("%w: stored %08x, decoded %08x", ErrChecksum, h.Checksum, sum)
	}
	return stats, nil
}

// Inspect reads only the header of a container.
func Inspect(r io.Reader) (Header, error) {
	return ReadHeader(r)
}

func (e *Engine) finish(op string, stats *Stats, start time.Time, err error) {
	stats.Duration = time.Since(start)
	if e.metrics != nil {
		e.metrics.Observe(op, *stats, err)
	}
	if err != nil {
		e.logger.Error(op+" failed", "err", err, "bytes_in", stats.BytesIn)
		return
	}
	e.logger.Info(op+" finished",
		"bytes_in", stats.BytesIn,
		"bytes_out", stats.BytesOut,
		"bits", stats.Bits,
		"ideal_bytes", stats.IdealBits/8,
		"max_pending", stats.MaxPending,
		"duration", stats.Duration)
}

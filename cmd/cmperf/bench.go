package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/sbl8/ctxmix/codec"
	"github.com/sbl8/ctxmix/coder"
	"github.com/sbl8/ctxmix/config"
	"github.com/sbl8/ctxmix/kernels"
)

type benchOptions struct {
	test     string
	variants []string
	sizes    []int
	iter     int
	runs     int
	seed     int64
}

func newBenchCmd() *cobra.Command {
	o := benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure kernel, coder and end-to-end throughput",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd.Context(), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.test, "test", "all", "test type: all, kernels, coder or codec")
	f.StringSliceVar(&o.variants, "variant", nil, "kernel variants to measure (default all)")
	f.IntSliceVar(&o.sizes, "size", []int{64, 256, 1024}, "input lanes per call, rounded up to 16")
	f.IntVar(&o.iter, "iter", 20000, "calls per sample")
	f.IntVar(&o.runs, "runs", 5, "samples per measurement")
	f.Int64Var(&o.seed, "seed", 1, "random seed")
	return cmd
}

func (o benchOptions) run(ctx context.Context, w io.Writer) error {
	if o.iter <= 0 || o.runs <= 0 {
		return fmt.Errorf("iter and runs must be positive")
	}
	switch o.test {
	case "all":
		if err := o.runKernels(w); err != nil {
			return err
		}
		o.runCoder(w)
		return o.runCodec(ctx, w)
	case "kernels":
		return o.runKernels(w)
	case "coder":
		o.runCoder(w)
		return nil
	case "codec":
		return o.runCodec(ctx, w)
	}
	return fmt.Errorf("unknown test type %q", o.test)
}

// sample times fn runs times and returns the mean and standard deviation of
// the per-call duration in nanoseconds.
func sample(runs, calls int, fn func()) (mean, std float64) {
	ns := make([]float64, runs)
	for r := range ns {
		start := time.Now()
		fn()
		ns[r] = float64(time.Since(start).Nanoseconds()) / float64(calls)
	}
	if runs < 2 {
		return stat.Mean(ns, nil), 0
	}
	return stat.MeanStdDev(ns, nil)
}

func (o benchOptions) selectedVariants() ([]kernels.Variant, error) {
	if len(o.variants) == 0 {
		return kernels.Variants(), nil
	}
	out := make([]kernels.Variant, 0, len(o.variants))
	for _, name := range o.variants {
		v, err := kernels.ParseVariant(name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (o benchOptions) runKernels(w io.Writer) error {
	variants, err := o.selectedVariants()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Kernels (%d samples of %d calls)\n", o.runs, o.iter)
	fmt.Fprintf(w, "--------------------------------\n")

	rng := rand.New(rand.NewSource(o.seed))
	for _, size := range o.sizes {
		n := padLanes(size)
		t := lanes(rng, n)
		wx := lanes(rng, n)
		for _, v := range variants {
			k := kernels.Get(v)

			var sink int32
			dm, ds := sample(o.runs, o.iter, func() {
				for i := 0; i < o.iter; i++ {
					sink += k.Dot(t, wx)
				}
			})
			_ = sink

			row := append([]int16(nil), wx...)
			tm, ts := sample(o.runs, o.iter, func() {
				for i := 0; i < o.iter; i++ {
					k.Train(t, row, (i&63)-32)
				}
			})

			fmt.Fprintf(w, "%-6s n=%-5d dot %8.1f ns ±%5.1f (%7.0f Mlanes/s)  train %8.1f ns ±%5.1f (%7.0f Mlanes/s)\n",
				v, n, dm, ds, float64(n)/dm*1e3, tm, ts, float64(n)/tm*1e3)
		}
	}

	squashes := 1 << 16
	sm, ss := sample(o.runs, squashes, func() {
		var s int
		for d := -squashes / 2; d < squashes/2; d++ {
			s += kernels.Squash(d >> 4)
		}
		_ = s
	})
	fmt.Fprintf(w, "squash          %8.2f ns ±%5.2f\n\n", sm, ss)
	return nil
}

func (o benchOptions) runCoder(w io.Writer) {
	fmt.Fprintf(w, "Arithmetic coder\n")
	fmt.Fprintf(w, "----------------\n")

	const nbits = 1 << 20
	rng := rand.New(rand.NewSource(o.seed))
	for _, p12 := range []int{2048, 3500, 4000, 4090} {
		bits := make([]int, nbits)
		for i := range bits {
			if rng.Intn(4096) < p12 {
				bits[i] = 1
			}
		}
		p := coder.Rescale12(p12)

		var buf bytes.Buffer
		em, es := sample(o.runs, nbits, func() {
			buf.Reset()
			enc := coder.NewEncoder(&buf)
			for _, b := range bits {
				enc.EncodeBit(p, b)
			}
			enc.Flush()
		})
		packed := buf.Bytes()

		dm, ds := sample(o.runs, nbits, func() {
			dec := coder.NewDecoder(bytes.NewReader(packed))
			for range bits {
				dec.DecodeBit(p)
			}
		})

		fmt.Fprintf(w, "p=%4d/4096 encode %6.2f ns/bit ±%5.2f  decode %6.2f ns/bit ±%5.2f  %.4f bits/bit\n",
			p12, em, es, dm, ds, 8*float64(len(packed))/nbits)
	}
	fmt.Fprintf(w, "\n")
}

func (o benchOptions) runCodec(ctx context.Context, w io.Writer) error {
	variants, err := o.selectedVariants()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "End to end\n")
	fmt.Fprintf(w, "----------\n")

	data := textLike(rand.New(rand.NewSource(o.seed)), 256<<10)
	for _, v := range variants {
		cfg := config.Default()
		cfg.Variant = v.String()
		e := codec.NewEngine(cfg)

		var st codec.Stats
		var runErr error
		m, s := sample(o.runs, len(data), func() {
			st, runErr = e.Compress(ctx, bytes.NewReader(data), io.Discard)
		})
		if runErr != nil {
			return runErr
		}
		fmt.Fprintf(w, "%-6s compress %7.1f ns/byte ±%5.1f (%6.2f MB/s)  %.3f bits/byte\n",
			v, m, s, 1e3/m, st.BitsPerByte())
	}
	fmt.Fprintf(w, "\n")
	return nil
}

func padLanes(n int) int {
	return (max(n, 1) + 15) &^ 15
}

func lanes(rng *rand.Rand, n int) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = int16(rng.Intn(2*kernels.StretchMax+1) - kernels.StretchMax)
	}
	return s
}

// textLike returns n bytes drawn from a small vocabulary, compressible the
// way prose is.
func textLike(rng *rand.Rand, n int) []byte {
	words := []string{"mixer", "weights", "context", "the", "of", "bit", "coder", "range", "model", "a", "is"}
	b := make([]byte, 0, n+16)
	for len(b) < n {
		b = append(b, words[rng.Intn(len(words))]...)
		b = append(b, ' ')
	}
	return b[:n]
}

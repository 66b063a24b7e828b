package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sbl8/ctxmix/kernels"
)

func newVerifyCmd() *cobra.Command {
	var (
		trials int
		seed   int64
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every kernel variant against the scalar reference",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return verify(cmd.Context(), cmd.OutOrStdout(), trials, seed)
		},
	}
	cmd.Flags().IntVar(&trials, "trials", 2000, "random vectors per variant")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return cmd
}

// verify runs every variant concurrently. Each goroutine draws its own
// vectors, so no state is shared between them.
func verify(ctx context.Context, w io.Writer, trials int, seed int64) error {
	variants := kernels.Variants()
	checked := make([]int, len(variants))

	g, ctx := errgroup.WithContext(ctx)
	for i, v := range variants {
		g.Go(func() error {
			n, err := verifyVariant(ctx, v, trials, seed+int64(i))
			checked[i] = n
			return err
		})
	}
	err := g.Wait()

	for i, v := range variants {
		status := "ok"
		if checked[i] < trials {
			status = "FAILED"
		}
		fmt.Fprintf(w, "%-6s %6d/%d vectors %s\n", v, checked[i], trials, status)
	}
	return err
}

func verifyVariant(ctx context.Context, v kernels.Variant, trials int, seed int64) (int, error) {
	k := kernels.Get(v)
	rng := rand.New(rand.NewSource(seed))
	for trial := 0; trial < trials; trial++ {
		if trial%256 == 0 {
			if err := ctx.Err(); err != nil {
				return trial, err
			}
		}
		n := 16 * rng.Intn(65)
		t := wideLanes(rng, n)
		w := wideLanes(rng, n)

		if got, want := k.Dot(t, w), kernels.DotReference(t, w); got != want {
			return trial, fmt.Errorf("%s: dot over %d lanes = %d, reference %d", v, n, got, want)
		}

		e := rng.Intn(1<<18) - 1<<17
		got := slices.Clone(w)
		want := slices.Clone(w)
		k.Train(t, got, e)
		kernels.TrainReference(t, want, e)
		if i := mismatch(got, want); i >= 0 {
			return trial, fmt.Errorf("%s: train lane %d of %d = %d, reference %d (err %d)", v, i, n, got[i], want[i], e)
		}
	}
	return trials, nil
}

// wideLanes mixes the stretched range with full-range int16 values so
// saturation paths are covered.
func wideLanes(rng *rand.Rand, n int) []int16 {
	s := make([]int16, n)
	for i := range s {
		if rng.Intn(4) == 0 {
			s[i] = int16(rng.Intn(1<<16) - 1<<15)
		} else {
			s[i] = int16(rng.Intn(2*kernels.StretchMax+1) - kernels.StretchMax)
		}
	}
	return s
}

func mismatch(a, b []int16) int {
	for i := range a {
		if a[i] != b[i] {
			return i
		}
	}
	return -1
}

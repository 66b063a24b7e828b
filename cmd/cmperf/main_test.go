package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/ctxmix/kernels"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVerifyAllVariants(t *testing.T) {
	out, err := execute(t, "verify", "--trials", "200")
	require.NoError(t, err)
	for _, v := range kernels.Variants() {
		assert.Contains(t, out, v.String()+" ")
	}
	assert.Equal(t, len(kernels.Variants()), strings.Count(out, "200/200 vectors ok"))
}

func TestVerifyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	err := verify(ctx, &out, 100, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out.String(), "FAILED")
}

func TestBenchKernels(t *testing.T) {
	out, err := execute(t, "bench", "--test", "kernels", "--iter", "10", "--runs", "2", "--size", "20", "--variant", "scalar,avx2")
	require.NoError(t, err)
	assert.Contains(t, out, "scalar n=32")
	assert.Contains(t, out, "avx2   n=32")
	assert.NotContains(t, out, "sse2   n=")
	assert.Contains(t, out, "squash")
}

func TestBenchRejectsBadInput(t *testing.T) {
	_, err := execute(t, "bench", "--test", "gpu")
	assert.ErrorContains(t, err, "unknown test type")

	_, err = execute(t, "bench", "--test", "kernels", "--variant", "mmx")
	assert.ErrorContains(t, err, "unknown kernel variant")

	_, err = execute(t, "bench", "--runs", "0")
	assert.Error(t, err)
}

func TestSampleSingleRun(t *testing.T) {
	calls := 0
	mean, std := sample(1, 1, func() { calls++ })
	assert.Equal(t, 1, calls)
	assert.GreaterOrEqual(t, mean, 0.0)
	assert.Zero(t, std)
}

func TestPadLanes(t *testing.T) {
	assert.Equal(t, 16, padLanes(0))
	assert.Equal(t, 16, padLanes(16))
	assert.Equal(t, 32, padLanes(17))
}

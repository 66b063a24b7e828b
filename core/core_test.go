package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadTo(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		n     int
		width int
		want  int
	}{
		{name: "already padded", n: 16, width: 8, want: 16},
		{name: "one short", n: 15, width: 8, want: 16},
		{name: "single input scalar", n: 1, width: 2, want: 2},
		{name: "single input avx2", n: 1, width: 16, want: 16},
		{name: "zero", n: 0, width: 8, want: 0},
		{name: "three inputs sse2", n: 3, width: 8, want: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PadTo(tt.n, tt.width)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsPadded(got, tt.width))
		})
	}
}

func TestPadToRejectsBadWidth(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { PadTo(3, 0) })
	assert.Panics(t, func() { PadTo(3, 6) })
}

func TestAlignedInt16s(t *testing.T) {
	t.Parallel()
	for _, n := range []int{1, 7, 32, 33, 1000} {
		s := AlignedInt16s(n)
		require.Len(t, s, n)
		assert.Equal(t, n, cap(s))
		assert.True(t, IsInt16sAligned(s), "n=%d not aligned", n)
		for _, v := range s {
			assert.Zero(t, v)
		}
	}
	assert.Nil(t, AlignedInt16s(0))
}

func TestAlignedSize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, uintptr(0), AlignedSize(0))
	assert.Equal(t, uintptr(64), AlignedSize(1))
	assert.Equal(t, uintptr(64), AlignedSize(64))
	assert.Equal(t, uintptr(128), AlignedSize(65))
	assert.Equal(t, 32, AlignCacheLine(1))
	assert.Equal(t, 64, AlignCacheLine(33))
}

func TestArenaAllocation(t *testing.T) {
	t.Parallel()
	arena, err := NewArena(256)
	require.NoError(t, err)

	a, err := arena.Int16s(10, "weights")
	require.NoError(t, err)
	b, err := arena.Int16s(40, "inputs")
	require.NoError(t, err)

	assert.True(t, IsInt16sAligned(a))
	assert.True(t, IsInt16sAligned(b))
	assert.Len(t, arena.Regions(), 2)
	assert.Equal(t, 32, arena.Regions()[1].Offset)
	assert.Equal(t, 72, arena.Used())

	// Writing one region never touches the other.
	for i := range a {
		a[i] = -1
	}
	for _, v := range b {
		assert.Zero(t, v)
	}
}

func TestArenaExhaustion(t *testing.T) {
	t.Parallel()
	arena, err := NewArena(64)
	require.NoError(t, err)

	_, err = arena.Int16s(40, "first")
	require.NoError(t, err)
	_, err = arena.Int16s(40, "second")
	assert.Error(t, err)

	arena.Reset()
	assert.Zero(t, arena.Used())
	assert.Equal(t, 64, arena.Remaining())
	s, err := arena.Int16s(64, "whole")
	require.NoError(t, err)
	for _, v := range s {
		assert.Zero(t, v)
	}
}

func TestArenaRejectsBadSizes(t *testing.T) {
	t.Parallel()
	_, err := NewArena(0)
	assert.Error(t, err)

	arena, err := NewArena(32)
	require.NoError(t, err)
	_, err = arena.Int16s(0, "empty")
	assert.Error(t, err)
	assert.Equal(t, uintptr(64), arena.Bytes())
}

func BenchmarkAlignedInt16s(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = AlignedInt16s(1024)
	}
}

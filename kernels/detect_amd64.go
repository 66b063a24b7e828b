//go:build amd64

package kernels

import "golang.org/x/sys/cpu"

func detect() Variant {
	switch {
	case cpu.X86.HasAVX2:
		return AVX2
	case cpu.X86.HasSSE2:
		return SSE2
	}
	return Scalar
}

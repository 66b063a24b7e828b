//go:build arm64

package kernels

import "golang.org/x/sys/cpu"

func detect() Variant {
	if cpu.ARM64.HasASIMD {
		return NEON
	}
	return Scalar
}

//go:build !amd64 && !arm64

package kernels

// Other architectures use the portable two-lane path.
func detect() Variant {
	return Scalar
}

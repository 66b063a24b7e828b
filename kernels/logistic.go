package kernels

const (
	// StretchMax bounds the stretched domain: mixer outputs are clamped
	// to [-StretchMax, StretchMax] before they are squashed.
	StretchMax = 2047

	// ProbBits is the resolution of mixer probabilities.
	ProbBits = 12
	ProbMax  = 1<<ProbBits - 1
)

// squashKnots samples 4096/(1+e^-x) at x = -16..16 in steps of 1/8 of the
// stretched range (128 units); Squash interpolates linearly between them.
var squashKnots = [33]int{
	1, 2, 3, 6, 10, 16, 27, 45, 73, 120, 194, 310, 488, 747, 1101,
	1546, 2047, 2549, 2994, 3348, 3607, 3785, 3901, 3975, 4022,
	4050, 4068, 4079, 4085, 4089, 4092, 4093, 4094,
}

var stretchTable [ProbMax + 1]int16

func init() {
	// Stretch is the inverse of Squash: the smallest d whose squash
	// reaches p.
	pi := 0
	for d := -StretchMax; d <= StretchMax; d++ {
		v := Squash(d)
		for i := pi; i <= v; i++ {
			stretchTable[i] = int16(d)
		}
		pi = v + 1
	}
	for i := pi; i <= ProbMax; i++ {
		stretchTable[i] = StretchMax
	}
}

// Squash maps a stretched value to a 12-bit probability. Inputs inside
// [-2047, 2047] map to [1, 4094]; anything beyond saturates to 0 or 4095.
// The result is monotonically non-decreasing in d.
func Squash(d int) int {
	if d > StretchMax {
		return ProbMax
	}
	if d < -StretchMax {
		return 0
	}
	w := d & 127
	i := (d >> 7) + 16
	return (squashKnots[i]*(128-w) + squashKnots[i+1]*w + 64) >> 7
}

// Stretch maps a 12-bit probability back to the stretched domain.
// p outside [0, 4095] is clamped first.
func Stretch(p int) int {
	if p < 0 {
		p = 0
	} else if p > ProbMax {
		p = ProbMax
	}
	return int(stretchTable[p])
}

// ClampStretch limits d to the stretched range.
func ClampStretch(d int) int {
	if d < -StretchMax {
		return -StretchMax
	}
	if d > StretchMax {
		return StretchMax
	}
	return d
}

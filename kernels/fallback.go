package kernels

import "math"

// Scalar reference implementations. They process two int16 lanes per step
// and define the numeric contract every vector variant reproduces.

// madd multiplies two int16 pairs and adds the products in wrapping int32,
// the 16x16→32 multiply-add every vector ISA provides.
func madd(t0, w0, t1, w1 int16) int32 {
	return int32(t0)*int32(w0) + int32(t1)*int32(w1)
}

func sat16(x int32) int16 {
	if x > math.MaxInt16 {
		return math.MaxInt16
	}
	if x < math.MinInt16 {
		return math.MinInt16
	}
	return int16(x)
}

// adds16 is a saturating int16 addition.
func adds16(a, b int16) int16 {
	return sat16(int32(a) + int32(b))
}

// mulhi16 keeps the high half of the 32-bit product.
func mulhi16(a, b int16) int16 {
	return int16((int32(a) * int32(b)) >> 16)
}

// clampErr narrows a scaled training error to one int16 lane.
func clampErr(err int) int16 {
	if err > math.MaxInt16 {
		return math.MaxInt16
	}
	if err < math.MinInt16 {
		return math.MinInt16
	}
	return int16(err)
}

// trainLane moves one weight by round(2t*e / 2^17), saturating at every step.
func trainLane(t, w, e int16) int16 {
	d := mulhi16(adds16(t, t), e)
	d = adds16(d, 1) >> 1
	return adds16(w, d)
}

func dotScalar(t, w []int16) int32 {
	checkLanes(t, w, 2)
	w = w[:len(t)]
	var sum int32
	for i := 0; i < len(t); i += 2 {
		sum += madd(t[i], w[i], t[i+1], w[i+1]) >> 8
	}
	return sum
}

func trainScalar(t, w []int16, err int) {
	checkLanes(t, w, 2)
	w = w[:len(t)]
	e := clampErr(err)
	for i := range t {
		w[i] = trainLane(t[i], w[i], e)
	}
}

// DotReference and TrainReference expose the scalar oracle for callers that
// verify other variants (cmperf, tests in dependent packages).
func DotReference(t, w []int16) int32 { return dotScalar(t, w) }

func TrainReference(t, w []int16, err int) { trainScalar(t, w, err) }

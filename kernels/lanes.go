package kernels

// Block implementations for 128-bit and 256-bit registers. Each block is
// loaded through an array pointer so the lane loops have constant bounds;
// accumulators model the int32 lanes of the destination register and are
// folded horizontally once at the end.

func dot128(t, w []int16) int32 {
	checkLanes(t, w, 8)
	var acc [4]int32
	for i := 0; i < len(t); i += 8 {
		tv := (*[8]int16)(t[i : i+8])
		wv := (*[8]int16)(w[i : i+8])
		for l := 0; l < 4; l++ {
			acc[l] += madd(tv[2*l], wv[2*l], tv[2*l+1], wv[2*l+1]) >> 8
		}
	}
	return acc[0] + acc[1] + acc[2] + acc[3]
}

// dotNEON widens the low and high halves separately and pairs adjacent
// products afterwards, the shape of a vmull/vpadd sequence.
func dotNEON(t, w []int16) int32 {
	checkLanes(t, w, 8)
	var acc [4]int32
	for i := 0; i < len(t); i += 8 {
		tv := (*[8]int16)(t[i : i+8])
		wv := (*[8]int16)(w[i : i+8])
		var lo, hi [4]int32
		for l := 0; l < 4; l++ {
			lo[l] = int32(tv[l]) * int32(wv[l])
			hi[l] = int32(tv[4+l]) * int32(wv[4+l])
		}
		acc[0] += (lo[0] + lo[1]) >> 8
		acc[1] += (lo[2] + lo[3]) >> 8
		acc[2] += (hi[0] + hi[1]) >> 8
		acc[3] += (hi[2] + hi[3]) >> 8
	}
	return acc[0] + acc[1] + acc[2] + acc[3]
}

func dot256(t, w []int16) int32 {
	checkLanes(t, w, 16)
	var acc [8]int32
	for i := 0; i < len(t); i += 16 {
		tv := (*[16]int16)(t[i : i+16])
		wv := (*[16]int16)(w[i : i+16])
		for l := 0; l < 8; l++ {
			acc[l] += madd(tv[2*l], wv[2*l], tv[2*l+1], wv[2*l+1]) >> 8
		}
	}
	var sum int32
	for _, a := range acc {
		sum += a
	}
	return sum
}

func train128(t, w []int16, err int) {
	checkLanes(t, w, 8)
	e := clampErr(err)
	for i := 0; i < len(t); i += 8 {
		tv := (*[8]int16)(t[i : i+8])
		wv := (*[8]int16)(w[i : i+8])
		for l := 0; l < 8; l++ {
			wv[l] = trainLane(tv[l], wv[l], e)
		}
	}
}

func train256(t, w []int16, err int) {
	checkLanes(t, w, 16)
	e := clampErr(err)
	for i := 0; i < len(t); i += 16 {
		tv := (*[16]int16)(t[i : i+16])
		wv := (*[16]int16)(w[i : i+16])
		for l := 0; l < 16; l++ {
			wv[l] = trainLane(tv[l], wv[l], e)
		}
	}
}

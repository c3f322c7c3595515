package service

import "math"

// squash01 maps any finite raw magnitude into [0,1). Monotonic and
// bounded: negative raw values collapse to 0, large values saturate
// toward 1.
func squash01(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Tanh(x)
}

// squashSigned maps any finite raw value into (-1,1). Monotonic,
// bounded and odd.
func squashSigned(x float64) float64 {
	return math.Tanh(x)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clampSigned(x float64) float64 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}

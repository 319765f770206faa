package simd

import "github.com/viterin/vek/vek32"

// vek32 panics on empty input, which the generic kernels define as zero.

func dotVek(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return vek32.Dot(a, b[:len(a)])
}

func l2Vek(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return vek32.Distance(a, b[:len(a)])
}

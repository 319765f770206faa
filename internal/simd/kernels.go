package simd

import "math"

// Kernel function pointers, installed once by initCapabilities.
var (
	kernelDot       = dotGeneric
	kernelSquaredL2 = squaredL2Generic
	kernelL2        = l2Generic
	kernelL1        = l1Generic
)

// Dot calculates the inner product of two vectors.
//
// SAFETY: Assumes len(a) == len(b). Caller MUST ensure lengths match.
func Dot(a, b []float32) float32 {
	return kernelDot(a, b)
}

// SquaredL2 calculates the squared Euclidean distance.
//
// SAFETY: Assumes len(a) == len(b). Caller MUST ensure lengths match.
func SquaredL2(a, b []float32) float32 {
	return kernelSquaredL2(a, b)
}

// L2 calculates the Euclidean distance.
//
// SAFETY: Assumes len(a) == len(b). Caller MUST ensure lengths match.
func L2(a, b []float32) float32 {
	return kernelL2(a, b)
}

// L1 calculates the Manhattan distance.
//
// SAFETY: Assumes len(a) == len(b). Caller MUST ensure lengths match.
func L1(a, b []float32) float32 {
	return kernelL1(a, b)
}

func installKernels(isa ISA) {
	kernelDot = dotGeneric
	kernelSquaredL2 = squaredL2Generic
	kernelL2 = l2Generic
	kernelL1 = l1Generic

	switch isa {
	case AVX2, NEON:
		kernelDot = dotVek
		kernelL2 = l2Vek
	}
}

func dotGeneric(a, b []float32) float32 {
	n := len(a)
	b = b[:n]
	var sum float32
	i := 0

	for ; i+8 <= n; i += 8 {
		p0 := a[i]*b[i] + a[i+1]*b[i+1]
		p1 := a[i+2]*b[i+2] + a[i+3]*b[i+3]
		p2 := a[i+4]*b[i+4] + a[i+5]*b[i+5]
		p3 := a[i+6]*b[i+6] + a[i+7]*b[i+7]
		sum += (p0 + p1) + (p2 + p3)
	}

	for ; i < n; i++ {
		sum += a[i] * b[i]
	}

	return sum
}

func squaredL2Generic(a, b []float32) float32 {
	n := len(a)
	b = b[:n]
	var sum float32
	i := 0

	for ; i+8 <= n; i += 8 {
		d0, d1 := a[i]-b[i], a[i+1]-b[i+1]
		d2, d3 := a[i+2]-b[i+2], a[i+3]-b[i+3]
		d4, d5 := a[i+4]-b[i+4], a[i+5]-b[i+5]
		d6, d7 := a[i+6]-b[i+6], a[i+7]-b[i+7]
		sum += (d0*d0 + d1*d1 + d2*d2 + d3*d3) + (d4*d4 + d5*d5 + d6*d6 + d7*d7)
	}

	for ; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}

	return sum
}

func l2Generic(a, b []float32) float32 {
	return float32(math.Sqrt(float64(squaredL2Generic(a, b))))
}

func l1Generic(a, b []float32) float32 {
	n := len(a)
	b = b[:n]
	var sum float32
	i := 0

	for ; i+8 <= n; i += 8 {
		p0 := abs32(a[i]-b[i]) + abs32(a[i+1]-b[i+1])
		p1 := abs32(a[i+2]-b[i+2]) + abs32(a[i+3]-b[i+3])
		p2 := abs32(a[i+4]-b[i+4]) + abs32(a[i+5]-b[i+5])
		p3 := abs32(a[i+6]-b[i+6]) + abs32(a[i+7]-b[i+7])
		sum += (p0 + p1) + (p2 + p3)
	}

	for ; i < n; i++ {
		sum += abs32(a[i] - b[i])
	}

	return sum
}

func abs32(x float32) float32 {
	return math.Float32frombits(math.Float32bits(x) &^ (1 << 31))
}

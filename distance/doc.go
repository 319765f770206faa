// Package distance provides the distance kernel shared by the hashers and the
// top-k selector.
//
// Every built-in distance has the Func shape (dim, a, b) and only reads the first
// dim components of a and b. Dot and L2 are served by SIMD kernels when the CPU
// supports them; all kernels process their input in unrolled blocks of eight.
//
// # Supported Metrics
//
//   - MetricL2: Euclidean distance (default)
//   - MetricSquaredL2: squared Euclidean distance
//   - MetricL1: Manhattan distance
//   - MetricDot: inner product
//
// # Usage
//
//	d := distance.L2(len(a), a, b)
//	fn, err := distance.Provider(distance.MetricL1)
//
// Custom reductions can be expressed with Reduce:
//
//	maxAbs := distance.Reduce(dim, a, b,
//		func(x, y float32) float32 { return float32(math.Abs(float64(x - y))) },
//		func(p, q float32) float32 { return max(p, q) })
package distance

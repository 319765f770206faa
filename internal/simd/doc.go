// Package simd provides the float32 reduction kernels behind package distance.
//
// Every kernel is a function pointer installed once at init. The generic set is
// plain Go unrolled in blocks of eight; on CPUs with AVX2+FMA (amd64) or ASIMD
// (arm64) Dot and L2 are served by github.com/viterin/vek/vek32.
//
// Set LSHGO_SIMD=generic to pin the pure Go kernels.
package simd

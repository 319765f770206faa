package distance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/lshgo/internal/simd"
)

// ErrUnsupportedMetric is returned by Provider and ParseMetric for unknown metrics.
var ErrUnsupportedMetric = errors.New("distance: unsupported metric")

// Func computes a distance between the first dim components of a and b.
type Func func(dim int, a, b []float32) float32

// Reduce combines the component pairs of a and b with combine and merges the
// partial results with fold. fold must be associative and commutative.
//
// The input is consumed in blocks of eight, each folded as a balanced tree,
// followed by the tail. Reduce returns 0 when dim is 0.
//
// SquaredL2, L1 and Dot do not call Reduce. They are SIMD kernels that agree
// with the matching Reduce combination up to float32 rounding.
func Reduce(dim int, a, b []float32, combine, fold func(x, y float32) float32) float32 {
	if dim <= 0 {
		return 0
	}

	a = a[:dim]
	b = b[:dim]

	var (
		acc    float32
		seeded bool
		i      int
	)

	for ; i+8 <= dim; i += 8 {
		p0 := fold(combine(a[i], b[i]), combine(a[i+1], b[i+1]))
		p1 := fold(combine(a[i+2], b[i+2]), combine(a[i+3], b[i+3]))
		p2 := fold(combine(a[i+4], b[i+4]), combine(a[i+5], b[i+5]))
		p3 := fold(combine(a[i+6], b[i+6]), combine(a[i+7], b[i+7]))
		block := fold(fold(p0, p1), fold(p2, p3))

		if seeded {
			acc = fold(acc, block)
		} else {
			acc = block
			seeded = true
		}
	}

	for ; i < dim; i++ {
		c := combine(a[i], b[i])
		if seeded {
			acc = fold(acc, c)
		} else {
			acc = c
			seeded = true
		}
	}

	return acc
}

// SquaredL2 calculates the squared Euclidean distance. It matches Reduce
// with a squared difference and a sum.
func SquaredL2(dim int, a, b []float32) float32 {
	return simd.SquaredL2(a[:dim], b[:dim])
}

// L2 calculates the Euclidean distance.
func L2(dim int, a, b []float32) float32 {
	return simd.L2(a[:dim], b[:dim])
}

// L1 calculates the Manhattan distance, Reduce with an absolute difference
// and a sum.
func L1(dim int, a, b []float32) float32 {
	return simd.L1(a[:dim], b[:dim])
}

// Dot calculates the inner product, Reduce with a product and a sum.
func Dot(dim int, a, b []float32) float32 {
	return simd.Dot(a[:dim], b[:dim])
}

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	MetricL2 Metric = iota
	MetricSquaredL2
	MetricL1
	MetricDot
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricSquaredL2:
		return "SquaredL2"
	case MetricL1:
		return "L1"
	case MetricDot:
		return "Dot"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// ParseMetric parses a metric name case-insensitively.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l2", "euclidean":
		return MetricL2, nil
	case "squaredl2", "squared_l2", "l2sq":
		return MetricSquaredL2, nil
	case "l1", "manhattan":
		return MetricL1, nil
	case "dot", "ip", "inner_product":
		return MetricDot, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMetric, s)
	}
}

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return L2, nil
	case MetricSquaredL2:
		return SquaredL2, nil
	case MetricL1:
		return L1, nil
	case MetricDot:
		return Dot, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMetric, m)
	}
}

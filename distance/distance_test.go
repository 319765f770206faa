package distance

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 32},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 0},
		{"Mixed", []float32{1, -1, 2}, []float32{1, 1, -2}, -4},
		{"Empty", []float32{}, []float32{}, 0},
		{"Single", []float32{2}, []float32{3}, 6},
		{"Large", make([]float32, 1024), make([]float32, 1024), 0},
	}

	for i := range tests[5].a {
		tests[5].a[i] = 1
		tests[5].b[i] = 1
	}
	tests[5].expected = 1024

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dot(len(tt.a), tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-5)
		})
	}
}

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 27},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 0},
		{"Identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"Mixed", []float32{1, -1}, []float32{-1, 1}, 8},
		{"Empty", []float32{}, []float32{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SquaredL2(len(tt.a), tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-5)
			assert.InDelta(t, math.Sqrt(float64(tt.expected)), L2(len(tt.a), tt.a, tt.b), 1e-5)
		})
	}
}

func TestL1(t *testing.T) {
	assert.InDelta(t, 9, L1(3, []float32{1, 2, 3}, []float32{4, 5, 6}), 1e-6)
	assert.InDelta(t, 0, L1(0, nil, nil), 1e-6)
}

func TestDimLimitsComponents(t *testing.T) {
	a := []float32{1, 2, 3, 100}
	b := []float32{1, 2, 3, -100}

	assert.Equal(t, float32(0), L2(3, a, b))
	assert.Equal(t, float32(0), L1(3, a, b))
}

func TestReduce(t *testing.T) {
	add := func(p, q float32) float32 { return p + q }
	sq := func(x, y float32) float32 { d := x - y; return d * d }

	t.Run("ZeroDim", func(t *testing.T) {
		assert.Equal(t, float32(0), Reduce(0, nil, nil, sq, add))
	})

	t.Run("MatchesBuiltins", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for _, dim := range []int{1, 5, 8, 13, 16, 100} {
			a := make([]float32, dim)
			b := make([]float32, dim)
			for i := range a {
				a[i] = rng.Float32()
				b[i] = rng.Float32()
			}
			tol := 1e-5 * float64(dim)
			assert.InDelta(t, SquaredL2(dim, a, b), Reduce(dim, a, b, sq, add), tol)
			assert.InDelta(t, Dot(dim, a, b), Reduce(dim, a, b, func(x, y float32) float32 { return x * y }, add), tol)
			assert.InDelta(t, L1(dim, a, b), Reduce(dim, a, b, func(x, y float32) float32 { return float32(math.Abs(float64(x - y))) }, add), tol)
		}
	})

	t.Run("CustomFold", func(t *testing.T) {
		// Chebyshev distance.
		a := []float32{-5, 1, 2, 3, 4, 5, 6, 7, 8, 9}
		b := []float32{-6, 1, 2, 3, 4, 5, 6, 7, 8, 9.5}
		absDiff := func(x, y float32) float32 { return float32(math.Abs(float64(x - y))) }

		got := Reduce(len(a), a, b, absDiff, func(p, q float32) float32 { return max(p, q) })
		assert.Equal(t, float32(1), got)

		// A zero seed would win a min fold over positive products.
		gotMin := Reduce(3, []float32{1, 2, 3}, []float32{1, 1, 1},
			func(x, y float32) float32 { return x * y },
			func(p, q float32) float32 { return min(p, q) })
		assert.Equal(t, float32(1), gotMin)
	})
}

func TestProvider(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 6, 3}

	tests := []struct {
		metric   Metric
		expected float32
	}{
		{MetricL2, 5},
		{MetricSquaredL2, 25},
		{MetricL1, 7},
		{MetricDot, 25},
	}

	for _, tt := range tests {
		t.Run(tt.metric.String(), func(t *testing.T) {
			fn, err := Provider(tt.metric)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, fn(3, a, b), 1e-5)
		})
	}

	_, err := Provider(Metric(42))
	require.ErrorIs(t, err, ErrUnsupportedMetric)
}

func TestParseMetric(t *testing.T) {
	for _, m := range []Metric{MetricL2, MetricSquaredL2, MetricL1, MetricDot} {
		got, err := ParseMetric(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMetric(" Euclidean ")
	require.NoError(t, err)
	assert.Equal(t, MetricL2, got)

	_, err = ParseMetric("cosine")
	require.ErrorIs(t, err, ErrUnsupportedMetric)
	assert.Equal(t, "Unknown(9)", Metric(9).String())
}

package topk

import (
	"math/rand"
	"slices"
	"sync"
	"testing"

	"github.com/hupe1980/lshgo/distance"
	"github.com/hupe1980/lshgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorKeepsTwoNearest(t *testing.T) {
	const (
		a = iota
		b
		c
	)
	queries := [][]float32{{0}}
	data := [][]float32{a: {4}, b: {2}, c: {3}}

	s, err := New(2, queries, data, WithDistance(distance.L1))
	require.NoError(t, err)

	require.NoError(t, s.Push(0, a))
	require.NoError(t, s.Push(0, b))
	require.NoError(t, s.Push(0, c))

	results := s.Results()
	require.Len(t, results, 1)
	assert.Equal(t, []Result{{ID: b, Distance: 2}, {ID: c, Distance: 3}}, results[0])
}

func TestSelectorEqualDistanceIsNotAdmitted(t *testing.T) {
	queries := [][]float32{{0}}
	data := [][]float32{{1}, {2}, {2}}

	s, err := New(2, queries, data, WithDistance(distance.L1))
	require.NoError(t, err)

	for id := range data {
		require.NoError(t, s.Push(0, id))
	}

	res, err := s.ResultsFor(0)
	require.NoError(t, err)
	assert.Equal(t, []Result{{ID: 0, Distance: 1}, {ID: 1, Distance: 2}}, res)
}

func TestSelectorMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(4711)
	queries := rng.UniformVectors(20, 16)
	data := rng.UniformVectors(300, 16)
	r := rand.New(rand.NewSource(1))

	for _, k := range []int{1, 5, 10, 50} {
		s, err := New(k, queries, data)
		require.NoError(t, err)

		pushed := make([][]float32, len(queries))
		for q := range queries {
			// Random order with duplicates.
			for range 400 {
				id := r.Intn(len(data))
				require.NoError(t, s.Push(q, id))
				pushed[q] = append(pushed[q], distance.L2(16, queries[q], data[id]))
			}
		}

		results := s.Results()
		for q, res := range results {
			require.LessOrEqual(t, len(res), k)

			assert.True(t, slices.IsSortedFunc(res, func(x, y Result) int {
				switch {
				case x.Distance < y.Distance:
					return -1
				case x.Distance > y.Distance:
					return 1
				}
				return 0
			}))

			slices.Sort(pushed[q])
			want := pushed[q][:min(k, len(pushed[q]))]
			got := make([]float32, len(res))
			for i, rr := range res {
				got[i] = rr.Distance
				assert.Equal(t, distance.L2(16, queries[q], data[rr.ID]), rr.Distance)
			}
			assert.Equal(t, want, got, "k=%d query=%d", k, q)
		}
	}
}

func TestSelectorFewerCandidatesThanK(t *testing.T) {
	s, err := New(10, [][]float32{{0, 0}, {1, 1}}, [][]float32{{3, 4}, {0, 1}})
	require.NoError(t, err)

	require.NoError(t, s.Push(0, 0))
	require.NoError(t, s.Push(0, 1))

	results := s.Results()
	assert.Equal(t, []Result{{ID: 1, Distance: 1}, {ID: 0, Distance: 5}}, results[0])
	assert.Empty(t, results[1])
}

func TestSelectorDrainIsDestructive(t *testing.T) {
	s, err := New(3, [][]float32{{0}}, [][]float32{{1}, {2}})
	require.NoError(t, err)

	require.NoError(t, s.Push(0, 0))
	require.NoError(t, s.Push(0, 1))
	assert.Equal(t, 2, s.Len(0))

	first := s.Results()
	assert.Len(t, first[0], 2)
	assert.Equal(t, 0, s.Len(0))

	second := s.Results()
	assert.Empty(t, second[0])

	require.NoError(t, s.Push(0, 1))
	res, err := s.ResultsFor(0)
	require.NoError(t, err)
	assert.Equal(t, []Result{{ID: 1, Distance: 2}}, res)
}

func TestSelectorOutOfRange(t *testing.T) {
	s, err := New(1, [][]float32{{0}}, [][]float32{{1}})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Push(1, 0), ErrOutOfRange)
	assert.ErrorIs(t, s.Push(-1, 0), ErrOutOfRange)
	assert.ErrorIs(t, s.Push(0, 1), ErrOutOfRange)
	assert.ErrorIs(t, s.Push(0, -1), ErrOutOfRange)

	_, err = s.ResultsFor(3)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, 0, s.Len(3))
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		k       int
		queries [][]float32
		data    [][]float32
	}{
		{"zero k", 0, [][]float32{{1}}, [][]float32{{1}}},
		{"empty query", 1, [][]float32{{}}, [][]float32{{1}}},
		{"query dims", 1, [][]float32{{1}, {1, 2}}, [][]float32{{1}}},
		{"data dims", 1, [][]float32{{1, 2}}, [][]float32{{1, 2}, {1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.k, tt.queries, tt.data)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	s, err := New(4, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.NumQueries())
	assert.Equal(t, 4, s.K())
	assert.Empty(t, s.Results())
}

func TestSelectorConcurrentDistinctQueries(t *testing.T) {
	rng := testutil.NewRNG(1)
	queries := rng.UniformVectors(32, 8)
	data := rng.UniformVectors(200, 8)

	s, err := New(5, queries, data)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range data {
				assert.NoError(t, s.Push(q, id))
			}
		}()
	}
	wg.Wait()

	truth := testutil.BruteForceKNN(queries, data, 5, distance.L2)
	for q, res := range s.Results() {
		require.Len(t, res, 5)
		for i := range res {
			assert.Equal(t, truth[q][i].Distance, res[i].Distance)
		}
	}
}

func TestMaxHeap(t *testing.T) {
	var h maxHeap
	for _, d := range []float32{5, 1, 9, 3, 7} {
		h.pushBounded(Result{ID: int(d), Distance: d}, 3)
	}

	top, ok := h.top()
	require.True(t, ok)
	assert.Equal(t, float32(5), top.Distance)

	assert.Equal(t, []Result{{1, 1}, {3, 3}, {5, 5}}, h.drain())

	_, ok = h.pop()
	assert.False(t, ok)
}

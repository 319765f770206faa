package testutil

import (
	"testing"

	"github.com/hupe1980/lshgo/distance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	assert.LessOrEqual(t, v[0][0], float32(1.0))
	assert.GreaterOrEqual(t, v[1][0], float32(0.0))
}

func TestUnitVectors(t *testing.T) {
	rng := NewRNG(4711)

	for _, vec := range rng.UnitVectors(8, 32) {
		var sum float32
		for _, val := range vec {
			sum += val * val
		}
		assert.InDelta(t, float32(1.0), sum, 1e-5)
	}
}

func TestClusteredVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.ClusteredVectors(100, 32, 5, 0.01)

	require.Equal(t, 100, len(v))
	assert.Equal(t, 32, len(v[0]))
	// Same cluster stays close, different clusters are far apart.
	assert.Less(t, distance.L2(32, v[0], v[5]), distance.L2(32, v[0], v[1]))
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.UniformVectors(1, 10)

	rng.Reset()
	v2 := rng.UniformVectors(1, 10)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestFlatten(t *testing.T) {
	assert.Nil(t, Flatten(nil))
	assert.Equal(t, []float32{1, 2, 3, 4}, Flatten([][]float32{{1, 2}, {3, 4}}))
}

func TestBruteForceKNN(t *testing.T) {
	data := [][]float32{{0}, {10}, {2}, {3}, {2}}
	queries := [][]float32{{2.1}}

	got := BruteForceKNN(queries, data, 3, distance.L1)

	require.Len(t, got, 1)
	ids := []int{got[0][0].ID, got[0][1].ID, got[0][2].ID}
	assert.Equal(t, []int{2, 4, 3}, ids)

	all := BruteForceKNN(queries, data, 100, distance.L1)
	assert.Len(t, all[0], 5)
}

func TestComputeRecall(t *testing.T) {
	truth := []Neighbor{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}

	assert.Equal(t, 1.0, ComputeRecall(nil, nil))
	assert.Equal(t, 0.0, ComputeRecall(nil, truth))
	assert.Equal(t, 0.5, ComputeRecall(truth, []Neighbor{{ID: 2}, {ID: 4}, {ID: 9}}))
	assert.Equal(t, 0.25, ComputeRecall(truth, []Neighbor{{ID: 1}, {ID: 1}}))
}

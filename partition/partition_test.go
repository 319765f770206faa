package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformTenByThree(t *testing.T) {
	ranges, err := Uniform(10, 3)
	require.NoError(t, err)

	assert.Equal(t, []Range{{0, 4}, {4, 7}, {7, 10}}, ranges)
}

func TestUniformProperties(t *testing.T) {
	for n := 0; n <= 64; n++ {
		for m := 1; m <= 12; m++ {
			ranges, err := Uniform(n, m)
			require.NoError(t, err)
			require.Len(t, ranges, m)

			total := 0
			next := 0
			for _, r := range ranges {
				assert.Equal(t, next, r.Begin, "n=%d m=%d contiguous", n, m)
				assert.GreaterOrEqual(t, r.Len(), 0)

				lo, hi := n/m, (n+m-1)/m
				assert.GreaterOrEqual(t, r.Len(), lo, "n=%d m=%d", n, m)
				assert.LessOrEqual(t, r.Len(), hi, "n=%d m=%d", n, m)

				total += r.Len()
				next = r.End
			}

			assert.Equal(t, n, total)
			assert.Equal(t, n, next)
		}
	}
}

func TestUniformMoreShardsThanItems(t *testing.T) {
	ranges, err := Uniform(2, 5)
	require.NoError(t, err)

	sizes := make([]int, len(ranges))
	for i, r := range ranges {
		sizes[i] = r.Len()
	}
	assert.Equal(t, []int{1, 0, 1, 0, 0}, sizes)
}

func TestUniformInvalid(t *testing.T) {
	_, err := Uniform(10, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Uniform(-1, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSplitConsumesInput(t *testing.T) {
	items := [][]int32{{0}, {1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}, {9}}

	shards, err := Split(items, 3)
	require.NoError(t, err)

	require.Len(t, shards, 3)
	assert.Equal(t, [][]int32{{0}, {1}, {2}, {3}}, shards[0])
	assert.Equal(t, [][]int32{{4}, {5}, {6}}, shards[1])
	assert.Equal(t, [][]int32{{7}, {8}, {9}}, shards[2])

	for _, it := range items {
		assert.Nil(t, it)
	}

	// Shards do not alias the source.
	items[0] = []int32{42}
	assert.Equal(t, []int32{0}, shards[0][0])
}

func TestSplitInvalid(t *testing.T) {
	_, err := Split([]int{1, 2}, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

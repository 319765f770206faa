package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectors_FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.fvecs")
	vecs := [][]float32{{1, 2, 3}, {-4.5, 0, 1e-3}, {7, 8, 9}}
	require.NoError(t, SaveVectors(path, vecs))

	t.Run("all rows", func(t *testing.T) {
		got, err := LoadVectors(path, 0, 3)
		require.NoError(t, err)
		assert.Equal(t, vecs, got)
	})

	t.Run("prefix", func(t *testing.T) {
		got, err := LoadVectors(path, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, vecs[:2], got)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := LoadVectors(path, 4, 3)
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("partial trailing row", func(t *testing.T) {
		_, err := LoadVectors(path, 0, 4)
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("invalid dimension", func(t *testing.T) {
		_, err := LoadVectors(path, 1, 0)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestLoadVectors_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	got, err := LoadVectors(path, 0, 8)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = LoadVectors(path, 1, 8)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestLoadVectors_Missing(t *testing.T) {
	_, err := LoadVectors(filepath.Join(t.TempDir(), "nope"), 1, 1)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadVectors(t *testing.T) {
	var buf bytes.Buffer
	vecs := [][]float32{{1, 2}, {3, 4}}
	require.NoError(t, WriteVectors(&buf, vecs))
	assert.Equal(t, 16, buf.Len())

	got, err := ReadVectors(bytes.NewReader(buf.Bytes()), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, vecs, got)

	_, err = ReadVectors(bytes.NewReader(buf.Bytes()[:10]), 2, 2)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestGroundTruth_RoundTrip(t *testing.T) {
	rows := [][]Neighbor{
		{{ID: 3, Distance: 0.5}, {ID: 1, Distance: 1.25}},
		{{ID: 0, Distance: 2}, {ID: 7, Distance: 3.5}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGroundTruth(&buf, rows))
	assert.True(t, strings.HasPrefix(buf.String(), "2 2\n"))

	gt, err := ReadGroundTruth(&buf, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, gt.MaxK)
	assert.Equal(t, rows, gt.Rows)
	assert.Equal(t, []float64{0.5}, gt.Distances(0, 1))
	assert.Equal(t, []float64{2, 3.5}, gt.Distances(1, 10))
}

func TestReadGroundTruth_FewerQueries(t *testing.T) {
	input := "3 1\n0 0.1\n1 0.2\n2 0.3\n"

	gt, err := ReadGroundTruth(strings.NewReader(input), 2)
	require.NoError(t, err)
	assert.Len(t, gt.Rows, 2)
}

func TestReadGroundTruth_Truncated(t *testing.T) {
	_, err := ReadGroundTruth(strings.NewReader("1 2\n"), 3)
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = ReadGroundTruth(strings.NewReader("2 2\n0 0.1 1 0.2\n5 0.3\n"), 2)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestWriteGroundTruth_RaggedRows(t *testing.T) {
	err := WriteGroundTruth(&bytes.Buffer{}, [][]Neighbor{{{ID: 1}}, {}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRecall(t *testing.T) {
	tests := []struct {
		name   string
		result []float64
		truth  []float64
		want   float64
	}{
		{"exact", []float64{1, 2, 3}, []float64{3, 1, 2}, 1},
		{"one miss", []float64{1, 2, 4}, []float64{1, 2, 3}, 2.0 / 3.0},
		{"short result", []float64{1}, []float64{1, 2}, 0.5},
		{"only smallest count", []float64{5, 1, 0.5, 2}, []float64{1, 2}, 1},
		{"within epsilon", []float64{1, 2 + 1e-7}, []float64{1, 2}, 1},
		{"empty result", nil, []float64{1}, 0},
		{"empty truth", []float64{1}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Recall(tt.result, tt.truth, DefaultRecallEpsilon), 1e-12)
		})
	}
}

func TestRecall_DoesNotMutate(t *testing.T) {
	result := []float64{3, 1, 2}
	Recall(result, []float64{1, 2, 3}, DefaultRecallEpsilon)
	assert.Equal(t, []float64{3, 1, 2}, result)
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, [][]float32{{0.5, 1.25}, {}, {3}}))
	assert.Equal(t, "0.5 1.25\n\n3\n", buf.String())
}

package signature

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/lshgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHasher struct {
	calls  atomic.Int64
	failAt int64
}

func (f *failingHasher) Dim() int    { return 1 }
func (f *failingHasher) SigDim() int { return 1 }
func (f *failingHasher) Sign(vec []float32) (Signature, error) {
	if f.calls.Add(1) == f.failAt {
		return nil, errors.New("boom")
	}
	return Signature{int32(vec[0])}, nil
}
func (f *failingHasher) MarshalBinary() ([]byte, error) { return nil, nil }

func TestSignatureValid(t *testing.T) {
	assert.True(t, Signature{0, Mask, 17}.Valid())
	assert.True(t, Signature{}.Valid())
	assert.False(t, Signature{-1}.Valid())
	assert.False(t, Signature{Mask + 1}.Valid())
}

func TestSignAllPreservesOrder(t *testing.T) {
	vecs := make([][]float32, 1000)
	for i := range vecs {
		vecs[i] = []float32{float32(i)}
	}

	for _, workers := range []int{0, 1, 3, 16} {
		sigs, err := SignAll(context.Background(), &failingHasher{}, vecs, workers)
		require.NoError(t, err)
		require.Len(t, sigs, len(vecs))
		for i, s := range sigs {
			assert.Equal(t, Signature{int32(i)}, s)
		}
	}
}

func TestSignAllMatchesSequential(t *testing.T) {
	vecs := testutil.NewRNG(9).GaussianVectors(300, 16)

	h, err := NewRandomProjection(16, 8, 2, WithSeed(1))
	require.NoError(t, err)

	sigs, err := SignAll(context.Background(), h, vecs, 8)
	require.NoError(t, err)

	for i, v := range vecs {
		want, err := h.Sign(v)
		require.NoError(t, err)
		assert.Equal(t, want, sigs[i])
	}
}

func TestSignAllErrors(t *testing.T) {
	vecs := make([][]float32, 100)
	for i := range vecs {
		vecs[i] = []float32{1}
	}

	_, err := SignAll(context.Background(), &failingHasher{failAt: 50}, vecs, 4)
	assert.EqualError(t, err, "boom")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = SignAll(ctx, &failingHasher{}, vecs, 4)
	assert.ErrorIs(t, err, context.Canceled)

	sigs, err := SignAll(context.Background(), &failingHasher{}, nil, 4)
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

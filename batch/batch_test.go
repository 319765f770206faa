package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/lshgo/bucket"
	"github.com/hupe1980/lshgo/distance"
	"github.com/hupe1980/lshgo/signature"
	"github.com/hupe1980/lshgo/testutil"
	"github.com/hupe1980/lshgo/topk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firstComponent signs a vector with its first component.
type firstComponent struct{}

func (firstComponent) Dim() int    { return 1 }
func (firstComponent) SigDim() int { return 1 }
func (firstComponent) Sign(v []float32) (signature.Signature, error) {
	return signature.Signature{int32(v[0])}, nil
}
func (firstComponent) MarshalBinary() ([]byte, error) { return nil, nil }

// echoEngine answers signature s with candidates s, s+1 and s+2 and records
// the batch sizes it sees.
type echoEngine struct {
	mu      sync.Mutex
	batches []int
	drop    bool
}

func (e *echoEngine) Build(context.Context, []signature.Signature) error { return nil }

func (e *echoEngine) BatchQuery(_ context.Context, sigs []signature.Signature) ([][]int, error) {
	e.mu.Lock()
	e.batches = append(e.batches, len(sigs))
	e.mu.Unlock()

	out := make([][]int, len(sigs))
	for i, s := range sigs {
		v := int(s[0])
		out[i] = []int{v, v + 1, v + 2}
	}
	if e.drop && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *echoEngine) SelectPolicy() bucket.Policy { return bucket.Policy{Engine: "echo", Shards: 1} }

func (e *echoEngine) Len() int { return 0 }

type pair struct{ q, c int }

func collect(t *testing.T, o *Orchestrator, queries [][]float32) []pair {
	t.Helper()

	var got []pair
	err := o.Run(context.Background(), queries, SinkFunc(func(q, c int) error {
		got = append(got, pair{q, c})
		return nil
	}))
	require.NoError(t, err)
	return got
}

func makeQueries(n int) [][]float32 {
	queries := make([][]float32, n)
	for i := range queries {
		queries[i] = []float32{float32(i * 10)}
	}
	return queries
}

func TestRunAttributesGlobalIDs(t *testing.T) {
	engine := &echoEngine{}
	o, err := New(firstComponent{}, engine, WithQueryPerBatch(2))
	require.NoError(t, err)

	got := collect(t, o, makeQueries(3))

	assert.Equal(t, []pair{
		{0, 0}, {0, 1}, {0, 2},
		{1, 10}, {1, 11}, {1, 12},
		{2, 20}, {2, 21}, {2, 22},
	}, got)
	assert.Equal(t, []int{2, 1}, engine.batches)
}

func TestRunBatchingPreservesPairs(t *testing.T) {
	queries := makeQueries(23)

	full, err := New(firstComponent{}, &echoEngine{}, WithQueryPerBatch(len(queries)))
	require.NoError(t, err)
	want := collect(t, full, queries)

	for _, b := range []int{1, 2, 5, 7, 22, 23, 100} {
		engine := &echoEngine{}
		o, err := New(firstComponent{}, engine, WithQueryPerBatch(b))
		require.NoError(t, err)

		assert.Equal(t, want, collect(t, o, queries), "batch size %d", b)

		sum := 0
		for _, n := range engine.batches {
			assert.LessOrEqual(t, n, b)
			sum += n
		}
		assert.Equal(t, len(queries), sum)
	}
}

func TestRunBatchSizeMismatch(t *testing.T) {
	o, err := New(firstComponent{}, &echoEngine{drop: true}, WithQueryPerBatch(4))
	require.NoError(t, err)

	calls := 0
	err = o.Run(context.Background(), makeQueries(8), SinkFunc(func(int, int) error {
		calls++
		return nil
	}))
	assert.ErrorIs(t, err, ErrBatchSizeMismatch)
	assert.Zero(t, calls)
}

func TestRunSinkError(t *testing.T) {
	o, err := New(firstComponent{}, &echoEngine{})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = o.Run(context.Background(), makeQueries(3), SinkFunc(func(q, c int) error {
		if q == 1 {
			return boom
		}
		return nil
	}))
	assert.ErrorIs(t, err, boom)
}

func TestRunStopsBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var progress [][2]int
	o, err := New(firstComponent{}, &echoEngine{},
		WithQueryPerBatch(2),
		WithProgress(func(done, total int) {
			progress = append(progress, [2]int{done, total})
			cancel()
		}),
	)
	require.NoError(t, err)

	seen := map[int]bool{}
	err = o.Run(ctx, makeQueries(6), SinkFunc(func(q, _ int) error {
		seen[q] = true
		return nil
	}))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, [][2]int{{2, 6}}, progress)
	assert.Equal(t, map[int]bool{0: true, 1: true}, seen)
}

func TestRunEmpty(t *testing.T) {
	engine := &echoEngine{}
	o, err := New(firstComponent{}, engine)
	require.NoError(t, err)

	assert.Empty(t, collect(t, o, nil))
	assert.Empty(t, engine.batches)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, &echoEngine{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(firstComponent{}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(firstComponent{}, &echoEngine{}, WithQueryPerBatch(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	o, err := New(firstComponent{}, &echoEngine{})
	require.NoError(t, err)
	assert.Equal(t, DefaultQueryPerBatch, o.QueryPerBatch())
	assert.ErrorIs(t, o.Run(context.Background(), nil, nil), ErrInvalidArgument)
}

type countingRecorder struct {
	mu         sync.Mutex
	batches    int
	queries    int
	candidates int
	stages     map[string]int
}

func (r *countingRecorder) RecordBatch(queries, candidates int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++
	r.queries += queries
	r.candidates += candidates
}

func (r *countingRecorder) RecordStage(stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stages == nil {
		r.stages = map[string]int{}
	}
	r.stages[stage]++
}

func TestRunRecordsStages(t *testing.T) {
	rec := &countingRecorder{}
	o, err := New(firstComponent{}, &echoEngine{}, WithQueryPerBatch(3), WithRecorder(rec))
	require.NoError(t, err)

	collect(t, o, makeQueries(7))

	assert.Equal(t, 3, rec.batches)
	assert.Equal(t, 7, rec.queries)
	assert.Equal(t, 21, rec.candidates)
	assert.Equal(t, map[string]int{StageHash: 3, StageBucket: 3, StageScan: 3}, rec.stages)
}

func TestRunWithInvertedAndSelector(t *testing.T) {
	rng := testutil.NewRNG(4711)
	data := rng.ClusteredVectors(600, 16, 12, 0.02)
	noise := rng.GaussianVectors(24, 16)

	queries := make([][]float32, len(noise))
	for i := range queries {
		queries[i] = make([]float32, 16)
		for j := range queries[i] {
			queries[i][j] = data[i*7][j] + 0.005*noise[i][j]
		}
	}

	hasher, err := signature.NewRandomProjection(16, 12, 0.5, signature.WithSeed(42))
	require.NoError(t, err)

	sigs, err := signature.SignAll(context.Background(), hasher, data, 4)
	require.NoError(t, err)

	engine, err := bucket.NewInverted(bucket.WithTopK(100))
	require.NoError(t, err)
	require.NoError(t, engine.Build(context.Background(), sigs))

	sel, err := topk.New(5, queries, data)
	require.NoError(t, err)

	o, err := New(hasher, engine, WithQueryPerBatch(5))
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), queries, sel))

	truth := testutil.BruteForceKNN(queries, data, 5, distance.L2)

	var recall float64
	for q, res := range sel.Results() {
		got := make([]testutil.Neighbor, len(res))
		for i, r := range res {
			got[i] = testutil.Neighbor{ID: r.ID, Distance: r.Distance}
		}
		recall += testutil.ComputeRecall(truth[q], got)
	}
	recall /= float64(len(queries))

	assert.Greater(t, recall, 0.6)
}

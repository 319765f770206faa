package lshgo

import (
	"context"
	"encoding"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/lshgo/batch"
	"github.com/hupe1980/lshgo/blobstore"
	"github.com/hupe1980/lshgo/bucket"
	"github.com/hupe1980/lshgo/distance"
	"github.com/hupe1980/lshgo/persistence"
	"github.com/hupe1980/lshgo/signature"
	"github.com/hupe1980/lshgo/topk"
)

// Stage names recorded by Save and Load in addition to the batch stages.
const (
	StageSave = "save"
	StageLoad = "load"
)

// Index pairs a signature hasher with a bucket engine.
//
// An Index is built once from a dataset and then answers any number of
// concurrent Query and Search calls. It does not keep the dataset: Search
// takes the reference vectors explicitly, in build order.
type Index struct {
	dim  int
	opts options

	mu      sync.RWMutex
	hasher  signature.Hasher
	engine  bucket.Engine
	count   int
	buildID uuid.UUID
}

// New creates an unbuilt index for vectors of dimension dim.
func New(dim int, optFns ...Option) (*Index, error) {
	if dim <= 0 {
		return nil, &ErrInvalidDimension{Dimension: dim}
	}

	o := applyOptions(optFns)
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	o.logger = o.logger.WithDimension(dim)

	return &Index{dim: dim, opts: o}, nil
}

// Dimension returns the vector dimension.
func (x *Index) Dimension() int { return x.dim }

// Config returns the normalised configuration.
func (x *Index) Config() Config { return x.opts.config }

// Len returns the number of indexed objects.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.count
}

// BuildID identifies one Build; it survives Save and Load.
func (x *Index) BuildID() uuid.UUID {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.buildID
}

// Policy reports how the engine executes. It returns false before Build.
func (x *Index) Policy() (bucket.Policy, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.engine == nil {
		return bucket.Policy{}, false
	}
	return x.engine.SelectPolicy(), true
}

// Build hashes data and indexes the signatures. Object ids are positions in
// data. Build may be called once.
func (x *Index) Build(ctx context.Context, data [][]float32) (err error) {
	cfg := x.opts.config
	logger := x.opts.logger
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		x.opts.metricsCollector.RecordBuild(len(data), elapsed, err)
		logger.LogBuild(ctx, len(data), cfg.SigDim, string(cfg.Hasher), elapsed, err)
	}()

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.engine != nil {
		return ErrAlreadyBuilt
	}
	if err := checkDimensions(x.dim, data); err != nil {
		return err
	}

	hasher, err := newHasher(x.dim, cfg, data)
	if err != nil {
		return translateError(err)
	}
	engine, err := newEngine(cfg, x.opts.logger)
	if err != nil {
		return translateError(err)
	}

	sigs, err := signature.SignAll(ctx, hasher, data, cfg.Workers)
	if err != nil {
		return translateError(fmt.Errorf("sign dataset: %w", err))
	}
	if err := engine.Build(ctx, sigs); err != nil {
		return translateError(fmt.Errorf("build engine: %w", err))
	}

	x.hasher = hasher
	x.engine = engine
	x.count = len(data)
	x.buildID = uuid.New()
	logger = logger.WithBuildID(x.buildID)

	return nil
}

func (x *Index) snapshot() (signature.Hasher, bucket.Engine, int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.engine == nil {
		return nil, nil, 0, ErrNotBuilt
	}
	return x.hasher, x.engine, x.count, nil
}

// Query hashes queries in batches and pushes every raw candidate to sink.
// Candidate ids are build-dataset positions, query ids are positions in
// queries. Duplicates are possible and the order within a query is the
// engine's.
func (x *Index) Query(ctx context.Context, queries [][]float32, sink batch.Sink) error {
	hasher, engine, _, err := x.snapshot()
	if err != nil {
		return err
	}
	if err := checkDimensions(x.dim, queries); err != nil {
		return err
	}

	cfg := x.opts.config
	orch, err := batch.New(hasher, engine,
		batch.WithQueryPerBatch(cfg.QueryPerBatch),
		batch.WithWorkers(cfg.Workers),
		batch.WithProgress(x.opts.progress),
		batch.WithLogger(x.opts.logger.Logger),
		batch.WithRecorder(x.opts.metricsCollector),
	)
	if err != nil {
		return translateError(err)
	}

	return translateError(orch.Run(ctx, queries, sink))
}

// Search returns up to K exact nearest neighbours per query, refined from the
// engine candidates with the configured metric. data must be the build
// dataset in build order.
func (x *Index) Search(ctx context.Context, queries, data [][]float32) (results [][]topk.Result, err error) {
	k := x.opts.config.K
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		x.opts.metricsCollector.RecordSearch(len(queries), k, elapsed, err)
		x.opts.logger.LogSearch(ctx, len(queries), k, elapsed, err)
	}()

	_, _, count, err := x.snapshot()
	if err != nil {
		return nil, err
	}
	if len(data) != count {
		return nil, fmt.Errorf("%w: index holds %d objects, got %d reference vectors", ErrInvalidArgument, count, len(data))
	}
	if err := checkDimensions(x.dim, data); err != nil {
		return nil, err
	}

	fn, err := distance.Provider(x.opts.config.Metric)
	if err != nil {
		return nil, translateError(err)
	}

	sel, err := topk.New(k, queries, data, topk.WithDistance(fn))
	if err != nil {
		return nil, translateError(err)
	}
	if err := x.Query(ctx, queries, sel); err != nil {
		return nil, err
	}

	return sel.Results(), nil
}

// MarshalBinary encodes the built index with the configured compression.
func (x *Index) MarshalBinary() ([]byte, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.engine == nil {
		return nil, ErrNotBuilt
	}

	hasherState, err := x.hasher.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal hasher: %w", err)
	}

	m, ok := x.engine.(encoding.BinaryMarshaler)
	if !ok {
		return nil, fmt.Errorf("%w: engine %T is not serializable", ErrInvalidArgument, x.engine)
	}
	engineState, err := m.MarshalBinary()
	if err != nil {
		return nil, translateError(fmt.Errorf("marshal engine: %w", err))
	}

	settings, err := encodeSettings(x.opts.config)
	if err != nil {
		return nil, err
	}

	return persistence.Marshal(&persistence.Blob{
		Kind:      x.opts.config.Hasher.kind(),
		Dimension: x.dim,
		SigDim:    x.hasher.SigDim(),
		Count:     x.count,
		BuildID:   x.buildID,
		Settings:  settings,
		Hasher:    hasherState,
		Engine:    engineState,
	}, x.opts.config.Compression)
}

// Save writes the index to store under name.
func (x *Index) Save(ctx context.Context, store blobstore.Store, name string) (err error) {
	size := 0
	start := time.Now()
	defer func() {
		x.opts.metricsCollector.RecordStage(StageSave, time.Since(start))
		x.opts.logger.LogSave(ctx, name, size, err)
	}()

	data, err := x.MarshalBinary()
	if err != nil {
		return err
	}
	size = len(data)

	if err := store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// Load reads an index saved with Save. Options set the runtime behaviour
// (batch size, workers, logger, metrics, progress); the hashing and engine
// parameters come from the blob.
func Load(ctx context.Context, store blobstore.Store, name string, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)
	start := time.Now()

	idx, err := func() (*Index, error) {
		data, err := store.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		return Unmarshal(data, optFns...)
	}()

	o.metricsCollector.RecordStage(StageLoad, time.Since(start))
	count := 0
	if idx != nil {
		count = idx.count
	}
	o.logger.LogLoad(ctx, name, count, err)

	return idx, err
}

// Unmarshal decodes an index written by MarshalBinary.
func Unmarshal(data []byte, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)

	blob, err := persistence.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if blob.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", persistence.ErrCorrupt, blob.Dimension)
	}

	cfg := o.config
	if err := decodeSettings(blob.Settings, &cfg); err != nil {
		return nil, err
	}

	hasher, err := restoreHasher(blob, &cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", persistence.ErrCorrupt, err)
	}

	engine, err := newEngine(cfg, o.logger)
	if err != nil {
		return nil, translateError(err)
	}
	u, ok := engine.(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, fmt.Errorf("%w: engine %T is not serializable", ErrInvalidArgument, engine)
	}
	if err := u.UnmarshalBinary(blob.Engine); err != nil {
		return nil, fmt.Errorf("unmarshal engine: %w", err)
	}
	if engine.Len() != blob.Count {
		return nil, fmt.Errorf("%w: header counts %d objects, engine holds %d", persistence.ErrCorrupt, blob.Count, engine.Len())
	}

	o.config = cfg
	o.logger = o.logger.WithDimension(blob.Dimension).WithBuildID(blob.BuildID)
	return &Index{
		dim:     blob.Dimension,
		opts:    o,
		hasher:  hasher,
		engine:  engine,
		count:   blob.Count,
		buildID: blob.BuildID,
	}, nil
}

func restoreHasher(blob *persistence.Blob, cfg *Config) (signature.Hasher, error) {
	var hasher signature.Hasher

	switch blob.Kind {
	case persistence.HasherRandomProjection:
		h := new(signature.RandomProjection)
		if err := h.UnmarshalBinary(blob.Hasher); err != nil {
			return nil, fmt.Errorf("unmarshal hasher: %w", err)
		}
		cfg.Hasher = HasherProjection
		cfg.Radius = h.Radius()
		cfg.StrictRange = h.Strict()
		hasher = h
	case persistence.HasherPivot:
		h := new(signature.Pivot)
		if err := h.UnmarshalBinary(blob.Hasher); err != nil {
			return nil, fmt.Errorf("unmarshal hasher: %w", err)
		}
		cfg.Hasher = HasherPivot
		cfg.NumPivots = h.NumPivots()
		cfg.Metric = h.Metric()
		hasher = h
	default:
		return nil, fmt.Errorf("%w: %v", persistence.ErrInvalidHasher, blob.Kind)
	}

	if hasher.Dim() != blob.Dimension || hasher.SigDim() != blob.SigDim {
		return nil, fmt.Errorf("%w: hasher %dx%d, header %dx%d", persistence.ErrCorrupt,
			hasher.Dim(), hasher.SigDim(), blob.Dimension, blob.SigDim)
	}
	cfg.SigDim = hasher.SigDim()

	return hasher, nil
}

func newHasher(dim int, cfg Config, data [][]float32) (signature.Hasher, error) {
	opts := []signature.Option{signature.WithSeed(cfg.Seed), signature.WithMetric(cfg.Metric)}

	switch cfg.Hasher {
	case HasherPivot:
		return signature.NewPivot(dim, cfg.SigDim, cfg.NumPivots, data, opts...)
	default:
		if cfg.StrictRange {
			opts = append(opts, signature.WithStrictRange())
		}
		return signature.NewRandomProjection(dim, cfg.SigDim, cfg.Radius, opts...)
	}
}

func newEngine(cfg Config, logger *Logger) (bucket.Engine, error) {
	opts := []bucket.Option{
		bucket.WithTopK(cfg.Candidates),
		bucket.WithMinMatches(cfg.MinMatches),
		bucket.WithWorkers(cfg.Workers),
		bucket.WithLogger(logger.Logger),
	}

	if cfg.Shards == 1 {
		return bucket.NewInverted(opts...)
	}
	return bucket.NewSharded(cfg.Shards, bucket.InvertedFactory(opts...), opts...)
}

func checkDimensions(dim int, vecs [][]float32) error {
	for i, v := range vecs {
		if len(v) != dim {
			return &ErrDimensionMismatch{Expected: dim, Actual: len(v), Index: i}
		}
	}
	return nil
}

// Settings section layout: metric, k, candidates, shards, min matches.
func encodeSettings(cfg Config) ([]byte, error) {
	enc := persistence.NewEncoder(40)
	enc.PutUint8(uint8(cfg.Metric))
	for _, v := range []int{cfg.K, cfg.Candidates, cfg.Shards, cfg.MinMatches} {
		if err := enc.PutInt(v); err != nil {
			return nil, err
		}
	}
	return enc.Bytes(), nil
}

func decodeSettings(data []byte, cfg *Config) error {
	dec := persistence.NewDecoder(data)
	metric := distance.Metric(dec.Uint8())
	k := dec.Int()
	candidates := dec.Int()
	shards := dec.Int()
	minMatches := dec.Int()
	if err := dec.Err(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if dec.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing settings bytes", persistence.ErrCorrupt, dec.Remaining())
	}

	cfg.Metric = metric
	cfg.K = k
	cfg.Candidates = candidates
	cfg.Shards = shards
	cfg.MinMatches = minMatches
	return nil
}

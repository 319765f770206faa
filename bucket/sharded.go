package bucket

import (
	"context"
	"encoding"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hupe1980/lshgo/partition"
	"github.com/hupe1980/lshgo/persistence"
	"github.com/hupe1980/lshgo/signature"
	"golang.org/x/sync/errgroup"
)

// Factory creates the engine for one shard.
type Factory func(shard int) (Engine, error)

// InvertedFactory returns a Factory producing Inverted engines.
func InvertedFactory(opts ...Option) Factory {
	return func(int) (Engine, error) {
		return NewInverted(opts...)
	}
}

// Sharded spreads the build signatures over independent engines.
type Sharded struct {
	numShards int
	factory   Factory
	workers   int
	logger    *slog.Logger

	built   atomic.Bool
	shards  []Engine
	extents []partition.Range
}

var _ Engine = (*Sharded)(nil)

// NewSharded creates an engine with numShards shards produced by factory.
func NewSharded(numShards int, factory Factory, opts ...Option) (*Sharded, error) {
	if numShards <= 0 {
		return nil, fmt.Errorf("%w: shard count must be positive, got %d", ErrInvalidArgument, numShards)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: nil factory", ErrInvalidArgument)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Sharded{
		numShards: numShards,
		factory:   factory,
		workers:   o.workers,
		logger:    o.logger,
	}, nil
}

// Len returns the number of indexed objects across all shards.
func (e *Sharded) Len() int {
	n := 0
	for _, r := range e.extents {
		n += r.Len()
	}
	return n
}

// Extents returns the id range of every shard. Valid after Build.
func (e *Sharded) Extents() []partition.Range {
	return e.extents
}

// Build partitions sigs uniformly and builds the shards in parallel. It
// consumes sigs: the elements of the slice are cleared.
func (e *Sharded) Build(ctx context.Context, sigs []signature.Signature) error {
	if e.built.Load() {
		return ErrAlreadyBuilt
	}

	extents, err := partition.Uniform(len(sigs), e.numShards)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	parts, err := partition.Split(sigs, e.numShards)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	shards := make([]Engine, e.numShards)
	for i := range shards {
		if shards[i], err = e.factory(i); err != nil {
			return fmt.Errorf("create shard %d: %w", i, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, part := range parts {
		g.Go(func() error {
			start := time.Now()
			if err := shards[i].Build(gctx, part); err != nil {
				return fmt.Errorf("build shard %d: %w", i, err)
			}
			e.logger.Debug("shard built",
				slog.Int("shard", i),
				slog.Int("begin", extents[i].Begin),
				slog.Int("objects", extents[i].Len()),
				slog.Duration("duration", time.Since(start)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	e.shards = shards
	e.extents = extents
	e.built.Store(true)

	return nil
}

// BatchQuery queries every shard in parallel and concatenates the candidate
// lists per query in shard order, with ids shifted to global positions.
func (e *Sharded) BatchQuery(ctx context.Context, sigs []signature.Signature) ([][]int, error) {
	if !e.built.Load() {
		return nil, ErrNotBuilt
	}

	perShard := make([][][]int, len(e.shards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, shard := range e.shards {
		g.Go(func() error {
			res, err := shard.BatchQuery(gctx, sigs)
			if err != nil {
				return fmt.Errorf("query shard %d: %w", i, err)
			}
			if len(res) != len(sigs) {
				return fmt.Errorf("%w: shard %d returned %d lists for %d queries", ErrResultCount, i, len(res), len(sigs))
			}
			perShard[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([][]int, len(sigs))
	for q := range results {
		total := 0
		for s := range perShard {
			total += len(perShard[s][q])
		}

		ids := make([]int, 0, total)
		for s, res := range perShard {
			offset := e.extents[s].Begin
			for _, id := range res[q] {
				ids = append(ids, id+offset)
			}
		}
		results[q] = ids
	}

	return results, nil
}

// SelectPolicy reports the shard layout.
func (e *Sharded) SelectPolicy() Policy {
	p := Policy{Engine: "sharded", Shards: e.numShards, Workers: e.workers}
	if len(e.shards) > 0 {
		p.TopK = e.shards[0].SelectPolicy().TopK
	}
	return p
}

// MarshalBinary encodes the extents and every shard. Shard engines must
// implement encoding.BinaryMarshaler.
func (e *Sharded) MarshalBinary() ([]byte, error) {
	if !e.built.Load() {
		return nil, ErrNotBuilt
	}

	enc := persistence.NewEncoder(1024)
	if err := enc.PutInt(e.numShards); err != nil {
		return nil, err
	}

	for i, shard := range e.shards {
		m, ok := shard.(encoding.BinaryMarshaler)
		if !ok {
			return nil, fmt.Errorf("%w: shard %d engine %T is not serializable", ErrInvalidArgument, i, shard)
		}
		data, err := m.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("marshal shard %d: %w", i, err)
		}
		if err := enc.PutInt(e.extents[i].Begin); err != nil {
			return nil, err
		}
		if err := enc.PutInt(e.extents[i].End); err != nil {
			return nil, err
		}
		enc.PutBytes(data)
	}

	return enc.Bytes(), nil
}

// UnmarshalBinary restores shards written by MarshalBinary using the factory.
// Shard engines must implement encoding.BinaryUnmarshaler.
func (e *Sharded) UnmarshalBinary(data []byte) error {
	if e.built.Load() {
		return ErrAlreadyBuilt
	}

	dec := persistence.NewDecoder(data)
	numShards := dec.Int()
	if err := dec.Err(); err != nil {
		return err
	}
	if numShards != e.numShards {
		return fmt.Errorf("%w: blob has %d shards, engine expects %d", persistence.ErrCorrupt, numShards, e.numShards)
	}

	shards := make([]Engine, numShards)
	extents := make([]partition.Range, numShards)
	next := 0

	for i := range shards {
		r := partition.Range{Begin: dec.Int(), End: dec.Int()}
		raw := dec.Bytes()
		if err := dec.Err(); err != nil {
			return err
		}
		if r.Begin != next || r.End < r.Begin {
			return fmt.Errorf("%w: shard %d extent [%d, %d)", persistence.ErrCorrupt, i, r.Begin, r.End)
		}
		next = r.End

		shard, err := e.factory(i)
		if err != nil {
			return fmt.Errorf("create shard %d: %w", i, err)
		}
		u, ok := shard.(encoding.BinaryUnmarshaler)
		if !ok {
			return fmt.Errorf("%w: shard %d engine %T is not serializable", ErrInvalidArgument, i, shard)
		}
		if err := u.UnmarshalBinary(raw); err != nil {
			return fmt.Errorf("unmarshal shard %d: %w", i, err)
		}

		shards[i] = shard
		extents[i] = r
	}

	if dec.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", persistence.ErrCorrupt, dec.Remaining())
	}

	e.shards = shards
	e.extents = extents
	e.built.Store(true)

	return nil
}

package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/lshgo/bucket"
	"github.com/hupe1980/lshgo/signature"
)

var (
	// ErrInvalidArgument is returned for an invalid configuration.
	ErrInvalidArgument = errors.New("batch: invalid argument")
	// ErrBatchSizeMismatch is returned when the engine answers a batch with a
	// different number of candidate lists than queries. The run is aborted.
	ErrBatchSizeMismatch = errors.New("batch: engine returned wrong number of candidate lists")
)

// Orchestrator runs queries through a hasher and a bucket engine.
type Orchestrator struct {
	hasher        signature.Hasher
	engine        bucket.Engine
	queryPerBatch int
	workers       int
	progress      func(done, total int)
	logger        *slog.Logger
	recorder      Recorder
}

// New creates an orchestrator. The engine must already be built.
func New(hasher signature.Hasher, engine bucket.Engine, opts ...Option) (*Orchestrator, error) {
	if hasher == nil || engine == nil {
		return nil, fmt.Errorf("%w: hasher and engine are required", ErrInvalidArgument)
	}

	o := &Orchestrator{
		hasher:        hasher,
		engine:        engine,
		queryPerBatch: DefaultQueryPerBatch,
		logger:        slog.New(slog.DiscardHandler),
		recorder:      noopRecorder{},
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.queryPerBatch <= 0 {
		return nil, fmt.Errorf("%w: queries per batch must be positive, got %d", ErrInvalidArgument, o.queryPerBatch)
	}

	return o, nil
}

// QueryPerBatch returns the batch size.
func (o *Orchestrator) QueryPerBatch() int {
	return o.queryPerBatch
}

// Run processes queries in batches and pushes every candidate to sink.
// The context is checked before each batch. Errors from the hasher, the
// engine or the sink abort the run.
func (o *Orchestrator) Run(ctx context.Context, queries [][]float32, sink Sink) error {
	if sink == nil {
		return fmt.Errorf("%w: nil sink", ErrInvalidArgument)
	}

	total := len(queries)

	for start := 0; start < total; start += o.queryPerBatch {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+o.queryPerBatch, total)
		if err := o.runBatch(ctx, queries[start:end], start, sink); err != nil {
			return err
		}

		if o.progress != nil {
			o.progress(end, total)
		}
	}

	return nil
}

func (o *Orchestrator) runBatch(ctx context.Context, queries [][]float32, start int, sink Sink) error {
	batchStart := time.Now()

	sigs, err := signature.SignAll(ctx, o.hasher, queries, o.workers)
	if err != nil {
		return fmt.Errorf("sign batch at %d: %w", start, err)
	}
	hashed := time.Now()
	o.recorder.RecordStage(StageHash, hashed.Sub(batchStart))

	candidates, err := o.engine.BatchQuery(ctx, sigs)
	if err != nil {
		return fmt.Errorf("query batch at %d: %w", start, err)
	}
	bucketed := time.Now()
	o.recorder.RecordStage(StageBucket, bucketed.Sub(hashed))

	if len(candidates) != len(queries) {
		return fmt.Errorf("%w: batch at %d has %d queries, engine returned %d lists",
			ErrBatchSizeMismatch, start, len(queries), len(candidates))
	}

	pushed := 0
	for local, ids := range candidates {
		for _, id := range ids {
			if err := sink.Push(start+local, id); err != nil {
				return fmt.Errorf("sink query %d candidate %d: %w", start+local, id, err)
			}
		}
		pushed += len(ids)
	}

	done := time.Now()
	o.recorder.RecordStage(StageScan, done.Sub(bucketed))
	o.recorder.RecordBatch(len(queries), pushed, done.Sub(batchStart))

	o.logger.Debug("batch processed",
		slog.Int("start", start),
		slog.Int("queries", len(queries)),
		slog.Int("candidates", pushed),
		slog.Duration("duration", done.Sub(batchStart)),
	)

	return nil
}

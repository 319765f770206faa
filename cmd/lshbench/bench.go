package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/hupe1980/lshgo"
	"github.com/hupe1980/lshgo/blobstore"
	"github.com/hupe1980/lshgo/internal/dataset"
	"github.com/hupe1980/lshgo/topk"
	"github.com/spf13/cobra"
)

type bench struct {
	f      *benchFlags
	cfg    lshgo.Config
	logger *lshgo.Logger
	store  blobstore.Store
	name   string
	out    io.Writer
	errOut io.Writer
	bar    *pb.ProgressBar
}

func newBench(cmd *cobra.Command, f *benchFlags) (*bench, error) {
	cfg, err := f.config(cmd)
	if err != nil {
		return nil, err
	}
	if f.index == "" {
		return nil, fmt.Errorf("%w: --index is required", lshgo.ErrInvalidArgument)
	}
	if f.ioLimit < 0 {
		return nil, fmt.Errorf("%w: --io-limit must not be negative, got %d", lshgo.ErrInvalidArgument, f.ioLimit)
	}

	var store blobstore.Store = blobstore.NewLocalStore(filepath.Dir(f.index))
	if f.ioLimit > 0 {
		store = blobstore.NewRateLimited(store, f.ioLimit)
	}

	return &bench{
		f:      f,
		cfg:    cfg,
		logger: f.logger(),
		store:  store,
		name:   filepath.Base(f.index),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}, nil
}

func (b *bench) loadDataset(n, d int) ([][]float32, error) {
	if b.f.dataset == "" {
		return nil, fmt.Errorf("%w: --dataset is required", lshgo.ErrInvalidArgument)
	}
	if d <= 0 {
		return nil, fmt.Errorf("%w: --dim is required", lshgo.ErrInvalidArgument)
	}
	data, err := dataset.LoadVectors(b.f.dataset, n, d)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	b.logger.Info("dataset loaded", "path", b.f.dataset, "n", len(data), "d", d)
	return data, nil
}

func (b *bench) loadQueries(d int) ([][]float32, error) {
	if b.f.queryset == "" {
		return nil, fmt.Errorf("%w: --queryset is required", lshgo.ErrInvalidArgument)
	}
	queries, err := dataset.LoadVectors(b.f.queryset, b.f.qn, d)
	if err != nil {
		return nil, fmt.Errorf("read query set: %w", err)
	}
	b.logger.Info("query set loaded", "path", b.f.queryset, "n", len(queries), "d", d)
	return queries, nil
}

func (b *bench) options() []lshgo.Option {
	return []lshgo.Option{
		lshgo.WithConfig(b.cfg),
		lshgo.WithLogger(b.logger),
		lshgo.WithProgress(b.progress),
	}
}

// progress advances the bar of the running evaluation, if any.
func (b *bench) progress(done, _ int) {
	if b.bar != nil {
		b.bar.SetCurrent(int64(done))
	}
}

func (b *bench) buildIndex(ctx context.Context, data [][]float32) (*lshgo.Index, error) {
	idx, err := lshgo.New(b.f.d, b.options()...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := idx.Build(ctx, data); err != nil {
		return nil, err
	}
	fmt.Fprintf(b.out, "built %s index over %d points in %s\n", b.cfg.Hasher, idx.Len(), time.Since(start).Round(time.Millisecond))

	return idx, nil
}

func (b *bench) save(ctx context.Context, idx *lshgo.Index) error {
	if err := idx.Save(ctx, b.store, b.name); err != nil {
		return err
	}
	fmt.Fprintf(b.out, "index saved to %s\n", b.f.index)
	return nil
}

// build implements the build command.
func (b *bench) build(ctx context.Context) error {
	data, err := b.loadDataset(b.f.n, b.f.d)
	if err != nil {
		return err
	}
	idx, err := b.buildIndex(ctx, data)
	if err != nil {
		return err
	}
	return b.save(ctx, idx)
}

// query implements the query command.
func (b *bench) query(ctx context.Context) error {
	idx, err := lshgo.Load(ctx, b.store, b.name, b.options()...)
	if err != nil {
		return err
	}
	data, err := b.loadDataset(idx.Len(), idx.Dimension())
	if err != nil {
		return err
	}
	return b.evaluate(ctx, idx, data)
}

// run implements the run command: load the index if it exists, build it
// otherwise, query and save a freshly built index afterwards.
func (b *bench) run(ctx context.Context) error {
	idx, err := lshgo.Load(ctx, b.store, b.name, b.options()...)
	switch {
	case err == nil:
		fmt.Fprintf(b.out, "loaded index %s with %d points\n", b.f.index, idx.Len())
		data, err := b.loadDataset(idx.Len(), idx.Dimension())
		if err != nil {
			return err
		}
		return b.evaluate(ctx, idx, data)
	case errors.Is(err, blobstore.ErrNotFound):
	default:
		return err
	}

	data, err := b.loadDataset(b.f.n, b.f.d)
	if err != nil {
		return err
	}
	idx, err = b.buildIndex(ctx, data)
	if err != nil {
		return err
	}
	if err := b.evaluate(ctx, idx, data); err != nil {
		return err
	}
	return b.save(ctx, idx)
}

func (b *bench) evaluate(ctx context.Context, idx *lshgo.Index, data [][]float32) error {
	queries, err := b.loadQueries(idx.Dimension())
	if err != nil {
		return err
	}

	b.bar = pb.New(len(queries))
	b.bar.SetWriter(b.errOut)
	b.bar.Start()

	start := time.Now()
	results, err := idx.Search(ctx, queries, data)
	b.bar.Finish()
	b.bar = nil
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	fmt.Fprintf(b.out, "queried %d points in %s\n", len(queries), elapsed.Round(time.Millisecond))

	if err := b.writeOutput(results); err != nil {
		return err
	}

	if b.f.groundTruth == "" {
		return nil
	}
	gt, err := dataset.LoadGroundTruth(b.f.groundTruth, len(queries))
	if err != nil {
		return fmt.Errorf("read ground truth: %w", err)
	}

	s := summarize(results, gt, idx.Config().K)
	for q, r := range s.Recalls {
		b.logger.Debug("query recall", "query", q, "recall", r)
	}
	fmt.Fprintf(b.out, "avg-recall = %.4f (std %.4f)\n", s.Mean, s.StdDev)

	return nil
}

func (b *bench) writeOutput(results [][]topk.Result) error {
	if b.f.output == "" {
		return nil
	}

	distances := make([][]float32, len(results))
	for q, res := range results {
		distances[q] = make([]float32, len(res))
		for i, r := range res {
			distances[q][i] = r.Distance
		}
	}

	f, err := os.Create(b.f.output)
	if err != nil {
		return err
	}
	if err := dataset.WriteResults(f, distances); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", b.f.output, err)
	}
	return f.Close()
}

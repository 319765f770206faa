package batch

import (
	"log/slog"
	"time"
)

// DefaultQueryPerBatch is the default number of queries handed to the engine at once.
const DefaultQueryPerBatch = 1024

// Recorder receives timing measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// RecordBatch is called once per completed batch.
	RecordBatch(queries, candidates int, d time.Duration)
	// RecordStage is called for the hash, bucket and scan stage of every batch.
	RecordStage(stage string, d time.Duration)
}

// Stage names passed to Recorder.RecordStage.
const (
	StageHash   = "hash"
	StageBucket = "bucket"
	StageScan   = "scan"
)

type noopRecorder struct{}

func (noopRecorder) RecordBatch(int, int, time.Duration) {}
func (noopRecorder) RecordStage(string, time.Duration)   {}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithQueryPerBatch sets the batch size. Defaults to DefaultQueryPerBatch.
func WithQueryPerBatch(n int) Option {
	return func(o *Orchestrator) {
		o.queryPerBatch = n
	}
}

// WithWorkers bounds the goroutines used to sign a batch. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		o.workers = n
	}
}

// WithProgress registers a callback invoked after every batch with the number
// of processed queries and the total.
func WithProgress(fn func(done, total int)) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// WithLogger sets the logger. Batches are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder sets the timing recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

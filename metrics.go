package lshgo

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/lshgo/batch"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// A collector is owned by the caller and passed explicitly with
// WithMetricsCollector; nothing in lshgo keeps global timing state.
// Every MetricsCollector is also a batch.Recorder.
type MetricsCollector interface {
	// RecordBuild is called after each Build.
	RecordBuild(count int, duration time.Duration, err error)

	// RecordBatch is called after each query batch with the number of
	// queries and the number of candidates pushed to the sink.
	RecordBatch(queries, candidates int, duration time.Duration)

	// RecordSearch is called after each Search.
	RecordSearch(queries, k int, duration time.Duration, err error)

	// RecordStage is called with the time spent in a named stage
	// (batch.StageHash, batch.StageBucket, batch.StageScan).
	RecordStage(stage string, duration time.Duration)
}

var _ batch.Recorder = MetricsCollector(nil)

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordBatch(int, int, time.Duration)         {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordStage(string, time.Duration)           {}

// StageStats aggregates the durations recorded for one stage.
type StageStats struct {
	Count      int64
	TotalNanos int64
}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	BuildObjects     atomic.Int64
	BuildTotalNanos  atomic.Int64
	BatchCount       atomic.Int64
	BatchQueries     atomic.Int64
	BatchCandidates  atomic.Int64
	BatchTotalNanos  atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchQueries    atomic.Int64
	SearchTotalNanos atomic.Int64

	mu     sync.Mutex
	stages map[string]StageStats
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(count int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildObjects.Add(int64(count))
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(queries, candidates int, duration time.Duration) {
	b.BatchCount.Add(1)
	b.BatchQueries.Add(int64(queries))
	b.BatchCandidates.Add(int64(candidates))
	b.BatchTotalNanos.Add(duration.Nanoseconds())
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(queries, _ int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchQueries.Add(int64(queries))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordStage implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStage(stage string, duration time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stages == nil {
		b.stages = make(map[string]StageStats)
	}
	s := b.stages[stage]
	s.Count++
	s.TotalNanos += duration.Nanoseconds()
	b.stages[stage] = s
}

// Stage starts timing a named stage and returns the function that stops it.
//
//	stop := metrics.Stage("load")
//	defer stop()
func (b *BasicMetricsCollector) Stage(name string) func() {
	start := time.Now()
	return func() {
		b.RecordStage(name, time.Since(start))
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	b.mu.Lock()
	stages := maps.Clone(b.stages)
	b.mu.Unlock()

	return BasicMetricsStats{
		BuildCount:      b.BuildCount.Load(),
		BuildErrors:     b.BuildErrors.Load(),
		BuildObjects:    b.BuildObjects.Load(),
		BuildAvgNanos:   avg(b.BuildTotalNanos.Load(), b.BuildCount.Load()),
		BatchCount:      b.BatchCount.Load(),
		BatchQueries:    b.BatchQueries.Load(),
		BatchCandidates: b.BatchCandidates.Load(),
		BatchAvgNanos:   avg(b.BatchTotalNanos.Load(), b.BatchCount.Load()),
		SearchCount:     b.SearchCount.Load(),
		SearchErrors:    b.SearchErrors.Load(),
		SearchQueries:   b.SearchQueries.Load(),
		SearchAvgNanos:  avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		Stages:          stages,
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount      int64
	BuildErrors     int64
	BuildObjects    int64
	BuildAvgNanos   int64
	BatchCount      int64
	BatchQueries    int64
	BatchCandidates int64
	BatchAvgNanos   int64
	SearchCount     int64
	SearchErrors    int64
	SearchQueries   int64
	SearchAvgNanos  int64
	Stages          map[string]StageStats
}

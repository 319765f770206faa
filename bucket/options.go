package bucket

import (
	"log/slog"
	"runtime"
)

// Option configures an engine.
type Option func(*options)

type options struct {
	topK       int
	minMatches int
	workers    int
	logger     *slog.Logger
}

func defaultOptions() options {
	return options{
		topK:       100,
		minMatches: 1,
		workers:    runtime.GOMAXPROCS(0),
		logger:     slog.New(slog.DiscardHandler),
	}
}

// WithTopK sets the maximum number of candidates returned per query (and per
// shard for Sharded). Defaults to 100.
func WithTopK(k int) Option {
	return func(o *options) {
		o.topK = k
	}
}

// WithMinMatches drops candidates that collide on fewer signature positions.
// Defaults to 1.
func WithMinMatches(n int) Option {
	return func(o *options) {
		o.minMatches = n
	}
}

// WithWorkers bounds the goroutines used per call. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLogger sets the logger used by Sharded.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

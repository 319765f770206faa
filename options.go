package lshgo

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/lshgo/batch"
	"github.com/hupe1980/lshgo/distance"
	"github.com/hupe1980/lshgo/persistence"
	"github.com/hupe1980/lshgo/signature"
)

// HasherType selects the signature hasher.
type HasherType string

const (
	// HasherProjection hashes with quantised random projections.
	HasherProjection HasherType = "projection"
	// HasherPivot hashes with the ids of the nearest pivots.
	HasherPivot HasherType = "pivot"
)

// ParseHasherType parses "projection" or "pivot".
func ParseHasherType(s string) (HasherType, error) {
	switch HasherType(s) {
	case HasherProjection, HasherPivot:
		return HasherType(s), nil
	default:
		return "", fmt.Errorf("%w: unknown hasher %q", ErrInvalidArgument, s)
	}
}

func (h HasherType) kind() persistence.HasherKind {
	if h == HasherPivot {
		return persistence.HasherPivot
	}
	return persistence.HasherRandomProjection
}

// Default configuration values.
const (
	DefaultSigDim     = 16
	DefaultRadius     = 4
	DefaultNumPivots  = 256
	DefaultK          = 10
	DefaultMinMatches = 1
	DefaultSeed       = 666
)

// Config holds the index parameters. Zero fields are replaced by defaults in
// OrDefault.
type Config struct {
	// Hasher selects the hashing strategy. Default: HasherProjection.
	Hasher HasherType `yaml:"hasher"`
	// SigDim is the signature length: projection lines for HasherProjection,
	// nearest pivots kept for HasherPivot.
	SigDim int `yaml:"sigdim"`
	// Radius is the projection bucket width r.
	Radius float32 `yaml:"radius"`
	// NumPivots is the pivot set size for HasherPivot (at most 32768).
	NumPivots int `yaml:"pivots"`
	// Metric is used by the pivot hasher and for exact refinement.
	Metric distance.Metric `yaml:"-"`
	// K is the number of neighbours returned per query by Search.
	K int `yaml:"k"`
	// Candidates is the number of candidates the bucket engine returns per
	// query and shard. Default: 3*K with one shard, K+30 with several.
	Candidates int `yaml:"candidates"`
	// Shards is the number of independent engine partitions. Default: 1.
	Shards int `yaml:"shards"`
	// MinMatches drops candidates sharing fewer signature positions.
	MinMatches int `yaml:"min_matches"`
	// QueryPerBatch is the number of queries handed to the engine at once.
	QueryPerBatch int `yaml:"query_per_batch"`
	// Workers bounds the goroutines used for hashing and engine queries.
	// Zero uses GOMAXPROCS.
	Workers int `yaml:"workers"`
	// Seed makes hasher construction deterministic.
	Seed uint64 `yaml:"seed"`
	// StrictRange rejects projection buckets outside [0, 32767] instead of
	// wrapping them.
	StrictRange bool `yaml:"strict_range"`
	// Compression is applied when the index is saved.
	Compression persistence.Compression `yaml:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{}.OrDefault()
}

// OrDefault returns c with every zero field replaced by its default.
func (c Config) OrDefault() Config {
	if c.Hasher == "" {
		c.Hasher = HasherProjection
	}
	if c.SigDim == 0 {
		c.SigDim = DefaultSigDim
	}
	if c.Radius == 0 {
		c.Radius = DefaultRadius
	}
	if c.NumPivots == 0 {
		c.NumPivots = DefaultNumPivots
	}
	if c.K == 0 {
		c.K = DefaultK
	}
	if c.Shards == 0 {
		c.Shards = 1
	}
	if c.Candidates == 0 {
		if c.Shards > 1 {
			c.Candidates = c.K + 30
		} else {
			c.Candidates = 3 * c.K
		}
	}
	if c.MinMatches == 0 {
		c.MinMatches = DefaultMinMatches
	}
	if c.QueryPerBatch == 0 {
		c.QueryPerBatch = batch.DefaultQueryPerBatch
	}
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
	return c
}

// Validate checks a normalised configuration.
func (c Config) Validate() error {
	if _, err := ParseHasherType(string(c.Hasher)); err != nil {
		return err
	}
	if _, err := distance.Provider(c.Metric); err != nil {
		return translateError(err)
	}

	switch {
	case c.SigDim <= 0:
		return fmt.Errorf("%w: signature length must be positive, got %d", ErrInvalidArgument, c.SigDim)
	case c.Hasher == HasherProjection && !(c.Radius > 0):
		return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidArgument, c.Radius)
	case c.Hasher == HasherPivot && (c.NumPivots < c.SigDim || c.NumPivots > signature.MaxPivots):
		return fmt.Errorf("%w: pivot count must be in [%d, %d], got %d", ErrInvalidArgument, c.SigDim, signature.MaxPivots, c.NumPivots)
	case c.K <= 0:
		return fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, c.K)
	case c.Candidates <= 0:
		return fmt.Errorf("%w: candidate count must be positive, got %d", ErrInvalidArgument, c.Candidates)
	case c.Shards <= 0:
		return fmt.Errorf("%w: shard count must be positive, got %d", ErrInvalidArgument, c.Shards)
	case c.MinMatches <= 0:
		return fmt.Errorf("%w: minimum matches must be positive, got %d", ErrInvalidArgument, c.MinMatches)
	case c.QueryPerBatch <= 0:
		return fmt.Errorf("%w: queries per batch must be positive, got %d", ErrInvalidArgument, c.QueryPerBatch)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidArgument, c.Workers)
	}
	return nil
}

type options struct {
	config           Config
	metricsCollector MetricsCollector
	logger           *Logger
	progress         func(done, total int)
}

// Option configures New and Load.
type Option func(*options)

// WithConfig replaces the whole configuration. Options applied after it
// still override single fields.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithHasher selects the hashing strategy.
func WithHasher(h HasherType) Option {
	return func(o *options) {
		o.config.Hasher = h
	}
}

// WithSignatureLength sets the signature length.
func WithSignatureLength(n int) Option {
	return func(o *options) {
		o.config.SigDim = n
	}
}

// WithRadius sets the projection bucket width.
func WithRadius(r float32) Option {
	return func(o *options) {
		o.config.Radius = r
	}
}

// WithPivots sets the pivot count of the pivot hasher.
func WithPivots(n int) Option {
	return func(o *options) {
		o.config.NumPivots = n
	}
}

// WithMetric sets the distance used for pivot hashing and refinement.
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		o.config.Metric = m
	}
}

// WithK sets the number of neighbours returned by Search.
func WithK(k int) Option {
	return func(o *options) {
		o.config.K = k
	}
}

// WithCandidates sets the engine candidate count per query and shard.
func WithCandidates(n int) Option {
	return func(o *options) {
		o.config.Candidates = n
	}
}

// WithShards partitions the build set over n independent engines that are
// queried in parallel.
func WithShards(n int) Option {
	return func(o *options) {
		o.config.Shards = n
	}
}

// WithMinMatches sets the minimum number of matching signature positions.
func WithMinMatches(n int) Option {
	return func(o *options) {
		o.config.MinMatches = n
	}
}

// WithQueryPerBatch sets the query batch size.
func WithQueryPerBatch(n int) Option {
	return func(o *options) {
		o.config.QueryPerBatch = n
	}
}

// WithWorkers bounds the goroutines used per stage.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.config.Workers = n
	}
}

// WithSeed sets the hasher seed.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.config.Seed = seed
	}
}

// WithStrictRange makes the projection hasher reject out-of-range buckets.
func WithStrictRange() Option {
	return func(o *options) {
		o.config.StrictRange = true
	}
}

// WithCompression sets the compression used by Save.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.config.Compression = c
	}
}

// WithProgress registers a callback invoked after every query batch.
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &lshgo.BasicMetricsCollector{}
//	idx, _ := lshgo.New(128, lshgo.WithMetricsCollector(metrics))
//	// ... build and search ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := lshgo.NewJSONLogger(slog.LevelInfo)
//	idx, _ := lshgo.New(128, lshgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	o.config = o.config.OrDefault()
	return o
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hupe1980/lshgo"
	"github.com/hupe1980/lshgo/distance"
	"github.com/hupe1980/lshgo/persistence"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// benchFlags holds every command line flag. Zero values mean "use the config
// file or the library default".
type benchFlags struct {
	n, d, qn int

	lines         int
	radius        float32
	k             int
	queryPerBatch int
	candidates    int
	hasher        string
	pivots        int
	shards        int
	metric        string
	workers       int
	seed          uint64
	compression   string

	dataset     string
	queryset    string
	groundTruth string
	output      string
	index       string
	ioLimit     int

	configFile string
	verbose    bool
}

func (f *benchFlags) register(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()

	fs.IntVarP(&f.n, "num", "n", 0, "number of data points (0 reads the whole dataset file)")
	fs.IntVarP(&f.d, "dim", "d", 0, "dimension of the data")
	fs.IntVarP(&f.qn, "queries", "q", 0, "number of query points (0 reads the whole query file)")

	fs.IntVarP(&f.lines, "lines", "L", 0, "signature length: projection lines or nearest pivots")
	fs.Float32VarP(&f.radius, "radius", "r", 0, "projection radius")
	fs.IntVarP(&f.k, "topk", "k", 0, "k for top-k")
	fs.IntVarP(&f.queryPerBatch, "batch", "b", 0, "queries per batch")
	fs.IntVar(&f.candidates, "candidates", 0, "engine candidates per query and shard")
	fs.StringVar(&f.hasher, "hasher", "", "hasher: projection or pivot")
	fs.IntVar(&f.pivots, "pivots", 0, "pivot count for the pivot hasher")
	fs.IntVar(&f.shards, "shards", 0, "number of engine shards")
	fs.StringVar(&f.metric, "metric", "", "distance metric: l2, squaredl2, l1 or dot")
	fs.IntVar(&f.workers, "workers", 0, "goroutines per stage (0 uses GOMAXPROCS)")
	fs.Uint64Var(&f.seed, "seed", 0, "hasher seed")
	fs.StringVar(&f.compression, "compression", "", "index compression: none, lz4 or zstd")

	fs.StringVarP(&f.dataset, "dataset", "D", "", "path to the raw float32 dataset")
	fs.StringVarP(&f.queryset, "queryset", "Q", "", "path to the raw float32 query set")
	fs.StringVarP(&f.groundTruth, "ground-truth", "G", "", "path to the ground-truth file")
	fs.StringVarP(&f.output, "output", "O", "output.txt", "path of the result distances file")
	fs.StringVarP(&f.index, "index", "I", "index.lsh", "path of the index file")
	fs.IntVar(&f.ioLimit, "io-limit", 0, "index read and write limit in bytes per second (0 disables)")

	fs.StringVar(&f.configFile, "config", "", "YAML file with index settings; flags override it")
	fs.BoolVar(&f.verbose, "verbose", false, "enable debug logging")
}

// fileConfig is the YAML layout read by --config.
type fileConfig struct {
	lshgo.Config `yaml:",inline"`

	Metric      string `yaml:"metric"`
	Compression string `yaml:"compression"`
}

func readConfigFile(path string) (fileConfig, error) {
	var fc fileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// config merges the config file with the flags that were set explicitly.
func (f *benchFlags) config(cmd *cobra.Command) (lshgo.Config, error) {
	var fc fileConfig
	if f.configFile != "" {
		var err error
		if fc, err = readConfigFile(f.configFile); err != nil {
			return lshgo.Config{}, err
		}
	}

	cfg := fc.Config
	metric, compression := fc.Metric, fc.Compression

	changed := cmd.Flags().Changed
	if changed("lines") {
		cfg.SigDim = f.lines
	}
	if changed("radius") {
		cfg.Radius = f.radius
	}
	if changed("topk") {
		cfg.K = f.k
	}
	if changed("batch") {
		cfg.QueryPerBatch = f.queryPerBatch
	}
	if changed("candidates") {
		cfg.Candidates = f.candidates
	}
	if changed("hasher") {
		cfg.Hasher = lshgo.HasherType(f.hasher)
	}
	if changed("pivots") {
		cfg.NumPivots = f.pivots
	}
	if changed("shards") {
		cfg.Shards = f.shards
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("metric") {
		metric = f.metric
	}
	if changed("compression") {
		compression = f.compression
	}

	if metric != "" {
		m, err := distance.ParseMetric(metric)
		if err != nil {
			return lshgo.Config{}, err
		}
		cfg.Metric = m
	}
	if compression != "" {
		c, err := persistence.ParseCompression(compression)
		if err != nil {
			return lshgo.Config{}, err
		}
		cfg.Compression = c
	}

	cfg = cfg.OrDefault()
	if err := cfg.Validate(); err != nil {
		return lshgo.Config{}, err
	}
	return cfg, nil
}

func (f *benchFlags) logger() *lshgo.Logger {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	return lshgo.NewTextLogger(level)
}

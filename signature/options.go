package signature

import (
	"math/rand/v2"

	"github.com/hupe1980/lshgo/distance"
)

// Option configures a hasher.
type Option func(*options)

type options struct {
	seed   uint64
	seeded bool
	strict bool
	metric distance.Metric
}

func defaultOptions() options {
	return options{metric: distance.MetricL2}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithSeed makes construction deterministic. Without it a random seed is used.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithStrictRange makes RandomProjection fail with ErrSignatureOverflow when a
// raw bucket falls outside [0, Mask] instead of masking it.
func WithStrictRange() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithMetric sets the distance used by Pivot.Sign. Defaults to MetricL2.
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

func (o options) rng() *rand.Rand {
	seed := o.seed
	if !o.seeded {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
}

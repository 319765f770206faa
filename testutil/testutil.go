package testutil

import (
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/lshgo/distance"
)

// Neighbor is a reference search result.
type Neighbor struct {
	ID       int
	Distance float32
}

// RNG wraps a seeded math/rand source. It is safe for concurrent use.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset rewinds the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// UniformVectors generates num vectors with values in [0, 1) backed by one array.
func (r *RNG) UniformVectors(num, dim int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.fill(num, dim, func() float32 { return r.rand.Float32() })
}

// GaussianVectors generates num vectors with standard-normal components.
func (r *RNG) GaussianVectors(num, dim int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.fill(num, dim, func() float32 { return float32(r.rand.NormFloat64()) })
}

// UnitVectors generates num L2-normalized vectors.
func (r *RNG) UnitVectors(num, dim int) [][]float32 {
	vectors := r.GaussianVectors(num, dim)

	for _, vec := range vectors {
		norm := math.Sqrt(float64(distance.Dot(dim, vec, vec)))
		if norm == 0 {
			continue
		}
		inv := float32(1 / norm)
		for j := range vec {
			vec[j] *= inv
		}
	}

	return vectors
}

// ClusteredVectors generates num vectors around clusters unit centroids with
// Gaussian noise of the given spread. Vector i belongs to cluster i%clusters.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) [][]float32 {
	centroids := r.UnitVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	i := 0
	return r.fill(num, dim, func() float32 {
		c := centroids[(i/dim)%clusters]
		v := c[i%dim] + float32(r.rand.NormFloat64())*spread
		i++
		return v
	})
}

// fill must be called with r.mu held.
func (r *RNG) fill(num, dim int, next func() float32) [][]float32 {
	data := make([]float32, num*dim)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dim : (i+1)*dim]
		for j := range vec {
			vec[j] = next()
		}
		vectors[i] = vec
	}

	return vectors
}

// Flatten copies vectors into one row-major slice.
func Flatten(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	out := make([]float32, 0, len(vectors)*len(vectors[0]))
	for _, v := range vectors {
		out = append(out, v...)
	}
	return out
}

// BruteForceKNN returns the exact k nearest rows of data for every query,
// ascending by distance with ties broken by lower id.
func BruteForceKNN(queries, data [][]float32, k int, fn distance.Func) [][]Neighbor {
	results := make([][]Neighbor, len(queries))

	for qi, q := range queries {
		all := make([]Neighbor, len(data))
		for id, v := range data {
			all[id] = Neighbor{ID: id, Distance: fn(len(q), q, v)}
		}

		slices.SortStableFunc(all, func(a, b Neighbor) int {
			switch {
			case a.Distance < b.Distance:
				return -1
			case a.Distance > b.Distance:
				return 1
			default:
				return a.ID - b.ID
			}
		})

		results[qi] = all[:min(k, len(all))]
	}

	return results
}

// ComputeRecall returns the fraction of ground-truth ids found in approximate.
func ComputeRecall(groundTruth, approximate []Neighbor) float64 {
	if len(groundTruth) == 0 {
		if len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	truth := make(map[int]struct{}, len(groundTruth))
	for _, n := range groundTruth {
		truth[n.ID] = struct{}{}
	}

	hits := 0
	for _, n := range approximate {
		if _, ok := truth[n.ID]; ok {
			hits++
			delete(truth, n.ID)
		}
	}

	return float64(hits) / float64(len(groundTruth))
}

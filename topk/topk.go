package topk

import (
	"errors"
	"fmt"

	"github.com/hupe1980/lshgo/distance"
)

var (
	// ErrInvalidArgument is returned by New for an invalid configuration.
	ErrInvalidArgument = errors.New("topk: invalid argument")
	// ErrOutOfRange is returned by Push for a query or candidate id outside
	// the configured vectors. It signals a broken candidate source.
	ErrOutOfRange = errors.New("topk: id out of range")
)

// Result is a candidate and its exact distance to the query.
type Result struct {
	ID       int
	Distance float32
}

// Option configures a Selector.
type Option func(*Selector)

// WithDistance sets the distance used for refinement. Defaults to distance.L2.
func WithDistance(fn distance.Func) Option {
	return func(s *Selector) {
		if fn != nil {
			s.dist = fn
		}
	}
}

// Selector collects the k nearest candidates per query.
type Selector struct {
	k       int
	dim     int
	queries [][]float32
	data    [][]float32
	dist    distance.Func
	heaps   []maxHeap
}

// New creates a selector for the given query and reference vectors. The
// vectors are read, never modified, and must outlive the selector.
func New(k int, queries, data [][]float32, opts ...Option) (*Selector, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}

	dim := -1
	check := func(kind string, vecs [][]float32) error {
		for i, v := range vecs {
			if dim < 0 {
				dim = len(v)
			}
			if len(v) == 0 {
				return fmt.Errorf("%w: %s %d is empty", ErrInvalidArgument, kind, i)
			}
			if len(v) != dim {
				return fmt.Errorf("%w: %s %d has dimension %d, expected %d", ErrInvalidArgument, kind, i, len(v), dim)
			}
		}
		return nil
	}

	if err := check("query", queries); err != nil {
		return nil, err
	}
	if err := check("vector", data); err != nil {
		return nil, err
	}

	s := &Selector{
		k:       k,
		dim:     max(dim, 0),
		queries: queries,
		data:    data,
		dist:    distance.L2,
		heaps:   make([]maxHeap, len(queries)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// K returns the per-query capacity.
func (s *Selector) K() int {
	return s.k
}

// NumQueries returns the number of queries.
func (s *Selector) NumQueries() int {
	return len(s.queries)
}

// Push evaluates candidateID against queryID.
func (s *Selector) Push(queryID, candidateID int) error {
	if queryID < 0 || queryID >= len(s.queries) {
		return fmt.Errorf("%w: query %d not in [0, %d)", ErrOutOfRange, queryID, len(s.queries))
	}
	if candidateID < 0 || candidateID >= len(s.data) {
		return fmt.Errorf("%w: candidate %d not in [0, %d)", ErrOutOfRange, candidateID, len(s.data))
	}

	d := s.dist(s.dim, s.queries[queryID], s.data[candidateID])
	s.heaps[queryID].pushBounded(Result{ID: candidateID, Distance: d}, s.k)

	return nil
}

// Len returns the number of entries currently held for queryID.
func (s *Selector) Len(queryID int) int {
	if queryID < 0 || queryID >= len(s.heaps) {
		return 0
	}
	return s.heaps[queryID].Len()
}

// Results drains every heap and returns, per query, at most k results
// ascending by distance. Subsequent calls return empty lists until new
// candidates are pushed.
func (s *Selector) Results() [][]Result {
	out := make([][]Result, len(s.heaps))
	for i := range s.heaps {
		out[i] = s.heaps[i].drain()
	}
	return out
}

// ResultsFor drains the heap of a single query.
func (s *Selector) ResultsFor(queryID int) ([]Result, error) {
	if queryID < 0 || queryID >= len(s.heaps) {
		return nil, fmt.Errorf("%w: query %d not in [0, %d)", ErrOutOfRange, queryID, len(s.heaps))
	}
	return s.heaps[queryID].drain(), nil
}

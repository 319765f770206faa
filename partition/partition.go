// Package partition splits a collection into near-equal contiguous shards.
package partition

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for a negative size or a non-positive shard count.
var ErrInvalidArgument = errors.New("partition: invalid argument")

// Range is the half-open index range [Begin, End).
type Range struct {
	Begin int
	End   int
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	return r.End - r.Begin
}

// Uniform returns m contiguous ranges covering [0, n). Shard i covers
// [ceil(n*i/m), ceil(n*(i+1)/m)), so every size is within one of n/m.
func Uniform(n, m int) ([]Range, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrInvalidArgument, n)
	}
	if m <= 0 {
		return nil, fmt.Errorf("%w: shard count must be positive, got %d", ErrInvalidArgument, m)
	}

	ranges := make([]Range, m)
	for i := range m {
		ranges[i] = Range{
			Begin: ceilDiv(n*i, m),
			End:   ceilDiv(n*(i+1), m),
		}
	}

	return ranges, nil
}

// Split moves items into m shards laid out by Uniform. Each shard is a fresh
// slice; the elements of items are zeroed, so the caller must not reuse it.
func Split[T any](items []T, m int) ([][]T, error) {
	ranges, err := Uniform(len(items), m)
	if err != nil {
		return nil, err
	}

	shards := make([][]T, m)
	for i, r := range ranges {
		shard := make([]T, r.Len())
		copy(shard, items[r.Begin:r.End])
		shards[i] = shard
	}

	clear(items)

	return shards, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

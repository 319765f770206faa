package bucket

import (
	"context"
	"errors"

	"github.com/hupe1980/lshgo/signature"
)

var (
	// ErrAlreadyBuilt is returned when Build is called a second time.
	ErrAlreadyBuilt = errors.New("bucket: engine already built")
	// ErrNotBuilt is returned when an engine is queried before Build.
	ErrNotBuilt = errors.New("bucket: engine not built")
	// ErrInvalidArgument is returned for invalid configuration.
	ErrInvalidArgument = errors.New("bucket: invalid argument")
	// ErrSignatureLength is returned when a signature length differs from the
	// length the engine was built with.
	ErrSignatureLength = errors.New("bucket: signature length mismatch")
	// ErrResultCount is returned when a shard engine answers a batch with a
	// different number of candidate lists than queries.
	ErrResultCount = errors.New("bucket: result count mismatch")
)

// Engine is a bucket index over signatures.
type Engine interface {
	// Build indexes the signatures of N objects. It may be called at most once.
	Build(ctx context.Context, sigs []signature.Signature) error
	// BatchQuery returns one candidate list per query signature. Candidate ids
	// are positions in the slice passed to Build.
	BatchQuery(ctx context.Context, sigs []signature.Signature) ([][]int, error)
	// SelectPolicy describes how the engine executes.
	SelectPolicy() Policy
	// Len returns the number of indexed objects.
	Len() int
}

// Policy describes the execution context of an engine. Callers may log or
// inspect it; engines do not require it to be passed back.
type Policy struct {
	Engine  string // engine name
	Shards  int    // independent partitions queried per batch
	Workers int    // goroutines used per batch
	TopK    int    // candidates returned per query and shard
}

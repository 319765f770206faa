package lshgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/lshgo/batch"
	"github.com/hupe1980/lshgo/bucket"
	"github.com/hupe1980/lshgo/distance"
	"github.com/hupe1980/lshgo/partition"
	"github.com/hupe1980/lshgo/persistence"
	"github.com/hupe1980/lshgo/signature"
	"github.com/hupe1980/lshgo/topk"
)

var (
	// ErrInvalidArgument is returned for invalid configuration or input.
	ErrInvalidArgument = errors.New("lshgo: invalid argument")

	// ErrContractViolation is returned when a component breaks the contract
	// of another (an engine answering with the wrong number of lists, a
	// candidate id outside the dataset, a second Build). The operation is
	// aborted and never retried.
	ErrContractViolation = errors.New("lshgo: contract violation")

	// ErrNotBuilt is returned when an index is queried or saved before Build.
	ErrNotBuilt = fmt.Errorf("%w: index not built", ErrContractViolation)

	// ErrAlreadyBuilt is returned by a second Build.
	ErrAlreadyBuilt = fmt.Errorf("%w: index already built", ErrContractViolation)
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	Index    int // position of the offending vector
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch at %d: expected %d, got %d", e.Index, e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return ErrInvalidArgument }

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return ErrInvalidArgument }

var invalidArgumentErrors = []error{
	signature.ErrInvalidArgument,
	signature.ErrDimensionMismatch,
	partition.ErrInvalidArgument,
	bucket.ErrInvalidArgument,
	bucket.ErrSignatureLength,
	batch.ErrInvalidArgument,
	topk.ErrInvalidArgument,
	distance.ErrUnsupportedMetric,
	persistence.ErrUnknownCompression,
}

var contractErrors = []error{
	signature.ErrSignatureOverflow,
	bucket.ErrAlreadyBuilt,
	bucket.ErrNotBuilt,
	bucket.ErrResultCount,
	batch.ErrBatchSizeMismatch,
	topk.ErrOutOfRange,
}

// translateError maps package sentinels onto ErrInvalidArgument and
// ErrContractViolation. The original error stays reachable through errors.Is.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrContractViolation) {
		return err
	}

	for _, target := range invalidArgumentErrors {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
	}
	for _, target := range contractErrors {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %w", ErrContractViolation, err)
		}
	}

	return err
}

package signature

import (
	"context"
	"encoding"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	// Mask is applied to every signature component.
	Mask = 0x7FFF
	// MaxPivots is the largest pivot count whose indices survive the mask.
	MaxPivots = Mask + 1
)

var (
	// ErrInvalidArgument is returned for invalid construction parameters.
	ErrInvalidArgument = errors.New("signature: invalid argument")
	// ErrDimensionMismatch is returned when a vector has the wrong length.
	ErrDimensionMismatch = errors.New("signature: dimension mismatch")
	// ErrSignatureOverflow is returned when a raw bucket cannot be represented.
	ErrSignatureOverflow = errors.New("signature: bucket out of range")
)

// Signature is a fixed-length integer summary of a vector.
type Signature []int32

// Valid reports whether every component lies in [0, Mask].
func (s Signature) Valid() bool {
	for _, v := range s {
		if v < 0 || v > Mask {
			return false
		}
	}
	return true
}

// Hasher maps vectors of a fixed dimension to signatures of a fixed length.
type Hasher interface {
	// Dim returns the expected vector dimension.
	Dim() int
	// SigDim returns the signature length.
	SigDim() int
	// Sign computes the masked signature of vec.
	Sign(vec []float32) (Signature, error)

	encoding.BinaryMarshaler
}

// SignAll signs every vector in parallel with at most workers goroutines
// (GOMAXPROCS when workers <= 0). The result is in input order.
func SignAll(ctx context.Context, h Hasher, vecs [][]float32, workers int) ([]Signature, error) {
	sigs := make([]Signature, len(vecs))
	if len(vecs) == 0 {
		return sigs, nil
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	chunk := max(1, (len(vecs)+workers*4-1)/(workers*4))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(vecs); start += chunk {
		end := min(start+chunk, len(vecs))

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				sig, err := h.Sign(vecs[i])
				if err != nil {
					return err
				}
				sigs[i] = sig
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return sigs, nil
}

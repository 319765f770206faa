package signature

import (
	"fmt"
	"math"

	"github.com/hupe1980/lshgo/internal/conv"
	"github.com/hupe1980/lshgo/persistence"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// RandomProjection is the p-stable LSH family for Euclidean space.
type RandomProjection struct {
	dim     int
	k       int
	r       float32
	strict  bool
	matrix  []float32 // k x dim, row-major
	offsets []float32 // k, each in [0, r)
}

var _ Hasher = (*RandomProjection)(nil)

// NewRandomProjection draws k standard-normal projection rows of length dim and
// k offsets uniform in [0, r).
func NewRandomProjection(dim, k int, r float32, opts ...Option) (*RandomProjection, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidArgument, dim)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: signature length must be positive, got %d", ErrInvalidArgument, k)
	}
	if !(r > 0) || math.IsInf(float64(r), 0) {
		return nil, fmt.Errorf("%w: radius must be positive and finite, got %v", ErrInvalidArgument, r)
	}

	o := applyOptions(opts)
	rng := o.rng()

	h := &RandomProjection{
		dim:     dim,
		k:       k,
		r:       r,
		strict:  o.strict,
		matrix:  make([]float32, k*dim),
		offsets: make([]float32, k),
	}

	for i := range h.matrix {
		h.matrix[i] = float32(rng.NormFloat64())
	}

	for i := range h.offsets {
		b := float32(rng.Float64() * float64(r))
		if b >= r {
			b = math.Nextafter32(r, 0)
		}
		h.offsets[i] = b
	}

	return h, nil
}

// Dim returns the expected vector dimension.
func (h *RandomProjection) Dim() int { return h.dim }

// SigDim returns the number of projections.
func (h *RandomProjection) SigDim() int { return h.k }

// Radius returns the quantization width r.
func (h *RandomProjection) Radius() float32 { return h.r }

// Strict reports whether out-of-range buckets are rejected.
func (h *RandomProjection) Strict() bool { return h.strict }

// SignRaw writes the unmasked buckets of vec into dst, allocating when dst is
// too short, and returns it.
func (h *RandomProjection) SignRaw(vec []float32, dst []int32) ([]int32, error) {
	if len(vec) != h.dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, h.dim, len(vec))
	}

	if cap(dst) < h.k {
		dst = make([]int32, h.k)
	}
	dst = dst[:h.k]

	// y = P·v + b
	y := make([]float32, h.k)
	copy(y, h.offsets)

	blas32.Gemv(
		blas.NoTrans,
		1.0,
		blas32.General{Rows: h.k, Cols: h.dim, Stride: h.dim, Data: h.matrix},
		blas32.Vector{N: h.dim, Inc: 1, Data: vec},
		1.0,
		blas32.Vector{N: h.k, Inc: 1, Data: y},
	)

	for i, p := range y {
		bucket, err := conv.Float64ToInt32(math.Floor(float64(p) / float64(h.r)))
		if err != nil {
			return nil, fmt.Errorf("%w: projection %d: %w", ErrSignatureOverflow, i, err)
		}
		dst[i] = bucket
	}

	return dst, nil
}

// Sign computes the masked signature of vec.
func (h *RandomProjection) Sign(vec []float32) (Signature, error) {
	raw, err := h.SignRaw(vec, nil)
	if err != nil {
		return nil, err
	}

	for i, v := range raw {
		if h.strict && (v < 0 || v > Mask) {
			return nil, fmt.Errorf("%w: projection %d has bucket %d", ErrSignatureOverflow, i, v)
		}
		raw[i] = v & Mask
	}

	return Signature(raw), nil
}

// MarshalBinary encodes the projection parameters.
func (h *RandomProjection) MarshalBinary() ([]byte, error) {
	enc := persistence.NewEncoder(32 + 4*(len(h.matrix)+len(h.offsets)))
	if err := enc.PutInt(h.dim); err != nil {
		return nil, err
	}
	if err := enc.PutInt(h.k); err != nil {
		return nil, err
	}
	enc.PutFloat32(h.r)
	enc.PutBool(h.strict)
	enc.PutFloat32s(h.matrix)
	enc.PutFloat32s(h.offsets)
	return enc.Bytes(), nil
}

// UnmarshalBinary restores parameters written by MarshalBinary.
func (h *RandomProjection) UnmarshalBinary(data []byte) error {
	dec := persistence.NewDecoder(data)

	dim := dec.Int()
	k := dec.Int()
	r := dec.Float32()
	strict := dec.Bool()
	if err := dec.Err(); err != nil {
		return err
	}

	if dim <= 0 || k <= 0 || !(r > 0) || k > dec.Remaining()/4/dim {
		return fmt.Errorf("%w: projection header dim=%d k=%d r=%v", persistence.ErrCorrupt, dim, k, r)
	}

	matrix := dec.Float32s(k * dim)
	offsets := dec.Float32s(k)
	if err := dec.Err(); err != nil {
		return err
	}
	if dec.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", persistence.ErrCorrupt, dec.Remaining())
	}

	*h = RandomProjection{
		dim:     dim,
		k:       k,
		r:       r,
		strict:  strict,
		matrix:  matrix,
		offsets: offsets,
	}

	return nil
}

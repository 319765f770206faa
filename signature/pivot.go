package signature

import (
	"fmt"
	"slices"

	"github.com/hupe1980/lshgo/distance"
	"github.com/hupe1980/lshgo/persistence"
)

// Pivot signs a vector with the indices of its nearest pivots.
type Pivot struct {
	dim     int
	sigDim  int
	nPivots int
	metric  distance.Metric
	dist    distance.Func
	pivots  []float32 // nPivots x dim, row-major
}

var _ Hasher = (*Pivot)(nil)

// NewPivot samples nPivots rows of dataset uniformly with replacement and
// copies them as pivots.
func NewPivot(dim, sigDim, nPivots int, dataset [][]float32, opts ...Option) (*Pivot, error) {
	switch {
	case dim <= 0:
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidArgument, dim)
	case sigDim <= 0:
		return nil, fmt.Errorf("%w: signature length must be positive, got %d", ErrInvalidArgument, sigDim)
	case nPivots < sigDim:
		return nil, fmt.Errorf("%w: pivot count %d is smaller than signature length %d", ErrInvalidArgument, nPivots, sigDim)
	case nPivots > MaxPivots:
		return nil, fmt.Errorf("%w: pivot count %d exceeds %d", ErrInvalidArgument, nPivots, MaxPivots)
	case len(dataset) == 0:
		return nil, fmt.Errorf("%w: empty dataset", ErrInvalidArgument)
	}

	for i, row := range dataset {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: dataset row %d has dimension %d, expected %d", ErrInvalidArgument, i, len(row), dim)
		}
	}

	o := applyOptions(opts)
	rng := o.rng()

	sampled := make([][]float32, nPivots)
	for i := range sampled {
		sampled[i] = dataset[rng.IntN(len(dataset))]
	}

	return newPivot(dim, sigDim, sampled, o)
}

// NewPivotFromSet uses the given rows as pivots instead of sampling them.
func NewPivotFromSet(dim, sigDim int, pivots [][]float32, opts ...Option) (*Pivot, error) {
	switch {
	case dim <= 0:
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidArgument, dim)
	case sigDim <= 0:
		return nil, fmt.Errorf("%w: signature length must be positive, got %d", ErrInvalidArgument, sigDim)
	case len(pivots) < sigDim:
		return nil, fmt.Errorf("%w: pivot count %d is smaller than signature length %d", ErrInvalidArgument, len(pivots), sigDim)
	case len(pivots) > MaxPivots:
		return nil, fmt.Errorf("%w: pivot count %d exceeds %d", ErrInvalidArgument, len(pivots), MaxPivots)
	}

	for i, row := range pivots {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: pivot %d has dimension %d, expected %d", ErrInvalidArgument, i, len(row), dim)
		}
	}

	return newPivot(dim, sigDim, pivots, applyOptions(opts))
}

func newPivot(dim, sigDim int, rows [][]float32, o options) (*Pivot, error) {
	fn, err := distance.Provider(o.metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	pivots := make([]float32, 0, len(rows)*dim)
	for _, row := range rows {
		pivots = append(pivots, row...)
	}

	return &Pivot{
		dim:     dim,
		sigDim:  sigDim,
		nPivots: len(rows),
		metric:  o.metric,
		dist:    fn,
		pivots:  pivots,
	}, nil
}

// Dim returns the expected vector dimension.
func (h *Pivot) Dim() int { return h.dim }

// SigDim returns the number of nearest pivots per signature.
func (h *Pivot) SigDim() int { return h.sigDim }

// NumPivots returns the pivot count.
func (h *Pivot) NumPivots() int { return h.nPivots }

// Metric returns the distance used by Sign.
func (h *Pivot) Metric() distance.Metric { return h.metric }

// PivotAt returns pivot i. The slice must not be modified.
func (h *Pivot) PivotAt(i int) []float32 {
	return h.pivots[i*h.dim : (i+1)*h.dim]
}

// Sign signs vec with the configured metric.
func (h *Pivot) Sign(vec []float32) (Signature, error) {
	return h.SignWith(vec, h.dist)
}

// SignWith computes the distances from vec to every pivot with fn and returns
// the indices of the sigdim nearest pivots, nearest first.
func (h *Pivot) SignWith(vec []float32, fn distance.Func) (Signature, error) {
	if len(vec) != h.dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, h.dim, len(vec))
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: nil distance function", ErrInvalidArgument)
	}

	dists := make([]float32, h.nPivots)
	idx := make([]int32, h.nPivots)
	for i := range dists {
		dists[i] = fn(h.dim, vec, h.PivotAt(i))
		idx[i] = int32(i)
	}

	selectNearest(idx, dists, h.sigDim)

	sig := make(Signature, h.sigDim)
	for i := range sig {
		sig[i] = idx[i] & Mask
	}

	return sig, nil
}

// selectNearest partially orders idx so that its first k entries are the k
// indices with the smallest distance in ascending order (ties broken by lower
// index). The remaining entries are left unordered.
func selectNearest(idx []int32, dists []float32, k int) {
	if k <= 0 {
		return
	}

	less := func(a, b int32) bool {
		if dists[a] != dists[b] {
			return dists[a] < dists[b]
		}
		return a < b
	}
	k = min(k, len(idx))
	quickselect(idx, k, less)
	slices.SortFunc(idx[:k], func(a, b int32) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	})
}

// quickselect moves the k smallest entries of idx under less to its front.
func quickselect(idx []int32, k int, less func(a, b int32) bool) {
	if k >= len(idx) {
		return
	}

	lo, hi := 0, len(idx)-1
	for lo < hi {
		// Median of three ends up in idx[hi].
		mid := lo + (hi-lo)/2
		if less(idx[mid], idx[lo]) {
			idx[mid], idx[lo] = idx[lo], idx[mid]
		}
		if less(idx[hi], idx[lo]) {
			idx[hi], idx[lo] = idx[lo], idx[hi]
		}
		if less(idx[mid], idx[hi]) {
			idx[mid], idx[hi] = idx[hi], idx[mid]
		}

		pivot := idx[hi]
		store := lo
		for i := lo; i < hi; i++ {
			if less(idx[i], pivot) {
				idx[i], idx[store] = idx[store], idx[i]
				store++
			}
		}
		idx[store], idx[hi] = idx[hi], idx[store]

		switch {
		case store == k-1:
			return
		case store > k-1:
			hi = store - 1
		default:
			lo = store + 1
		}
	}
}

// MarshalBinary encodes the pivot set.
func (h *Pivot) MarshalBinary() ([]byte, error) {
	enc := persistence.NewEncoder(32 + 4*len(h.pivots))
	if err := enc.PutInt(h.dim); err != nil {
		return nil, err
	}
	if err := enc.PutInt(h.sigDim); err != nil {
		return nil, err
	}
	if err := enc.PutInt(h.nPivots); err != nil {
		return nil, err
	}
	enc.PutUint8(uint8(h.metric))
	enc.PutFloat32s(h.pivots)
	return enc.Bytes(), nil
}

// UnmarshalBinary restores a pivot set written by MarshalBinary.
func (h *Pivot) UnmarshalBinary(data []byte) error {
	dec := persistence.NewDecoder(data)

	dim := dec.Int()
	sigDim := dec.Int()
	nPivots := dec.Int()
	metric := distance.Metric(dec.Uint8())
	if err := dec.Err(); err != nil {
		return err
	}

	if dim <= 0 || sigDim <= 0 || nPivots < sigDim || nPivots > MaxPivots || nPivots > dec.Remaining()/4/dim {
		return fmt.Errorf("%w: pivot header dim=%d sigdim=%d pivots=%d", persistence.ErrCorrupt, dim, sigDim, nPivots)
	}

	fn, err := distance.Provider(metric)
	if err != nil {
		return fmt.Errorf("%w: %w", persistence.ErrCorrupt, err)
	}

	pivots := dec.Float32s(nPivots * dim)
	if err := dec.Err(); err != nil {
		return err
	}
	if dec.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", persistence.ErrCorrupt, dec.Remaining())
	}

	*h = Pivot{
		dim:     dim,
		sigDim:  sigDim,
		nPivots: nPivots,
		metric:  metric,
		dist:    fn,
		pivots:  pivots,
	}

	return nil
}

package bucket

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/lshgo/internal/conv"
	"github.com/hupe1980/lshgo/persistence"
	"github.com/hupe1980/lshgo/signature"
	"golang.org/x/sync/errgroup"
)

// Inverted is a count-based inverted signature table.
//
// Build is not safe to call concurrently with queries. After Build, BatchQuery
// may be called from multiple goroutines.
type Inverted struct {
	topK       int
	minMatches int
	workers    int

	built    atomic.Bool
	sigDim   int
	n        int
	postings []map[int32]*roaring.Bitmap // per signature position

	counts *sync.Pool // *[]uint16 of length n
}

var _ Engine = (*Inverted)(nil)

// NewInverted creates an empty inverted engine.
func NewInverted(opts ...Option) (*Inverted, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.topK <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive, got %d", ErrInvalidArgument, o.topK)
	}
	if o.minMatches <= 0 {
		return nil, fmt.Errorf("%w: minimum matches must be positive, got %d", ErrInvalidArgument, o.minMatches)
	}

	return &Inverted{
		topK:       o.topK,
		minMatches: o.minMatches,
		workers:    o.workers,
	}, nil
}

// Len returns the number of indexed objects.
func (e *Inverted) Len() int {
	return e.n
}

// SigDim returns the signature length fixed by Build.
func (e *Inverted) SigDim() int {
	return e.sigDim
}

// Build indexes sigs. All signatures must have the same length.
func (e *Inverted) Build(ctx context.Context, sigs []signature.Signature) error {
	if e.built.Load() {
		return ErrAlreadyBuilt
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := conv.IntToUint32(len(sigs)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	sigDim := 0
	if len(sigs) > 0 {
		sigDim = len(sigs[0])
	}
	if sigDim > math.MaxUint16 {
		return fmt.Errorf("%w: signature length %d exceeds %d", ErrInvalidArgument, sigDim, math.MaxUint16)
	}

	postings := make([]map[int32]*roaring.Bitmap, sigDim)
	for p := range postings {
		postings[p] = make(map[int32]*roaring.Bitmap)
	}

	for id, sig := range sigs {
		if len(sig) != sigDim {
			return fmt.Errorf("%w: object %d has length %d, expected %d", ErrSignatureLength, id, len(sig), sigDim)
		}
		for p, v := range sig {
			bm, ok := postings[p][v]
			if !ok {
				bm = roaring.New()
				postings[p][v] = bm
			}
			bm.Add(uint32(id))
		}
	}

	for _, table := range postings {
		for _, bm := range table {
			bm.RunOptimize()
		}
	}

	e.install(sigDim, len(sigs), postings)

	return nil
}

func (e *Inverted) install(sigDim, n int, postings []map[int32]*roaring.Bitmap) {
	e.sigDim = sigDim
	e.n = n
	e.postings = postings
	e.counts = &sync.Pool{New: func() any {
		buf := make([]uint16, n)
		return &buf
	}}
	e.built.Store(true)
}

// BatchQuery returns, per query, up to top-k ids ordered by descending match
// count (ties by ascending id).
func (e *Inverted) BatchQuery(ctx context.Context, sigs []signature.Signature) ([][]int, error) {
	if !e.built.Load() {
		return nil, ErrNotBuilt
	}

	results := make([][]int, len(sigs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, sig := range sigs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ids, err := e.query(sig)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = ids
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (e *Inverted) query(sig signature.Signature) ([]int, error) {
	if e.n == 0 {
		return []int{}, nil
	}
	if len(sig) != e.sigDim {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrSignatureLength, len(sig), e.sigDim)
	}

	bufp := e.counts.Get().(*[]uint16)
	counts := *bufp
	defer func() {
		e.counts.Put(bufp)
	}()

	var touched []uint32
	for p, v := range sig {
		bm, ok := e.postings[p][v]
		if !ok {
			continue
		}
		it := bm.Iterator()
		for it.HasNext() {
			id := it.Next()
			if counts[id] == 0 {
				touched = append(touched, id)
			}
			counts[id]++
		}
	}

	type hit struct {
		id    uint32
		count uint16
	}

	hits := make([]hit, 0, len(touched))
	for _, id := range touched {
		if int(counts[id]) >= e.minMatches {
			hits = append(hits, hit{id: id, count: counts[id]})
		}
		counts[id] = 0
	}

	slices.SortFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	out := make([]int, min(len(hits), e.topK))
	for i := range out {
		out[i] = int(hits[i].id)
	}

	return out, nil
}

// SelectPolicy reports a single in-process partition.
func (e *Inverted) SelectPolicy() Policy {
	return Policy{Engine: "inverted", Shards: 1, Workers: e.workers, TopK: e.topK}
}

// MarshalBinary encodes the built table. Posting lists use roaring's portable
// serialization format.
func (e *Inverted) MarshalBinary() ([]byte, error) {
	if !e.built.Load() {
		return nil, ErrNotBuilt
	}

	enc := persistence.NewEncoder(1024)
	for _, v := range []int{e.topK, e.minMatches, e.sigDim, e.n} {
		if err := enc.PutInt(v); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	for _, table := range e.postings {
		values := make([]int32, 0, len(table))
		for v := range table {
			values = append(values, v)
		}
		slices.Sort(values)

		if err := enc.PutInt(len(values)); err != nil {
			return nil, err
		}
		for _, v := range values {
			buf.Reset()
			if _, err := table[v].WriteTo(&buf); err != nil {
				return nil, fmt.Errorf("encode posting list: %w", err)
			}
			enc.PutUint32(uint32(v))
			enc.PutBytes(buf.Bytes())
		}
	}

	return enc.Bytes(), nil
}

// UnmarshalBinary restores an engine written by MarshalBinary. The engine must
// not have been built.
func (e *Inverted) UnmarshalBinary(data []byte) error {
	if e.built.Load() {
		return ErrAlreadyBuilt
	}

	dec := persistence.NewDecoder(data)
	topK := dec.Int()
	minMatches := dec.Int()
	sigDim := dec.Int()
	n := dec.Int()
	if err := dec.Err(); err != nil {
		return err
	}
	if topK <= 0 || minMatches <= 0 || sigDim > math.MaxUint16 || sigDim > dec.Remaining() {
		return fmt.Errorf("%w: inverted header topk=%d min=%d sigdim=%d", persistence.ErrCorrupt, topK, minMatches, sigDim)
	}
	if _, err := conv.IntToUint32(n); err != nil {
		return fmt.Errorf("%w: %w", persistence.ErrCorrupt, err)
	}

	postings := make([]map[int32]*roaring.Bitmap, sigDim)
	for p := range postings {
		count := dec.Int()
		if err := dec.Err(); err != nil {
			return err
		}
		if count > dec.Remaining() {
			return fmt.Errorf("%w: %d posting lists at position %d", persistence.ErrCorrupt, count, p)
		}

		table := make(map[int32]*roaring.Bitmap, count)
		for range count {
			v := int32(dec.Uint32())
			raw := dec.Bytes()
			if err := dec.Err(); err != nil {
				return err
			}

			bm := roaring.New()
			if _, err := bm.ReadFrom(bytes.NewReader(raw)); err != nil {
				return fmt.Errorf("%w: posting list: %w", persistence.ErrCorrupt, err)
			}
			if bm.GetCardinality() > 0 && uint64(bm.Maximum()) >= uint64(n) {
				return fmt.Errorf("%w: posting id %d exceeds %d objects", persistence.ErrCorrupt, bm.Maximum(), n)
			}
			table[v] = bm
		}
		postings[p] = table
	}

	if dec.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", persistence.ErrCorrupt, dec.Remaining())
	}

	e.topK = topK
	e.minMatches = minMatches
	if e.workers <= 0 {
		e.workers = defaultOptions().workers
	}
	e.install(sigDim, n, postings)

	return nil
}

package blobstore

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited throttles the bytes moved through another Store.
//
// Put waits for len(data) tokens before writing, Get waits for the size of
// the returned blob after reading. Metadata operations are not throttled.
type RateLimited struct {
	store   Store
	limiter *rate.Limiter
}

// NewRateLimited wraps store with a limit of bytesPerSec. A non-positive
// limit disables throttling.
func NewRateLimited(store Store, bytesPerSec int) *RateLimited {
	r := &RateLimited{store: store}
	if bytesPerSec > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec)
	}
	return r
}

func (r *RateLimited) wait(ctx context.Context, n int) error {
	if r.limiter == nil {
		return nil
	}

	// WaitN rejects requests larger than the burst.
	burst := r.limiter.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := r.limiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

// Put implements Store.
func (r *RateLimited) Put(ctx context.Context, name string, data []byte) error {
	if err := r.wait(ctx, len(data)); err != nil {
		return err
	}
	return r.store.Put(ctx, name, data)
}

// Get implements Store.
func (r *RateLimited) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := r.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := r.wait(ctx, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// Delete implements Store.
func (r *RateLimited) Delete(ctx context.Context, name string) error {
	return r.store.Delete(ctx, name)
}

// List implements Store.
func (r *RateLimited) List(ctx context.Context, prefix string) ([]string, error) {
	return r.store.List(ctx, prefix)
}

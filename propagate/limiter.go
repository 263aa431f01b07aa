package propagate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter is the process-wide cap on concurrently running heavy,
// process-bound work: stitching here, by shared convention anything else
// that monopolizes a core or saturates I/O. It is an explicitly
// constructed, explicitly passed handle: build one per process and inject
// it into every Propagator and Stitcher that should share the cap.
//
// Acquire may suspend the caller until a slot frees; waiters get whatever
// fairness the underlying semaphore provides, nothing more.
type Limiter struct {
	sem  *semaphore.Weighted
	size int64
}

// NewLimiter creates a limiter admitting up to n concurrent holders.
// n < 1 is treated as 1.
func NewLimiter(n int64) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(n), size: n}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// TryAcquire takes a slot without blocking, reporting success.
func (l *Limiter) TryAcquire() bool {
	return l.sem.TryAcquire(1)
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Size returns the configured capacity.
func (l *Limiter) Size() int64 { return l.size }

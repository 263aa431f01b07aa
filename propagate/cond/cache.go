package cond

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/flblanc/asyncmd/traj"
)

// Cached wraps a condition with per-trajectory memoization. Results are
// keyed by the trajectory's Key; trajectories without one are evaluated
// directly every time. Concurrent evaluations of the same trajectory are
// collapsed into a single underlying call.
//
// Propagation re-evaluates every condition on every segment it touches,
// once during stepping and again during cut-and-concatenate; wrapping
// conditions makes the second pass a lookup.
func Cached(c Condition) Suspending {
	return &cached{inner: c, vals: make(map[string][]bool)}
}

type cached struct {
	inner Condition
	group singleflight.Group

	mu   sync.RWMutex
	vals map[string][]bool
}

func (c *cached) Name() string { return c.inner.Name() }

func (c *cached) Evaluate(ctx context.Context, t traj.Trajectory) ([]bool, error) {
	keyer, ok := t.(traj.Keyer)
	if !ok {
		return c.call(ctx, t)
	}
	key := keyer.Key()

	c.mu.RLock()
	vals, hit := c.vals[key]
	c.mu.RUnlock()
	if hit {
		return vals, nil
	}

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		vals, err := c.call(ctx, t)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.vals[key] = vals
		c.mu.Unlock()
		return vals, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]bool), nil
}

func (c *cached) call(ctx context.Context, t traj.Trajectory) ([]bool, error) {
	switch inner := c.inner.(type) {
	case Suspending:
		return inner.Evaluate(ctx, t)
	case Blocking:
		return inner.Evaluate(t)
	default:
		return nil, errNotACondition(c.inner)
	}
}

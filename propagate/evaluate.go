package propagate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/flblanc/asyncmd/propagate/cond"
	"github.com/flblanc/asyncmd/traj"
)

// EvaluateConditions applies every condition to one trajectory and
// returns the per-condition boolean vectors at their original index
// positions. Suspending conditions run concurrently with no ordering
// guarantee among them; Blocking conditions run inline, in list order,
// each call blocking until done. A condition error propagates unchanged
// and aborts the evaluation. Vectors whose length disagrees with the
// trajectory's frame count yield a *ShapeError.
func EvaluateConditions(ctx context.Context, conditions []cond.Condition, t traj.Trajectory) ([][]bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vals := make([][]bool, len(conditions))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range conditions {
		if s, ok := c.(cond.Suspending); ok {
			i, s := i, s
			g.Go(func() error {
				v, err := s.Evaluate(gctx, t)
				if err != nil {
					return err
				}
				vals[i] = v
				return nil
			})
		}
	}
	for i, c := range conditions {
		switch b := c.(type) {
		case cond.Suspending:
			// already scheduled above
		case cond.Blocking:
			v, err := b.Evaluate(t)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		default:
			return nil, fmt.Errorf("propagate: condition %d (%T) implements neither Blocking nor Suspending", i, b)
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, v := range vals {
		if len(v) != t.Len() {
			return nil, &ShapeError{Condition: i, Name: conditions[i].Name(), Got: len(v), Want: t.Len()}
		}
	}
	return vals, nil
}

// evaluateAll evaluates the condition set on every segment concurrently
// and returns one matrix per segment, in segment order.
func evaluateAll(ctx context.Context, conditions []cond.Condition, segs []traj.Trajectory) ([][][]bool, error) {
	vals := make([][][]bool, len(segs))
	g, gctx := errgroup.WithContext(ctx)
	for i, seg := range segs {
		i, seg := i, seg
		g.Go(func() error {
			v, err := EvaluateConditions(gctx, conditions, seg)
			if err != nil {
				return err
			}
			vals[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vals, nil
}

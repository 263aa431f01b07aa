// Package cond defines the per-frame boolean conditions driving
// conditional propagation, in two explicitly dispatched variants: Blocking
// conditions run inline and stall the caller, Suspending conditions take a
// context and may be run concurrently. Implementations satisfy exactly one
// variant; the signatures of the two Evaluate methods collide on purpose
// so a single type cannot claim both.
package cond

import (
	"context"
	"fmt"

	"github.com/flblanc/asyncmd/traj"
)

func errNotACondition(c Condition) error {
	return fmt.Errorf("cond: %T implements neither Blocking nor Suspending", c)
}

// Condition is a named per-frame boolean criterion over a trajectory. The
// returned vector has one value per frame. Conditions in one propagation
// are assumed mutually exclusive per frame; this is the caller's
// responsibility and is not verified. When it is violated the lowest
// condition index wins.
type Condition interface {
	Name() string
}

// Blocking is a condition evaluated synchronously. The call blocks the
// caller for its whole duration, so prefer Suspending for anything that
// does real work.
type Blocking interface {
	Condition
	Evaluate(t traj.Trajectory) ([]bool, error)
}

// Suspending is a condition evaluated with a context; the evaluator runs
// all Suspending conditions of a set concurrently.
type Suspending interface {
	Condition
	Evaluate(ctx context.Context, t traj.Trajectory) ([]bool, error)
}

// BlockingFunc adapts a plain function into a Blocking condition.
func BlockingFunc(name string, fn func(t traj.Trajectory) ([]bool, error)) Blocking {
	return &blockingFunc{name: name, fn: fn}
}

type blockingFunc struct {
	name string
	fn   func(t traj.Trajectory) ([]bool, error)
}

func (b *blockingFunc) Name() string { return b.name }

func (b *blockingFunc) Evaluate(t traj.Trajectory) ([]bool, error) { return b.fn(t) }

// SuspendingFunc adapts a plain function into a Suspending condition.
func SuspendingFunc(name string, fn func(ctx context.Context, t traj.Trajectory) ([]bool, error)) Suspending {
	return &suspendingFunc{name: name, fn: fn}
}

type suspendingFunc struct {
	name string
	fn   func(ctx context.Context, t traj.Trajectory) ([]bool, error)
}

func (s *suspendingFunc) Name() string { return s.name }

func (s *suspendingFunc) Evaluate(ctx context.Context, t traj.Trajectory) ([]bool, error) {
	return s.fn(ctx, t)
}

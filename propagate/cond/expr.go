package cond

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/flblanc/asyncmd/traj"
)

// CVFunc computes named collective-variable series for a trajectory: one
// float64 value per frame for each variable name. Every returned series
// must have the trajectory's frame count.
type CVFunc func(ctx context.Context, t traj.Trajectory) (map[string][]float64, error)

// Expr is a Suspending condition defined by a boolean expression over
// collective variables, e.g. "rmsd < 0.2 && rg > 1.1". The expression is
// compiled once; at evaluation time it runs against each frame's variable
// values.
type Expr struct {
	name    string
	src     string
	program *vm.Program
	cvs     CVFunc
}

// NewExpr compiles source into a frame-wise boolean condition over the
// collective variables cvs provides.
func NewExpr(name, source string, cvs CVFunc) (*Expr, error) {
	program, err := expr.Compile(source, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("cond: compile %q: %w", source, err)
	}
	return &Expr{name: name, src: source, program: program, cvs: cvs}, nil
}

// Name returns the condition name.
func (e *Expr) Name() string { return e.name }

// Source returns the expression source.
func (e *Expr) Source() string { return e.src }

// Evaluate computes the collective variables for the trajectory and runs
// the expression once per frame.
func (e *Expr) Evaluate(ctx context.Context, t traj.Trajectory) ([]bool, error) {
	series, err := e.cvs(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("cond: %s: collective variables: %w", e.name, err)
	}
	n := t.Len()
	for name, vals := range series {
		if len(vals) != n {
			return nil, fmt.Errorf("cond: %s: variable %q has %d values for %d frames", e.name, name, len(vals), n)
		}
	}
	out := make([]bool, n)
	env := make(map[string]interface{}, len(series))
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for name, vals := range series {
			env[name] = vals[i]
		}
		res, err := expr.Run(e.program, env)
		if err != nil {
			return nil, fmt.Errorf("cond: %s: eval %q at frame %d: %w", e.name, e.src, i, err)
		}
		b, ok := res.(bool)
		if !ok {
			return nil, fmt.Errorf("cond: %s: expression %q returned %T, want bool", e.name, e.src, res)
		}
		out[i] = b
	}
	return out, nil
}

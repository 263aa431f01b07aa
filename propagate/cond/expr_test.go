package cond

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/flblanc/asyncmd/traj"
)

func seriesCV(series map[string][]float64) CVFunc {
	return func(ctx context.Context, t traj.Trajectory) (map[string][]float64, error) {
		return series, nil
	}
}

func TestExprEvaluate(t *testing.T) {
	cvs := seriesCV(map[string][]float64{
		"rmsd": {0.5, 0.3, 0.1, 0.05},
		"rg":   {1.0, 1.2, 1.3, 1.4},
	})

	c, err := NewExpr("folded", "rmsd < 0.2 && rg > 1.1", cvs)
	if err != nil {
		t.Fatalf("NewExpr() error = %v", err)
	}
	if c.Name() != "folded" {
		t.Errorf("Name() = %q, want %q", c.Name(), "folded")
	}

	vals, err := c.Evaluate(context.Background(), lenOnly(4))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	want := []bool{false, false, true, true}
	if !reflect.DeepEqual(vals, want) {
		t.Errorf("Evaluate() = %v, want %v", vals, want)
	}
}

func TestExprCompileError(t *testing.T) {
	if _, err := NewExpr("bad", "rmsd <", nil); err == nil {
		t.Fatal("NewExpr() accepted a malformed expression")
	}
}

func TestExprNonBoolean(t *testing.T) {
	// With undefined variables allowed, a non-boolean expression may
	// slip past compilation; it must be rejected no later than the first
	// evaluation.
	cvs := seriesCV(map[string][]float64{"rmsd": {0.1}})
	c, err := NewExpr("bad", "rmsd + 1", cvs)
	if err != nil {
		return
	}
	if _, err := c.Evaluate(context.Background(), lenOnly(1)); err == nil {
		t.Fatal("a non-boolean expression was evaluated without error")
	}
}

func TestExprSeriesLengthMismatch(t *testing.T) {
	cvs := seriesCV(map[string][]float64{"rmsd": {0.1, 0.2}})
	c, err := NewExpr("folded", "rmsd < 0.2", cvs)
	if err != nil {
		t.Fatalf("NewExpr() error = %v", err)
	}
	if _, err := c.Evaluate(context.Background(), lenOnly(3)); err == nil {
		t.Fatal("Evaluate() accepted a short variable series")
	}
}

func TestExprCVError(t *testing.T) {
	cvErr := errors.New("cv computation failed")
	cvs := func(ctx context.Context, t traj.Trajectory) (map[string][]float64, error) {
		return nil, cvErr
	}
	c, err := NewExpr("folded", "rmsd < 0.2", cvs)
	if err != nil {
		t.Fatalf("NewExpr() error = %v", err)
	}
	if _, err := c.Evaluate(context.Background(), lenOnly(1)); !errors.Is(err, cvErr) {
		t.Fatalf("Evaluate() error = %v, want wrapped cv error", err)
	}
}

// lenOnly is a trajectory that exposes only a frame count.
type lenOnly int

func (l lenOnly) Len() int { return int(l) }

package propagate

import (
	"reflect"
	"testing"

	"github.com/flblanc/asyncmd/traj"
)

func memSegs(lens ...int) []traj.Trajectory {
	segs := make([]traj.Trajectory, len(lens))
	base := 0.0
	for i, n := range lens {
		values := make([]float64, n)
		for f := range values {
			values[f] = base + float64(f)
		}
		segs[i] = ScriptedSegment("seg", values)
		base += float64(n)
	}
	return segs
}

func TestForwardPlan(t *testing.T) {
	segs := memSegs(5, 3, 4)

	t.Run("hit in last segment", func(t *testing.T) {
		hit := Hit{Segment: 2, Frame: 1}
		plan := ForwardPlan(segs, hit)
		want := traj.Plan{
			{Traj: segs[0], Slice: traj.Forward(0, 5)},
			{Traj: segs[1], Slice: traj.Forward(0, 3)},
			{Traj: segs[2], Slice: traj.Forward(0, 2)},
		}
		if !reflect.DeepEqual(plan, want) {
			t.Errorf("plan = %v, want %v", plan, want)
		}
		if plan.Frames() != 10 {
			t.Errorf("plan frames = %d, want 10", plan.Frames())
		}
	})

	t.Run("hit in first segment", func(t *testing.T) {
		hit := Hit{Segment: 0, Frame: 3}
		plan := ForwardPlan(segs, hit)
		want := traj.Plan{{Traj: segs[0], Slice: traj.Forward(0, 4)}}
		if !reflect.DeepEqual(plan, want) {
			t.Errorf("plan = %v, want %v", plan, want)
		}
	})

	t.Run("hit at frame zero of later segment", func(t *testing.T) {
		hit := Hit{Segment: 1, Frame: 0}
		plan := ForwardPlan(segs, hit)
		want := traj.Plan{
			{Traj: segs[0], Slice: traj.Forward(0, 5)},
			{Traj: segs[1], Slice: traj.Forward(0, 1)},
		}
		if !reflect.DeepEqual(plan, want) {
			t.Errorf("plan = %v, want %v", plan, want)
		}
	})

	t.Run("plan construction is pure", func(t *testing.T) {
		hit := Hit{Segment: 2, Frame: 1}
		if !reflect.DeepEqual(ForwardPlan(segs, hit), ForwardPlan(segs, hit)) {
			t.Error("two plans from the same inputs differ")
		}
	})
}

func TestTransitionPlan(t *testing.T) {
	t.Run("single segment each side", func(t *testing.T) {
		minus := memSegs(5, 3)
		plus := memSegs(4)

		plan := TransitionPlan(minus, Hit{Segment: 0, Frame: 2}, plus, Hit{Segment: 0, Frame: 1})
		want := traj.Plan{
			{Traj: minus[0], Slice: traj.Backward(2)},
			{Traj: plus[0], Slice: traj.Forward(1, 2)},
		}
		if !reflect.DeepEqual(plan, want) {
			t.Errorf("plan = %v, want %v", plan, want)
		}
		// 3 reversed minus frames (incl. the shared start) + 1 plus frame.
		if plan.Frames() != 4 {
			t.Errorf("plan frames = %d, want 4", plan.Frames())
		}
	})

	t.Run("multi segment both sides", func(t *testing.T) {
		minus := memSegs(4, 3)
		plus := memSegs(5, 2, 6)

		plan := TransitionPlan(minus, Hit{Segment: 1, Frame: 1}, plus, Hit{Segment: 2, Frame: 3})
		want := traj.Plan{
			{Traj: minus[1], Slice: traj.Backward(1)},
			{Traj: minus[0], Slice: traj.Backward(3)},
			{Traj: plus[0], Slice: traj.Forward(1, 5)},
			{Traj: plus[1], Slice: traj.Forward(0, 2)},
			{Traj: plus[2], Slice: traj.Forward(0, 4)},
		}
		if !reflect.DeepEqual(plan, want) {
			t.Errorf("plan = %v, want %v", plan, want)
		}
		// Minus contributes 2+4 reversed frames, plus 4+2+4 forward ones.
		if plan.Frames() != 16 {
			t.Errorf("plan frames = %d, want 16", plan.Frames())
		}
	})

	t.Run("shared start contributed exactly once", func(t *testing.T) {
		minus := memSegs(3)
		plus := memSegs(3)

		plan := TransitionPlan(minus, Hit{Segment: 0, Frame: 2}, plus, Hit{Segment: 0, Frame: 2})

		startReads := 0
		for _, cut := range plan {
			for _, f := range cut.Slice.Frames() {
				if cut.Traj == minus[0] && f == 0 {
					startReads++
				}
				if cut.Traj == plus[0] && f == 0 {
					startReads++
				}
			}
		}
		if startReads != 1 {
			t.Errorf("shared starting frame read %d times, want 1", startReads)
		}
	})

	t.Run("minus cuts are reversed, plus cuts are not", func(t *testing.T) {
		minus := memSegs(4, 3)
		plus := memSegs(5)

		plan := TransitionPlan(minus, Hit{Segment: 1, Frame: 2}, plus, Hit{Segment: 0, Frame: 4})
		for i, cut := range plan {
			isMinus := i < 2
			if cut.Slice.Reversed() != isMinus {
				t.Errorf("cut %d reversed = %v, want %v", i, cut.Slice.Reversed(), isMinus)
			}
		}
	})
}

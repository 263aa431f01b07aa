package propagate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/flblanc/asyncmd/propagate/cond"
	"github.com/flblanc/asyncmd/propagate/emit"
	"github.com/flblanc/asyncmd/traj"
)

func TestStitch(t *testing.T) {
	concat := traj.NewMemConcatenator()
	buf := emit.NewBufferedEmitter()
	s := NewStitcher(concat, nil, buf, nil)

	seg := ScriptedSegment("a", []float64{0, 1, 2})
	plan := traj.Plan{{Traj: seg, Slice: traj.Forward(0, 2)}}

	out, err := s.Stitch(context.Background(), plan, "out.dcd", "", false)
	if err != nil {
		t.Fatalf("Stitch() error = %v", err)
	}
	if out.Len() != 2 {
		t.Errorf("output Len() = %d, want 2", out.Len())
	}

	done := buf.HistoryWithFilter("", emit.HistoryFilter{Msg: "stitch_done"})
	if len(done) != 1 {
		t.Fatalf("got %d stitch_done events, want 1", len(done))
	}
	if done[0].Meta["frames"] != 2 {
		t.Errorf("stitch_done frames = %v, want 2", done[0].Meta["frames"])
	}
}

func TestStitchFailureEmitsError(t *testing.T) {
	concat := traj.NewMemConcatenator()
	buf := emit.NewBufferedEmitter()
	s := NewStitcher(concat, nil, buf, nil)

	seg := ScriptedSegment("a", []float64{0})
	plan := traj.Plan{{Traj: seg, Slice: traj.Forward(0, 1)}}

	if _, err := s.Stitch(context.Background(), plan, "out.dcd", "", false); err != nil {
		t.Fatalf("first Stitch() error = %v", err)
	}
	if _, err := s.Stitch(context.Background(), plan, "out.dcd", "", false); !errors.Is(err, traj.ErrOutputExists) {
		t.Fatalf("second Stitch() error = %v, want ErrOutputExists", err)
	}

	failed := buf.HistoryWithFilter("", emit.HistoryFilter{Msg: "stitch_failed"})
	if len(failed) != 1 {
		t.Errorf("got %d stitch_failed events, want 1", len(failed))
	}
}

func TestStitchHonorsLimiter(t *testing.T) {
	const capacity = 2
	const stitches = 8

	var inflight, peak int32
	gate := make(chan struct{})

	concat := traj.NewMemConcatenator()
	concat.OnConcatenate = func() {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-gate
		atomic.AddInt32(&inflight, -1)
	}

	s := NewStitcher(concat, NewLimiter(capacity), nil, nil)
	seg := ScriptedSegment("a", []float64{0, 1})

	var wg sync.WaitGroup
	for i := 0; i < stitches; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			plan := traj.Plan{{Traj: seg, Slice: traj.Forward(0, 2)}}
			out := fmt.Sprintf("out-%d.dcd", i)
			if _, err := s.Stitch(context.Background(), plan, out, "", false); err != nil {
				t.Errorf("Stitch(%s) error = %v", out, err)
			}
		}()
	}
	close(gate)
	wg.Wait()

	if got := atomic.LoadInt32(&peak); got > capacity {
		t.Errorf("peak concurrent concatenations = %d, want <= %d", got, capacity)
	}
}

func TestStitchCancelledBeforeSlot(t *testing.T) {
	limiter := NewLimiter(1)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("priming limiter: %v", err)
	}
	defer limiter.Release()

	s := NewStitcher(traj.NewMemConcatenator(), limiter, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seg := ScriptedSegment("a", []float64{0})
	plan := traj.Plan{{Traj: seg, Slice: traj.Forward(0, 1)}}
	if _, err := s.Stitch(ctx, plan, "out.dcd", "", false); !errors.Is(err, context.Canceled) {
		t.Fatalf("Stitch() error = %v, want context.Canceled", err)
	}
}

func TestConstructTransition(t *testing.T) {
	// Minus chain committed at x <= -2 (frame 2 of its only segment),
	// plus chain at x >= 2 (frame 1 of its only segment).
	minus := []traj.Trajectory{ScriptedSegment("minus", []float64{0, -1, -2, -3, -4})}
	plus := []traj.Trajectory{ScriptedSegment("plus", []float64{0, 2, 3, 4})}
	conditions := []cond.Condition{
		belowCond("state A", -2),
		thresholdCond("state B", 2),
	}

	concat := traj.NewMemConcatenator()
	s := NewStitcher(concat, nil, nil, nil)

	out, err := s.ConstructTransition(context.Background(), minus, plus, 0, 1, conditions, "tp.dcd", "", false)
	if err != nil {
		t.Fatalf("ConstructTransition() error = %v", err)
	}
	// Minus frames 2,1,0 reversed, then plus frame 1: four frames, shared
	// start appearing once.
	if out.Len() != 4 {
		t.Fatalf("transition Len() = %d, want 4", out.Len())
	}

	mem := out.(*traj.Mem)
	wantX := []float64{-2, -1, 0, 2}
	for i, w := range wantX {
		if got := mem.Frame(i).At(0, 0); got != w {
			t.Errorf("frame %d x = %v, want %v", i, got, w)
		}
	}
}

func TestConstructTransitionMissingCommitment(t *testing.T) {
	minus := []traj.Trajectory{ScriptedSegment("minus", []float64{0, -1})}
	plus := []traj.Trajectory{ScriptedSegment("plus", []float64{0, 2})}
	conditions := []cond.Condition{
		belowCond("state A", -2),
		thresholdCond("state B", 2),
	}

	s := NewStitcher(traj.NewMemConcatenator(), nil, nil, nil)
	_, err := s.ConstructTransition(context.Background(), minus, plus, 0, 1, conditions, "tp.dcd", "", false)
	if !errors.Is(err, ErrNoConditionMet) {
		t.Fatalf("ConstructTransition() error = %v, want ErrNoConditionMet", err)
	}
}

func TestConstructTransitionIndexValidation(t *testing.T) {
	s := NewStitcher(traj.NewMemConcatenator(), nil, nil, nil)
	conditions := []cond.Condition{thresholdCond("only", 1)}
	minus := []traj.Trajectory{ScriptedSegment("m", []float64{2})}
	plus := []traj.Trajectory{ScriptedSegment("p", []float64{2})}

	if _, err := s.ConstructTransition(context.Background(), minus, plus, 1, 0, conditions, "tp.dcd", "", false); err == nil {
		t.Error("ConstructTransition() accepted an out-of-range minus index")
	}
	if _, err := s.ConstructTransition(context.Background(), minus, plus, 0, -1, conditions, "tp.dcd", "", false); err == nil {
		t.Error("ConstructTransition() accepted an out-of-range plus index")
	}
}

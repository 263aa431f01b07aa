package propagate

import (
	"context"
	"fmt"
	"time"

	"github.com/flblanc/asyncmd/propagate/cond"
	"github.com/flblanc/asyncmd/propagate/emit"
	"github.com/flblanc/asyncmd/traj"
)

// Stitcher turns slice plans into concrete output trajectories. Each
// concatenation first takes a slot from the shared limiter, so the number
// of simultaneously running concatenations process-wide never exceeds the
// limiter's capacity no matter how many goroutines call Stitch. The
// concatenator itself runs in its own goroutine; cancelling ctx returns
// control to the caller immediately, though the concatenator may finish
// writing in the background before it observes the cancellation.
type Stitcher struct {
	concat  traj.Concatenator
	limiter *Limiter
	emitter emit.Emitter
	metrics *PrometheusMetrics
}

// NewStitcher builds a Stitcher. concat must be non-nil; a nil limiter
// gets a fresh single-slot one, a nil emitter is replaced by the null
// emitter, and metrics may stay nil.
func NewStitcher(concat traj.Concatenator, limiter *Limiter, emitter emit.Emitter, metrics *PrometheusMetrics) *Stitcher {
	if limiter == nil {
		limiter = NewLimiter(1)
	}
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	return &Stitcher{
		concat:  concat,
		limiter: limiter,
		emitter: emitter,
		metrics: metrics,
	}
}

type stitchResult struct {
	out traj.Trajectory
	err error
}

// Stitch executes one slice plan under the limiter. It blocks until a
// limiter slot is free (or ctx is done), then runs the concatenator and
// returns its output handle. Overwrite semantics are the concatenator's:
// with overwrite false an existing output yields traj.ErrOutputExists.
func (s *Stitcher) Stitch(ctx context.Context, plan traj.Plan, out, structOut string, overwrite bool) (traj.Trajectory, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquiring concatenation slot: %w", err)
	}

	start := time.Now()
	done := make(chan stitchResult, 1)
	go func() {
		defer s.limiter.Release()
		result, err := s.concat.Concatenate(ctx, plan, out, structOut, overwrite)
		done <- stitchResult{out: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		elapsed := time.Since(start)
		status := "success"
		if res.err != nil {
			status = "error"
		}
		if s.metrics != nil {
			s.metrics.RecordStitchLatency(elapsed, status)
		}
		meta := map[string]interface{}{
			"output":      out,
			"frames":      plan.Frames(),
			"duration_ms": elapsed.Milliseconds(),
		}
		if res.err != nil {
			meta["error"] = res.err.Error()
			s.emitter.Emit(emit.Event{Level: emit.LevelError, Msg: "stitch_failed", Meta: meta})
			return nil, res.err
		}
		s.emitter.Emit(emit.Event{Level: emit.LevelInfo, Msg: "stitch_done", Meta: meta})
		return res.out, nil
	}
}

// ConstructTransition builds one continuous transition trajectory from
// two propagations that started from a shared frame and committed to
// opposite states. minus must have committed to conditions[minusIdx] and
// plus to conditions[plusIdx]; each side is re-evaluated here, so the
// caller only needs the raw segment lists. The minus side is laid down
// time-reversed (first frame of the output is the minus commitment frame)
// and the shared starting frame appears exactly once.
func (s *Stitcher) ConstructTransition(ctx context.Context, minus, plus []traj.Trajectory, minusIdx, plusIdx int, conditions []cond.Condition, out, structOut string, overwrite bool) (traj.Trajectory, error) {
	if minusIdx < 0 || minusIdx >= len(conditions) {
		return nil, fmt.Errorf("minus condition index %d out of range [0,%d)", minusIdx, len(conditions))
	}
	if plusIdx < 0 || plusIdx >= len(conditions) {
		return nil, fmt.Errorf("plus condition index %d out of range [0,%d)", plusIdx, len(conditions))
	}

	minusHit, err := s.locateSide(ctx, minus, conditions[minusIdx], minusIdx, "minus")
	if err != nil {
		return nil, err
	}
	plusHit, err := s.locateSide(ctx, plus, conditions[plusIdx], plusIdx, "plus")
	if err != nil {
		return nil, err
	}

	plan := TransitionPlan(minus, minusHit, plus, plusHit)
	return s.Stitch(ctx, plan, out, structOut, overwrite)
}

// locateSide evaluates a single condition over one chain of segments and
// returns the first frame where it holds, reported with the condition's
// index in the full condition list.
func (s *Stitcher) locateSide(ctx context.Context, segs []traj.Trajectory, c cond.Condition, idx int, side string) (Hit, error) {
	vals, err := evaluateAll(ctx, []cond.Condition{c}, segs)
	if err != nil {
		return Hit{}, fmt.Errorf("evaluating %s side: %w", side, err)
	}
	hit, ok := LocateFirstTrue(vals)
	if !ok {
		return Hit{}, fmt.Errorf("%s side: %w", side, ErrNoConditionMet)
	}
	hit.Condition = idx
	return hit, nil
}

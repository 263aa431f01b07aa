package propagate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flblanc/asyncmd/propagate/cond"
	"github.com/flblanc/asyncmd/propagate/emit"
	"github.com/flblanc/asyncmd/propagate/store"
	"github.com/flblanc/asyncmd/traj"
)

// Propagator drives an MD engine in bounded-duration segments until any
// of a fixed set of state conditions becomes true on a produced frame,
// then optionally cuts and concatenates the segments into one output
// trajectory ending at the first condition-satisfying frame.
//
// One Propagator may serve many sequential or concurrent Propagate calls;
// each call owns a fresh engine instance, its segment list, and its slice
// plan exclusively. The only shared mutable state is the concatenation
// limiter.
type Propagator struct {
	factory    EngineFactory
	conditions []cond.Condition
	walltime   time.Duration

	maxSteps int

	emitter  emit.Emitter
	metrics  *PrometheusMetrics
	store    store.Store
	stitcher *Stitcher
	lister   SegmentLister
}

// New builds a Propagator around an engine factory and a condition set.
// conditions must be non-empty and walltime positive: a propagation with
// no conditions can never terminate on success, and a non-positive
// segment duration produces no frames.
//
// The step budget resolves as: WithMaxSteps if given; else WithMaxFrames
// converted through the factory's OutputFrequency; else unbounded. Both
// given means max steps wins and a warning event notes the ambiguity.
// Blocking conditions in the set also produce a construction-time warning,
// as they stall concurrent evaluation for their duration.
func New(factory EngineFactory, conditions []cond.Condition, walltime time.Duration, opts ...Option) (*Propagator, error) {
	if factory == nil {
		return nil, errors.New("engine factory must not be nil")
	}
	if len(conditions) == 0 {
		return nil, errors.New("at least one condition is required")
	}
	if walltime <= 0 {
		return nil, errors.New("walltime per segment must be positive")
	}

	cfg := &config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.emitter == nil {
		cfg.emitter = emit.NewNullEmitter()
	}
	if cfg.limiter == nil {
		cfg.limiter = NewLimiter(1)
	}
	if cfg.concat == nil {
		cfg.concat = traj.NewDCDConcatenator()
	}
	if cfg.lister == nil {
		cfg.lister = traj.ListSegments
	}

	maxSteps := cfg.maxSteps
	switch {
	case cfg.maxSteps > 0 && cfg.maxFrames > 0:
		cfg.emitter.Emit(emit.Event{
			Level: emit.LevelWarn,
			Msg:   "ambiguous_budget",
			Meta: map[string]interface{}{
				"max_steps":  cfg.maxSteps,
				"max_frames": cfg.maxFrames,
			},
		})
	case cfg.maxFrames > 0:
		freq := factory.OutputFrequency()
		if freq <= 0 {
			return nil, fmt.Errorf("cannot convert max frames to steps: output frequency is %d", freq)
		}
		maxSteps = cfg.maxFrames * freq
	case cfg.maxSteps == 0:
		cfg.emitter.Emit(emit.Event{
			Level: emit.LevelInfo,
			Msg:   "unbounded_propagation",
		})
	}

	for i, c := range conditions {
		if _, ok := c.(cond.Blocking); ok {
			cfg.emitter.Emit(emit.Event{
				Level: emit.LevelWarn,
				Msg:   "blocking_condition",
				Meta: map[string]interface{}{
					"condition": i,
					"name":      c.Name(),
				},
			})
		}
	}

	return &Propagator{
		factory:    factory,
		conditions: conditions,
		walltime:   walltime,
		maxSteps:   maxSteps,
		emitter:    cfg.emitter,
		metrics:    cfg.metrics,
		store:      cfg.store,
		stitcher:   NewStitcher(cfg.concat, cfg.limiter, cfg.emitter, cfg.metrics),
		lister:     cfg.lister,
	}, nil
}

// Conditions returns the condition set in evaluation order.
func (p *Propagator) Conditions() []cond.Condition { return p.conditions }

// Stitcher returns the bounded concatenation executor this Propagator
// stitches with, for callers that want to run transition construction or
// ad-hoc stitching under the same limiter.
func (p *Propagator) Stitcher() *Stitcher { return p.stitcher }

// Propagate runs the engine from start until any condition becomes true,
// returning the produced segment list and the index of the condition that
// terminated it. With continuation true, segments from a previous run in
// workdir under runName are recovered first, all conditions are
// re-evaluated on them, and the engine resumes only when none holds yet.
//
// A step budget overrun returns a *MaxStepsError and no segment list;
// the produced segments stay on disk and are reachable through the
// continuation path.
func (p *Propagator) Propagate(ctx context.Context, start traj.Trajectory, workdir, runName string, continuation bool) ([]traj.Trajectory, int, error) {
	if p.metrics != nil {
		p.metrics.PropagationStarted()
		defer p.metrics.PropagationFinished()
	}

	// The starting configuration should be outside every state; check it
	// alone first so the stitching invariant (frame 0 of segment 0 is
	// never a hit) holds for everything the loop produces.
	startVals, err := EvaluateConditions(ctx, p.conditions, start)
	if err != nil {
		return nil, -1, fmt.Errorf("evaluating start configuration: %w", err)
	}
	if hit, ok := LocateFirstTrue([][][]bool{startVals}); ok {
		p.emit(runName, 0, emit.LevelWarn, "start_satisfies_condition", map[string]interface{}{
			"condition": hit.Condition,
		})
		p.saveProgress(ctx, runName, workdir, 1, 0, store.StatusConditionMet, hit.Condition)
		p.recordTerminal(runName, store.StatusConditionMet)
		return []traj.Trajectory{start}, hit.Condition, nil
	}

	var segs []traj.Trajectory
	engine, err := p.factory.NewEngine()
	if err != nil {
		return nil, -1, fmt.Errorf("creating engine: %w", err)
	}

	if continuation {
		segs, err = p.lister(workdir, runName, p.factory.OutputTrajType())
		if err != nil {
			return nil, -1, fmt.Errorf("recovering segments of run %q: %w", runName, err)
		}
		if len(segs) > 0 {
			vals, err := evaluateAll(ctx, p.conditions, segs)
			if err != nil {
				return nil, -1, fmt.Errorf("re-evaluating recovered segments: %w", err)
			}
			if hit, ok := LocateFirstTrue(vals); ok {
				p.emit(runName, hit.Segment+1, emit.LevelInfo, "condition_met", map[string]interface{}{
					"condition": hit.Condition,
					"recovered": true,
				})
				p.saveProgress(ctx, runName, workdir, len(segs), 0, store.StatusConditionMet, hit.Condition)
				p.recordTerminal(runName, store.StatusConditionMet)
				return segs, hit.Condition, nil
			}
		}
		if err := engine.PrepareFromFiles(ctx, workdir, runName); err != nil {
			return nil, -1, fmt.Errorf("re-attaching engine to run %q: %w", runName, err)
		}
	} else {
		if err := engine.Prepare(ctx, start, workdir, runName); err != nil {
			return nil, -1, fmt.Errorf("preparing engine for run %q: %w", runName, err)
		}
	}

	for {
		// Guard loop entry, not just each produced segment: a resumed
		// engine may report a counter that is already past the budget,
		// and then no further segment is requested.
		if steps := engine.StepsDone(); p.maxSteps > 0 && steps > p.maxSteps {
			maxErr := &MaxStepsError{Steps: steps, Max: p.maxSteps}
			p.emit(runName, len(segs), emit.LevelError, "max_steps_exceeded", map[string]interface{}{
				"steps_done": steps,
				"max_steps":  p.maxSteps,
			})
			p.saveProgress(ctx, runName, workdir, len(segs), steps, store.StatusMaxStepsExceeded, -1)
			p.recordTerminal(runName, store.StatusMaxStepsExceeded)
			return nil, -1, maxErr
		}

		seg, err := engine.RunForDuration(ctx, p.walltime)
		if err != nil {
			return nil, -1, fmt.Errorf("running engine segment %d: %w", len(segs)+1, err)
		}
		segs = append(segs, seg)
		if p.metrics != nil {
			p.metrics.SegmentProduced(runName)
		}

		evalStart := time.Now()
		vals, err := EvaluateConditions(ctx, p.conditions, seg)
		if err != nil {
			return nil, -1, fmt.Errorf("evaluating segment %d: %w", len(segs), err)
		}
		if p.metrics != nil {
			p.metrics.RecordEvalLatency(runName, time.Since(evalStart))
		}

		steps := engine.StepsDone()
		p.emit(runName, len(segs), emit.LevelInfo, "segment_done", map[string]interface{}{
			"steps_done": steps,
			"frames":     seg.Len(),
		})

		// Earlier segments are already confirmed condition-free, so only
		// the fresh one needs locating; the hit is then shifted into
		// whole-list coordinates.
		if hit, ok := locateOnLast(segLens(segs), vals); ok {
			p.emit(runName, len(segs), emit.LevelInfo, "condition_met", map[string]interface{}{
				"condition":  hit.Condition,
				"frame":      hit.Frame,
				"steps_done": steps,
			})
			p.saveProgress(ctx, runName, workdir, len(segs), steps, store.StatusConditionMet, hit.Condition)
			p.recordTerminal(runName, store.StatusConditionMet)
			return segs, hit.Condition, nil
		}

		p.saveProgress(ctx, runName, workdir, len(segs), steps, store.StatusStepping, -1)
	}
}

// CutAndConcatenate locates the first condition-satisfying frame across
// segs and stitches everything up to and including it into out. Handing
// it a segment list on which no condition holds is a defect of the caller
// and returns ErrNoConditionMet.
func (p *Propagator) CutAndConcatenate(ctx context.Context, segs []traj.Trajectory, out string, overwrite bool) (traj.Trajectory, int, error) {
	vals, err := evaluateAll(ctx, p.conditions, segs)
	if err != nil {
		return nil, -1, err
	}
	hit, ok := LocateFirstTrue(vals)
	if !ok {
		return nil, -1, ErrNoConditionMet
	}
	plan := ForwardPlan(segs, hit)
	result, err := p.stitcher.Stitch(ctx, plan, out, "", overwrite)
	if err != nil {
		return nil, -1, err
	}
	return result, hit.Condition, nil
}

// PropagateAndConcatenate runs Propagate and, on success, cuts and
// concatenates the produced segments into out. It returns the stitched
// trajectory ending at the first condition-satisfying frame and the index
// of the condition reached.
func (p *Propagator) PropagateAndConcatenate(ctx context.Context, start traj.Trajectory, workdir, runName, out string, continuation, overwrite bool) (traj.Trajectory, int, error) {
	segs, _, err := p.Propagate(ctx, start, workdir, runName, continuation)
	if err != nil {
		return nil, -1, err
	}
	return p.CutAndConcatenate(ctx, segs, out, overwrite)
}

func (p *Propagator) emit(runName string, segment int, level emit.Level, msg string, meta map[string]interface{}) {
	p.emitter.Emit(emit.Event{
		Run:     runName,
		Segment: segment,
		Level:   level,
		Msg:     msg,
		Meta:    meta,
	})
}

func (p *Propagator) saveProgress(ctx context.Context, runName, workdir string, segment, steps int, status string, condition int) {
	if p.store == nil {
		return
	}
	rec := store.RunRecord{
		RunName:   runName,
		Workdir:   workdir,
		Segment:   segment,
		StepsDone: steps,
		Status:    status,
		Condition: condition,
		UpdatedAt: time.Now().UTC(),
	}
	if err := p.store.SaveProgress(ctx, rec); err != nil {
		p.emit(runName, segment, emit.LevelWarn, "progress_save_failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (p *Propagator) recordTerminal(runName, status string) {
	if p.metrics != nil {
		p.metrics.RecordTerminal(runName, status)
	}
}

func segLens(segs []traj.Trajectory) []int {
	lens := make([]int, len(segs))
	for i, s := range segs {
		lens[i] = s.Len()
	}
	return lens
}

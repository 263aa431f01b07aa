package propagate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rmera/gochem/v3"

	"github.com/flblanc/asyncmd/traj"
)

// MockEngineFactory builds scripted engines for tests and dry runs. Each
// engine plays back Script segment by segment: one inner slice per
// segment, one value per frame. A produced frame is a single-atom
// configuration whose x coordinate is the scripted value, so a condition
// thresholding on that coordinate drives the loop deterministically.
// Like a real engine, the script should carry the starting configuration
// as frame 0 of its first segment; the plan builders rely on it.
//
// With Repeat set, an exhausted script keeps replaying its last segment,
// which is how step-budget overruns are provoked without an unbounded
// script.
type MockEngineFactory struct {
	// Script holds per-segment, per-frame scalar values.
	Script [][]float64

	// Freq is the step count per written frame. Defaults to 1.
	Freq int

	// Repeat replays the last segment once the script is exhausted.
	Repeat bool

	// ResumeSteps is the step count a resumed engine reports after
	// PrepareFromFiles, standing in for the progress a previous run left
	// on disk.
	ResumeSteps int
}

// NewEngine returns a fresh engine at the start of the script.
func (f *MockEngineFactory) NewEngine() (Engine, error) {
	if len(f.Script) == 0 {
		return nil, errors.New("mock factory has an empty script")
	}
	freq := f.Freq
	if freq <= 0 {
		freq = 1
	}
	return &MockEngine{script: f.Script, freq: freq, repeat: f.Repeat, resumeSteps: f.ResumeSteps}, nil
}

// OutputFrequency returns the scripted steps-per-frame ratio.
func (f *MockEngineFactory) OutputFrequency() int {
	if f.Freq <= 0 {
		return 1
	}
	return f.Freq
}

// OutputTrajType returns "dcd"; mock segments are in-memory but keep the
// default extension so segment naming stays realistic.
func (f *MockEngineFactory) OutputTrajType() string { return "dcd" }

// MockEngine plays back a scripted value series as Mem segments.
type MockEngine struct {
	mu          sync.Mutex
	script      [][]float64
	freq        int
	repeat      bool
	next        int
	steps       int
	resumeSteps int
	runName     string

	prepared bool
}

// Prepare starts the engine at the beginning of its script.
func (e *MockEngine) Prepare(ctx context.Context, start traj.Trajectory, workdir, runName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runName = runName
	e.next = 0
	e.steps = 0
	e.prepared = true
	return nil
}

// PrepareFromFiles resumes at the start of the script with the step
// counter restored to the factory's ResumeSteps, standing in for the
// progress an earlier run left behind.
func (e *MockEngine) PrepareFromFiles(ctx context.Context, workdir, runName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runName = runName
	e.steps = e.resumeSteps
	e.prepared = true
	return nil
}

// RunForDuration returns the next scripted segment regardless of d.
func (e *MockEngine) RunForDuration(ctx context.Context, d time.Duration) (traj.Trajectory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.prepared {
		return nil, errors.New("engine not prepared")
	}
	idx := e.next
	if idx >= len(e.script) {
		if !e.repeat {
			return nil, fmt.Errorf("script exhausted after %d segments", len(e.script))
		}
		idx = len(e.script) - 1
	}
	values := e.script[idx]
	e.next++
	e.steps += len(values) * e.freq

	name := fmt.Sprintf("%s.part%04d.dcd", e.runName, e.next)
	return ScriptedSegment(name, values), nil
}

// StepsDone returns the accumulated step counter.
func (e *MockEngine) StepsDone() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.steps
}

// ScriptedSegment builds a single-atom Mem trajectory whose frame i has
// x coordinate values[i].
func ScriptedSegment(name string, values []float64) *traj.Mem {
	coords := make([]*v3.Matrix, len(values))
	for i, v := range values {
		frame := v3.Zeros(1)
		frame.Set(0, 0, v)
		coords[i] = frame
	}
	return traj.NewMem(name, coords)
}

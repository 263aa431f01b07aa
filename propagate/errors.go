// Package propagate drives an MD engine to produce a trajectory in
// bounded-duration segments, stops as soon as any of a fixed set of state
// conditions becomes true on a produced frame, and stitches the relevant
// frame ranges into one continuous output trajectory. This
// segment-check-stop-stitch loop is the basis of path-sampling methods
// (transition path sampling, committor analysis) that need exact
// sub-trajectories between a start point and a commitment event.
package propagate

import (
	"errors"
	"fmt"
)

// ErrNoConditionMet signals that a segment list was handed to
// cut-and-concatenate although no condition is true on any of its frames.
// The propagation loop never produces such a list, so this is a defect
// signal, not a recoverable state.
var ErrNoConditionMet = errors.New("no condition is true on any frame")

// MaxStepsError is returned when the engine's step counter passed the
// configured maximum without any condition becoming true. It is a
// terminal, reported outcome; the core never retries. Callers wanting to
// push further must invoke the continuation path explicitly.
type MaxStepsError struct {
	// Steps is the engine's step counter when propagation gave up.
	Steps int

	// Max is the configured step budget.
	Max int
}

func (e *MaxStepsError) Error() string {
	return fmt.Sprintf("engine produced %d steps (> max %d) without reaching any condition", e.Steps, e.Max)
}

// ShapeError is returned when a condition's value vector does not match
// its trajectory's frame count. A condition that miscounts frames is
// defective; the mismatch is surfaced immediately rather than masked.
type ShapeError struct {
	// Condition is the index of the offending condition.
	Condition int

	// Name is the condition's name.
	Name string

	// Got is the returned vector length; Want the trajectory frame count.
	Got, Want int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("condition %d (%s) returned %d values for a %d-frame trajectory", e.Condition, e.Name, e.Got, e.Want)
}

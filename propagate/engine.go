package propagate

import (
	"context"
	"time"

	"github.com/flblanc/asyncmd/traj"
)

// Engine is the MD engine collaborator: a black box that integrates the
// system and writes trajectory segments. Integration internals, file
// formats and process management are the engine's business; the
// propagation loop only prepares it, asks for time-boxed segments, and
// reads its step counter.
type Engine interface {
	// Prepare initializes a fresh run from the starting configuration in
	// workdir under runName.
	Prepare(ctx context.Context, start traj.Trajectory, workdir, runName string) error

	// PrepareFromFiles re-attaches the engine to an existing run's
	// on-disk files, resuming after the last produced segment.
	PrepareFromFiles(ctx context.Context, workdir, runName string) error

	// RunForDuration integrates for at most the given wall time and
	// returns the trajectory segment produced.
	RunForDuration(ctx context.Context, d time.Duration) (traj.Trajectory, error)

	// StepsDone is the monotonically increasing count of integration
	// steps completed; it is the authoritative progress measure.
	StepsDone() int
}

// EngineFactory builds one Engine per propagation call and answers the
// configuration-level questions that exist before any engine instance
// does: how often the configured output writes frames, and which
// container format segments use.
type EngineFactory interface {
	// NewEngine returns a fresh, unprepared engine.
	NewEngine() (Engine, error)

	// OutputFrequency is the number of integration steps between written
	// frames, used to convert a frame budget into a step budget.
	OutputFrequency() int

	// OutputTrajType is the file extension of produced segments,
	// e.g. "dcd". Segment discovery uses it on continuation.
	OutputTrajType() string
}

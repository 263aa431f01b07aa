package traj

import (
	"context"
	"errors"
	"fmt"
	"sync"

	v3 "github.com/rmera/gochem/v3"
)

// ErrOutputExists is returned when a concatenation target already exists
// and overwriting was not permitted. No partial output is written.
var ErrOutputExists = errors.New("output trajectory already exists")

// Concatenator physically reads the frames a plan selects and writes one
// output trajectory. Implementations are blocking; callers that must not
// stall other work run them through a bounded stitcher.
type Concatenator interface {
	// Concatenate consumes the plan and produces the output trajectory at
	// out. structOut, when non-empty, is where the structure reference of
	// the output should be placed; when empty the output reuses the
	// structure of the plan's first segment. With overwrite disabled an
	// existing out path yields an error wrapping ErrOutputExists.
	Concatenate(ctx context.Context, plan Plan, out, structOut string, overwrite bool) (Trajectory, error)
}

// MemConcatenator concatenates Mem segments into a new Mem trajectory,
// inverting velocities on reversed cuts. Outputs are registered under
// their out path, and the overwrite policy applies to that registry, so
// tests exercise the same single-shot semantics as file-backed stitching.
type MemConcatenator struct {
	mu      sync.Mutex
	outputs map[string]*Mem

	// OnConcatenate, when set, is invoked at the start of every
	// concatenation. Tests use it to observe concurrency.
	OnConcatenate func()
}

// NewMemConcatenator returns an empty in-memory concatenator.
func NewMemConcatenator() *MemConcatenator {
	return &MemConcatenator{outputs: make(map[string]*Mem)}
}

// Concatenate implements Concatenator over Mem segments.
func (m *MemConcatenator) Concatenate(ctx context.Context, plan Plan, out, structOut string, overwrite bool) (Trajectory, error) {
	if m.OnConcatenate != nil {
		m.OnConcatenate()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !overwrite {
		m.mu.Lock()
		_, exists := m.outputs[out]
		m.mu.Unlock()
		if exists {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, out)
		}
	}
	var coords, vels []*v3.Matrix
	haveVels := true
	for _, cut := range plan {
		seg, ok := cut.Traj.(*Mem)
		if !ok {
			return nil, fmt.Errorf("traj: memory concatenator got %T segment", cut.Traj)
		}
		for _, f := range cut.Slice.Frames() {
			coords = append(coords, seg.Frame(f))
			v := seg.Velocities(f)
			if v == nil {
				haveVels = false
				continue
			}
			if cut.Slice.Reversed() {
				v = invertMomenta(v)
			}
			vels = append(vels, v)
		}
	}
	full := &Mem{name: out, coords: coords}
	if haveVels && len(vels) == len(coords) {
		full.vels = vels
	}
	m.mu.Lock()
	m.outputs[out] = full
	m.mu.Unlock()
	return full, nil
}

// Output returns the trajectory registered under an out path, if any.
func (m *MemConcatenator) Output(out string) (*Mem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.outputs[out]
	return t, ok
}

func invertMomenta(v *v3.Matrix) *v3.Matrix {
	inv := v3.Zeros(v.NVecs())
	inv.Scale(-1, v)
	return inv
}

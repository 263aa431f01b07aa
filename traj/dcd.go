package traj

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rmera/gochem/traj/dcd"
)

// DCDConcatenator concatenates DCD-backed File segments into one output
// DCD container. Frames of reversed cuts are emitted in reversed order;
// DCD carries no velocities, so momentum inversion is implicit in the
// time reversal and nothing else needs rewriting.
type DCDConcatenator struct{}

// NewDCDConcatenator returns a concatenator for File segments.
func NewDCDConcatenator() *DCDConcatenator { return &DCDConcatenator{} }

// Concatenate implements Concatenator over File segments. Every segment
// in the plan must hold frames of the same atom count. The structure
// reference of the first segment is copied to structOut when given,
// otherwise it is reused in place for the returned handle.
func (d *DCDConcatenator) Concatenate(ctx context.Context, plan Plan, out, structOut string, overwrite bool) (Trajectory, error) {
	if len(plan) == 0 {
		return nil, fmt.Errorf("traj: empty slice plan for %s", out)
	}
	if !overwrite {
		if _, err := os.Stat(out); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, out)
		}
	}
	first, ok := plan[0].Traj.(*File)
	if !ok {
		return nil, fmt.Errorf("traj: DCD concatenator got %T segment", plan[0].Traj)
	}

	var w *dcd.DCDWObj
	defer func() {
		if w != nil {
			w.Close()
		}
	}()
	natoms := 0
	written := 0
	for _, cut := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seg, ok := cut.Traj.(*File)
		if !ok {
			return nil, fmt.Errorf("traj: DCD concatenator got %T segment", cut.Traj)
		}
		frames, n, err := readDCDFrames(seg.Path())
		if err != nil {
			return nil, err
		}
		if w == nil {
			natoms = n
			w, err = dcd.NewWriter(out, natoms)
			if err != nil {
				return nil, fmt.Errorf("traj: create %s: %w", out, err)
			}
		} else if n != natoms {
			return nil, fmt.Errorf("traj: segment %s has %d atoms, want %d", seg.Path(), n, natoms)
		}
		for _, f := range cut.Slice.Frames() {
			if f < 0 || f >= len(frames) {
				return nil, fmt.Errorf("traj: frame %d out of range for %s (%d frames)", f, seg.Path(), len(frames))
			}
			if err := w.WNext(frames[f]); err != nil {
				return nil, fmt.Errorf("traj: write %s: %w", out, err)
			}
			written++
		}
	}

	structure := first.Structure()
	if structOut != "" {
		if err := copyFile(structure, structOut); err != nil {
			return nil, err
		}
		structure = structOut
	}
	full := OpenDCD(structure, out)
	full.once.Do(func() { full.nFrames = written })
	return full, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("traj: copy structure: %w", err)
	}
	defer in.Close()
	tmp, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("traj: copy structure: %w", err)
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("traj: copy structure: %w", err)
	}
	return tmp.Close()
}

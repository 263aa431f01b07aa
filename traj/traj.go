// Package traj provides the trajectory data model shared by the propagation
// core: immutable trajectory handles, frame slice plans, and the
// concatenation collaborators that stitch slice plans into one output
// trajectory.
package traj

import (
	"fmt"
	"os"
	"sync"

	chem "github.com/rmera/gochem"
	"github.com/rmera/gochem/traj/dcd"
	v3 "github.com/rmera/gochem/v3"
)

// Trajectory is an immutable handle to an ordered, finite sequence of
// frames. Implementations are produced once (by an engine run or by a
// concatenator) and never mutated afterwards.
type Trajectory interface {
	// Len returns the number of frames.
	Len() int
}

// Keyer is implemented by trajectories that can identify themselves with a
// stable key. Condition caches use the key to memoize per-trajectory
// results; trajectories without a key are simply never cached.
type Keyer interface {
	Key() string
}

// Mem is an in-memory trajectory: one coordinate matrix per frame, plus
// optional per-frame velocities. It backs the mock engine, the in-memory
// concatenator, and most tests.
type Mem struct {
	name   string
	coords []*v3.Matrix
	vels   []*v3.Matrix // nil when the source carries no velocities
}

// NewMem creates an in-memory trajectory from per-frame coordinate
// matrices. The name becomes the trajectory's cache key.
func NewMem(name string, coords []*v3.Matrix) *Mem {
	return &Mem{name: name, coords: coords}
}

// NewMemWithVelocities creates an in-memory trajectory carrying both
// coordinates and velocities. Both slices must have the same length.
func NewMemWithVelocities(name string, coords, vels []*v3.Matrix) (*Mem, error) {
	if len(coords) != len(vels) {
		return nil, fmt.Errorf("traj: %d coordinate frames but %d velocity frames", len(coords), len(vels))
	}
	return &Mem{name: name, coords: coords, vels: vels}, nil
}

// Len returns the number of frames.
func (m *Mem) Len() int { return len(m.coords) }

// Key returns the stable identifier given at construction.
func (m *Mem) Key() string { return m.name }

// Frame returns the coordinates of frame i.
func (m *Mem) Frame(i int) *v3.Matrix { return m.coords[i] }

// Velocities returns the velocities of frame i, or nil when the
// trajectory carries none.
func (m *Mem) Velocities(i int) *v3.Matrix {
	if m.vels == nil {
		return nil
	}
	return m.vels[i]
}

func (m *Mem) String() string {
	return fmt.Sprintf("Mem(%s, %d frames)", m.name, len(m.coords))
}

// File is a file-backed trajectory: a structure reference plus one DCD
// container file. The frame count is determined by scanning the container
// once and cached for the handle's lifetime.
type File struct {
	structure string
	path      string

	once    sync.Once
	nFrames int
	scanErr error
}

// OpenDCD returns a handle to a DCD trajectory file with its structure
// reference. The container is not read until the frame count is needed.
func OpenDCD(structure, path string) *File {
	return &File{structure: structure, path: path}
}

// Len returns the frame count, scanning the container on first use.
// A container that cannot be read counts as zero frames; use Err to
// distinguish an unreadable file from an empty one.
func (f *File) Len() int {
	f.scan()
	return f.nFrames
}

// Err reports any error from scanning the container.
func (f *File) Err() error {
	f.scan()
	return f.scanErr
}

// Structure returns the path of the structure reference.
func (f *File) Structure() string { return f.structure }

// Path returns the path of the container file.
func (f *File) Path() string { return f.path }

// Key identifies the trajectory by its on-disk location.
func (f *File) Key() string { return f.structure + "|" + f.path }

func (f *File) String() string {
	return fmt.Sprintf("File(%s)", f.path)
}

func (f *File) scan() {
	f.once.Do(func() {
		n, err := countDCDFrames(f.path)
		f.nFrames, f.scanErr = n, err
	})
}

// countDCDFrames reads through a DCD container and counts its frames.
func countDCDFrames(path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("traj: stat %s: %w", path, err)
	}
	r, err := dcd.New(path)
	if err != nil {
		return 0, fmt.Errorf("traj: open %s: %w", path, err)
	}
	scratch := v3.Zeros(r.Len())
	n := 0
	for {
		if err := r.Next(scratch); err != nil {
			if _, last := err.(chem.LastFrameError); last {
				return n, nil
			}
			return 0, fmt.Errorf("traj: read %s frame %d: %w", path, n, err)
		}
		n++
	}
}

// readDCDFrames loads every frame of a DCD container into memory and
// returns the coordinate matrices together with the per-frame atom count.
func readDCDFrames(path string) ([]*v3.Matrix, int, error) {
	r, err := dcd.New(path)
	if err != nil {
		return nil, 0, fmt.Errorf("traj: open %s: %w", path, err)
	}
	natoms := r.Len()
	var frames []*v3.Matrix
	for {
		m := v3.Zeros(natoms)
		if err := r.Next(m); err != nil {
			if _, last := err.(chem.LastFrameError); last {
				return frames, natoms, nil
			}
			return nil, 0, fmt.Errorf("traj: read %s frame %d: %w", path, len(frames), err)
		}
		frames = append(frames, m)
	}
}

package traj

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// structureExts are the structure reference formats looked for next to a
// run's trajectory parts, in preference order.
var structureExts = []string{".pdb", ".gro"}

// ListSegments discovers the on-disk trajectory parts of a run, ordered by
// part number. Parts follow the engine naming scheme
// <runName>.partNNNN.<ext>; the structure reference is <runName> with one
// of the known structure extensions in the same directory. An empty result
// and a nil error means the run has produced no parts yet.
func ListSegments(dir, runName, ext string) ([]Trajectory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("traj: list segments in %s: %w", dir, err)
	}
	partRe, err := regexp.Compile(`^` + regexp.QuoteMeta(runName) + `\.part(\d{4})\.` + regexp.QuoteMeta(ext) + `$`)
	if err != nil {
		return nil, fmt.Errorf("traj: bad run name %q: %w", runName, err)
	}

	structure := ""
	for _, se := range structureExts {
		cand := filepath.Join(dir, runName+se)
		if _, err := os.Stat(cand); err == nil {
			structure = cand
			break
		}
	}

	type part struct {
		num  int
		path string
	}
	var parts []part
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := partRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		parts = append(parts, part{num: num, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].num < parts[j].num })

	segs := make([]Trajectory, 0, len(parts))
	for _, p := range parts {
		switch ext {
		case "dcd":
			segs = append(segs, OpenDCD(structure, p.path))
		default:
			return nil, fmt.Errorf("traj: unsupported segment format %q", ext)
		}
	}
	return segs, nil
}

// SegmentPath returns the on-disk path an engine uses for part number n of
// a run, matching the naming scheme ListSegments discovers.
func SegmentPath(dir, runName string, n int, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.part%04d.%s", runName, n, ext))
}

package propagate

// Hit is the address of the first condition-satisfying frame across an
// ordered list of variable-length segments.
type Hit struct {
	// Condition is the index of the condition true at the frame. When
	// several conditions are true at the same frame (the condition set
	// is assumed mutually exclusive, so this is caller misuse), the
	// lowest condition index wins. This tie-break is a documented policy,
	// not an accident.
	Condition int

	// Global is the frame's index on the virtual concatenated frame axis:
	// the sum of all preceding segment lengths plus the local frame.
	Global int

	// Segment is the index of the owning segment.
	Segment int

	// Frame is the index within that segment.
	Frame int
}

// LocateFirstTrue finds the first frame at which any condition holds.
// vals holds one matrix per segment, each indexed [condition][frame],
// with a consistent condition count across segments. The frame with the
// smallest global index wins; among conditions true at that frame, the
// lowest condition index wins. The second return is false when no value
// is true anywhere.
func LocateFirstTrue(vals [][][]bool) (Hit, bool) {
	global := 0
	for segIdx, seg := range vals {
		frames := 0
		if len(seg) > 0 {
			frames = len(seg[0])
		}
		for f := 0; f < frames; f++ {
			for c := range seg {
				if seg[c][f] {
					return Hit{
						Condition: c,
						Global:    global + f,
						Segment:   segIdx,
						Frame:     f,
					}, true
				}
			}
		}
		global += frames
	}
	return Hit{}, false
}

// locateOnLast finds the first true frame on the final segment only. The
// propagation loop uses it when exiting on a freshly produced segment:
// all earlier segments were already confirmed condition-free, so only the
// last matrix needs scanning, but the returned address is still in
// whole-list coordinates.
func locateOnLast(segLens []int, lastVals [][]bool) (Hit, bool) {
	hit, ok := LocateFirstTrue([][][]bool{lastVals})
	if !ok {
		return Hit{}, false
	}
	preceding := 0
	for _, n := range segLens[:len(segLens)-1] {
		preceding += n
	}
	hit.Global += preceding
	hit.Segment = len(segLens) - 1
	return hit, true
}

package traj

import "fmt"

// Slice selects frames of one trajectory segment. Start is the first frame
// read; frames are visited stepping by Stride until reaching Stop, which is
// exclusive. A negative Stride reads backwards in time; Stop = -1 with
// Stride = -1 therefore reads down to and including frame 0. Frames read
// with a negative stride require momentum inversion by the concatenator.
type Slice struct {
	Start  int
	Stop   int
	Stride int
}

// Forward selects frames [start, stop) in order.
func Forward(start, stop int) Slice { return Slice{Start: start, Stop: stop, Stride: 1} }

// Backward selects frames start down to and including 0.
func Backward(start int) Slice { return Slice{Start: start, Stop: -1, Stride: -1} }

// Count returns how many frames the slice selects.
func (s Slice) Count() int {
	switch {
	case s.Stride > 0:
		if s.Stop <= s.Start {
			return 0
		}
		return (s.Stop - s.Start + s.Stride - 1) / s.Stride
	case s.Stride < 0:
		if s.Stop >= s.Start {
			return 0
		}
		return (s.Start - s.Stop - s.Stride - 1) / -s.Stride
	default:
		return 0
	}
}

// Frames expands the slice into the list of frame indices it selects, in
// read order.
func (s Slice) Frames() []int {
	out := make([]int, 0, s.Count())
	if s.Stride > 0 {
		for i := s.Start; i < s.Stop; i += s.Stride {
			out = append(out, i)
		}
	} else if s.Stride < 0 {
		for i := s.Start; i > s.Stop; i += s.Stride {
			out = append(out, i)
		}
	}
	return out
}

// Reversed reports whether the slice reads against the direction of time.
func (s Slice) Reversed() bool { return s.Stride < 0 }

func (s Slice) String() string {
	return fmt.Sprintf("[%d:%d:%d]", s.Start, s.Stop, s.Stride)
}

// Cut pairs one trajectory segment with the slice of its frames to read.
type Cut struct {
	Traj  Trajectory
	Slice Slice
}

// Plan is an ordered list of cuts. Concatenating the frames each cut
// selects, in order, yields one chronologically continuous trajectory.
// A plan is consumed exactly once by a Concatenator.
type Plan []Cut

// Frames returns the total number of frames the plan selects.
func (p Plan) Frames() int {
	n := 0
	for _, c := range p {
		n += c.Slice.Count()
	}
	return n
}

package propagate

import "github.com/flblanc/asyncmd/traj"

// ForwardPlan builds the read plan that reconstructs one continuous path
// from a forward segment list: every segment before the hit is taken in
// full, and the hit's segment is cut from its first frame through the hit
// frame inclusive. Frame 0 of segment 0 is the starting configuration and
// appears exactly once; the propagation loop guarantees it never itself
// satisfies a condition when more than the start was propagated.
//
// Building a plan is pure: running it twice on the same inputs yields an
// identical plan.
func ForwardPlan(segs []traj.Trajectory, hit Hit) traj.Plan {
	plan := make(traj.Plan, 0, hit.Segment+1)
	for i := 0; i < hit.Segment; i++ {
		plan = append(plan, traj.Cut{Traj: segs[i], Slice: traj.Forward(0, segs[i].Len())})
	}
	plan = append(plan, traj.Cut{Traj: segs[hit.Segment], Slice: traj.Forward(0, hit.Frame+1)})
	return plan
}

// TransitionPlan joins a backward-propagated ("minus") chain that reached
// one condition with a forward-propagated ("plus") chain that reached
// another, sharing their starting configuration. The minus chain is read
// with reversed stride so its frame nearest the shared start comes first;
// reversed reads imply momentum inversion in the concatenator. The shared
// starting configuration is frame 0 of minus segment 0 and of plus
// segment 0; it is contributed once, by the minus side, and the plus
// side's segment 0 therefore starts reading at frame 1.
func TransitionPlan(minus []traj.Trajectory, minusHit Hit, plus []traj.Trajectory, plusHit Hit) traj.Plan {
	plan := make(traj.Plan, 0, minusHit.Segment+plusHit.Segment+2)

	// Minus side, backwards: the hit's segment from the hit frame down to
	// frame 0, then every earlier segment in full, reversed.
	plan = append(plan, traj.Cut{Traj: minus[minusHit.Segment], Slice: traj.Backward(minusHit.Frame)})
	for i := minusHit.Segment - 1; i >= 0; i-- {
		plan = append(plan, traj.Cut{Traj: minus[i], Slice: traj.Backward(minus[i].Len() - 1)})
	}

	// Plus side, forwards, excluding the shared start from segment 0.
	if plusHit.Segment == 0 {
		plan = append(plan, traj.Cut{Traj: plus[0], Slice: traj.Forward(1, plusHit.Frame+1)})
		return plan
	}
	plan = append(plan, traj.Cut{Traj: plus[0], Slice: traj.Forward(1, plus[0].Len())})
	for i := 1; i < plusHit.Segment; i++ {
		plan = append(plan, traj.Cut{Traj: plus[i], Slice: traj.Forward(0, plus[i].Len())})
	}
	plan = append(plan, traj.Cut{Traj: plus[plusHit.Segment], Slice: traj.Forward(0, plusHit.Frame+1)})
	return plan
}

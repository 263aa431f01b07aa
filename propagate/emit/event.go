// Package emit carries observability events out of the propagation core.
// Emitters are pluggable backends: structured logs, OpenTelemetry spans,
// an in-memory buffer for tests and dashboards, or nothing at all.
package emit

// Level classifies an event's severity. Diagnostics that do not alter
// control flow (a start configuration already inside a state, ambiguous
// budget configuration, blocking conditions in the set) are LevelWarn.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// String returns the conventional lowercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Event is one observation from a propagation or stitch operation.
type Event struct {
	// Run identifies the propagation run (the engine run name) that
	// emitted this event. Empty for process-level events.
	Run string

	// Segment is the ordinal of the trajectory segment the event concerns,
	// starting at 1. Zero for run-level events.
	Segment int

	// Level is the event severity.
	Level Level

	// Msg is a short machine-stable description, e.g. "segment_done",
	// "condition_met", "stitch_done".
	Msg string

	// Meta carries additional structured data. Common keys:
	//   - "steps_done": engine step counter after the segment
	//   - "condition": index of the condition that became true
	//   - "duration_ms": wall time of the operation
	//   - "error": error text
	Meta map[string]interface{}
}

// Emitter receives events from propagation and stitching.
//
// Implementations must be safe for concurrent use, must not panic, and
// should not block the caller; slow backends should buffer or drop.
type Emitter interface {
	Emit(event Event)
}

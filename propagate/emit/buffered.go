package emit

import "sync"

// BufferedEmitter stores events in memory, keyed by run, and provides
// query access for tests and post-run analysis.
//
// All events are kept until cleared; long-lived processes with many runs
// should clear finished runs or use a different backend.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // run -> events, in emission order
}

// HistoryFilter selects a subset of a run's events. Zero-valued fields do
// not filter; set fields combine with AND.
type HistoryFilter struct {
	Msg      string // exact event message
	MinLevel *Level // minimum severity
	Segment  *int   // exact segment ordinal
}

// NewBufferedEmitter returns an empty buffered emitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit records the event.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.Run] = append(b.events[event.Run], event)
}

// History returns all events of a run in emission order.
func (b *BufferedEmitter) History(run string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[run]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// HistoryWithFilter returns the run's events matching the filter.
func (b *BufferedEmitter) HistoryWithFilter(run string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Event
	for _, e := range b.events[run] {
		if filter.Msg != "" && e.Msg != filter.Msg {
			continue
		}
		if filter.MinLevel != nil && e.Level < *filter.MinLevel {
			continue
		}
		if filter.Segment != nil && e.Segment != *filter.Segment {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Clear drops all events of one run; Clear("") drops nothing. ClearAll
// drops everything.
func (b *BufferedEmitter) Clear(run string) {
	if run == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, run)
}

// ClearAll drops every stored event.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make(map[string][]Event)
}

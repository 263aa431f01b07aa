package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// LogEmitter writes events to a writer, either as human-readable text or
// as one JSON object per line.
//
// Text output:
//
//	[condition_met] level=info run=shot-17 segment=4 condition=1
//
// JSON output:
//
//	{"run":"shot-17","segment":4,"level":"info","msg":"condition_met","meta":{"condition":1}}
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter. A nil writer defaults to stdout.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes the event. Write failures are swallowed; an emitter never
// disturbs the propagation it observes.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.jsonMode {
		payload := struct {
			Run     string                 `json:"run"`
			Segment int                    `json:"segment"`
			Level   string                 `json:"level"`
			Msg     string                 `json:"msg"`
			Meta    map[string]interface{} `json:"meta,omitempty"`
		}{event.Run, event.Segment, event.Level.String(), event.Msg, event.Meta}
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintln(l.writer, string(data))
		return
	}
	fmt.Fprintf(l.writer, "[%s] level=%s run=%s segment=%d", event.Msg, event.Level, event.Run, event.Segment)
	keys := make([]string, 0, len(event.Meta))
	for k := range event.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(l.writer, " %s=%v", k, event.Meta[k])
	}
	fmt.Fprintln(l.writer)
}

package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestLogEmitterText(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, false)

	e.Emit(Event{
		Run:     "shot-17",
		Segment: 4,
		Level:   LevelInfo,
		Msg:     "condition_met",
		Meta:    map[string]interface{}{"condition": 1, "frame": 12},
	})

	got := strings.TrimSuffix(buf.String(), "\n")
	want := "[condition_met] level=info run=shot-17 segment=4 condition=1 frame=12"
	if got != want {
		t.Errorf("text output = %q, want %q", got, want)
	}
}

func TestLogEmitterJSON(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, true)

	e.Emit(Event{
		Run:     "shot-17",
		Segment: 4,
		Level:   LevelWarn,
		Msg:     "ambiguous_budget",
		Meta:    map[string]interface{}{"max_steps": 100},
	})

	var decoded struct {
		Run     string                 `json:"run"`
		Segment int                    `json:"segment"`
		Level   string                 `json:"level"`
		Msg     string                 `json:"msg"`
		Meta    map[string]interface{} `json:"meta"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Run != "shot-17" || decoded.Segment != 4 {
		t.Errorf("run/segment = %q/%d, want shot-17/4", decoded.Run, decoded.Segment)
	}
	if decoded.Level != "warn" || decoded.Msg != "ambiguous_budget" {
		t.Errorf("level/msg = %q/%q, want warn/ambiguous_budget", decoded.Level, decoded.Msg)
	}
	if decoded.Meta["max_steps"] != float64(100) {
		t.Errorf("meta max_steps = %v, want 100", decoded.Meta["max_steps"])
	}
}

func TestBufferedEmitterHistory(t *testing.T) {
	e := NewBufferedEmitter()

	e.Emit(Event{Run: "a", Segment: 1, Level: LevelInfo, Msg: "segment_done"})
	e.Emit(Event{Run: "a", Segment: 2, Level: LevelWarn, Msg: "blocking_condition"})
	e.Emit(Event{Run: "a", Segment: 2, Level: LevelInfo, Msg: "condition_met"})
	e.Emit(Event{Run: "b", Segment: 1, Level: LevelInfo, Msg: "segment_done"})

	if got := len(e.History("a")); got != 3 {
		t.Fatalf("History(a) has %d events, want 3", got)
	}
	if got := len(e.History("b")); got != 1 {
		t.Fatalf("History(b) has %d events, want 1", got)
	}

	t.Run("filter by message", func(t *testing.T) {
		got := e.HistoryWithFilter("a", HistoryFilter{Msg: "condition_met"})
		if len(got) != 1 || got[0].Segment != 2 {
			t.Errorf("filter by msg = %v, want one condition_met at segment 2", got)
		}
	})

	t.Run("filter by minimum level", func(t *testing.T) {
		warn := LevelWarn
		got := e.HistoryWithFilter("a", HistoryFilter{MinLevel: &warn})
		if len(got) != 1 || got[0].Msg != "blocking_condition" {
			t.Errorf("filter by level = %v, want one blocking_condition", got)
		}
	})

	t.Run("filter by segment", func(t *testing.T) {
		seg := 2
		got := e.HistoryWithFilter("a", HistoryFilter{Segment: &seg})
		if len(got) != 2 {
			t.Errorf("filter by segment returned %d events, want 2", len(got))
		}
	})

	e.Clear("a")
	if got := len(e.History("a")); got != 0 {
		t.Errorf("History(a) after Clear has %d events, want 0", got)
	}
	if got := len(e.History("b")); got != 1 {
		t.Errorf("Clear(a) touched run b: %d events, want 1", got)
	}

	e.ClearAll()
	if got := len(e.History("b")); got != 0 {
		t.Errorf("History(b) after ClearAll has %d events, want 0", got)
	}
}

func TestNullEmitter(t *testing.T) {
	e := NewNullEmitter()
	e.Emit(Event{Run: "a", Msg: "segment_done"}) // must not panic
}

func TestOTelEmitterSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	e := NewOTelEmitter(provider.Tracer("test"))

	e.Emit(Event{
		Run:     "shot-17",
		Segment: 3,
		Level:   LevelInfo,
		Msg:     "stitch_done",
		Meta:    map[string]interface{}{"frames": 42},
	})
	e.Emit(Event{
		Run:   "shot-17",
		Level: LevelError,
		Msg:   "stitch_failed",
		Meta:  map[string]interface{}{"error": "disk full"},
	})

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	if spans[0].Name() != "stitch_done" {
		t.Errorf("first span name = %q, want stitch_done", spans[0].Name())
	}

	attrs := make(map[string]interface{})
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs["run"] != "shot-17" {
		t.Errorf("run attribute = %v, want shot-17", attrs["run"])
	}
	if attrs["frames"] != int64(42) {
		t.Errorf("frames attribute = %v, want 42", attrs["frames"])
	}

	if spans[1].Status().Description != "disk full" {
		t.Errorf("error span status = %q, want %q", spans[1].Status().Description, "disk full")
	}
}

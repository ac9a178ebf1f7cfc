package events

import (
	"context"
	"time"
)

// Name identifies the kind of an event.
type Name string

const (
	RunStarted    Name = "run_started"
	TestStarted   Name = "test_started"
	TestLog       Name = "test_log"
	TestCompleted Name = "test_completed"
	RunProgress   Name = "run_progress"
	RunCompleted  Name = "run_completed"
	RunError      Name = "run_error"
)

// Event is a single lifecycle notification.
type Event struct {
	Name      Name           `json:"event"`
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// New creates an event stamped with the current time.
func New(name Name, runID string, payload map[string]any) Event {
	return Event{Name: name, RunID: runID, Timestamp: time.Now().UTC(), Payload: payload}
}

// Sink receives events. Implementations must be safe for concurrent use
// and must not block for long.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, e Event)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, e Event) { f(ctx, e) }

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) {})

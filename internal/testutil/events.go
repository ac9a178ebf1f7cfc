package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/testgrid/internal/events"
)

// Recorder is an events.Sink that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
	notify chan struct{}
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

// Emit implements events.Sink.
func (r *Recorder) Emit(_ context.Context, e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []events.Name {
	var out []events.Name
	for _, e := range r.Events() {
		out = append(out, e.Name)
	}
	return out
}

// Filter returns the recorded events named name.
func (r *Recorder) Filter(name events.Name) []events.Event {
	var out []events.Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// WaitFor blocks until an event named name was recorded, failing the
// test after timeout.
func (r *Recorder) WaitFor(t *testing.T, name events.Name, timeout time.Duration) events.Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if evs := r.Filter(name); len(evs) > 0 {
			return evs[0]
		}
		select {
		case <-r.notify:
		case <-deadline:
			t.Fatalf("timed out after %s waiting for event %q; got %v", timeout, name, r.Names())
			return events.Event{}
		}
	}
}

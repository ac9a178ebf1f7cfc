package events

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
)

// TraceWriter appends events to a JSONL stream, one event per line.
type TraceWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewTraceWriter creates a TraceWriter writing to w.
func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{enc: json.NewEncoder(w)}
}

// Emit implements Sink.
func (t *TraceWriter) Emit(ctx context.Context, e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.enc.Encode(e); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to write trace event.", "event", e.Name, "error", err)
	}
}

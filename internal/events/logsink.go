package events

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
)

// LogSink writes every event to the logger found in the emitting context.
type LogSink struct {
	// Level is the level events are logged at. test_log events are always
	// logged at debug.
	Level slog.Level
}

// Emit implements Sink.
func (s LogSink) Emit(ctx context.Context, e Event) {
	level := s.Level
	switch e.Name {
	case TestLog:
		level = slog.LevelDebug
	case RunError:
		level = slog.LevelError
	}
	ctxlog.FromContext(ctx).Log(ctx, level, "Event emitted.", "event", e.Name, "run_id", e.RunID, "payload", e.Payload)
}

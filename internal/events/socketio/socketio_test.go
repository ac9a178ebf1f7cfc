package socketio

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/testgrid/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_EmitsEventUnderItsName(t *testing.T) {
	// --- Arrange ---
	var gotName string
	var gotData any
	s := NewSink(func(name string, data any) {
		gotName, gotData = name, data
	})
	e := events.Event{
		Name:      events.RunProgress,
		RunID:     "r1",
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Payload:   map[string]any{"progress": 50},
	}

	// --- Act ---
	s.Emit(context.Background(), e)

	// --- Assert ---
	assert.Equal(t, "run_progress", gotName)
	body, ok := gotData.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "r1", body["run_id"])
	assert.Equal(t, "2025-01-02T03:04:05Z", body["timestamp"])
	assert.Equal(t, map[string]any{"progress": 50}, body["payload"])
	assert.NoError(t, s.Close())
}

func TestDial_InvalidURL(t *testing.T) {
	_, err := Dial(context.Background(), Options{URL: "://bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse URL")
}

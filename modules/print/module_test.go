package print

import (
	"context"
	"testing"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_Execute(t *testing.T) {
	tests := []struct {
		name  string
		cfg   action.Config
		lines []string
	}{
		{"map sorted", action.Config{"value": map[string]any{"b": "two", "a": 1}}, []string{"a = 1", `b = "two"`}},
		{"text", action.Config{"value": "hello"}, []string{"hello"}},
		{"missing", action.Config{}, []string{"(null)"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := action.Run(context.Background(), new(Action), &action.Request{Config: tc.cfg})

			require.True(t, out.OK())
			assert.Equal(t, tc.lines, out.Traces)
		})
	}
}

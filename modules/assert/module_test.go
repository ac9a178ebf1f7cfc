package assert

import (
	"context"
	"testing"

	"github.com/specialistvlad/testgrid/internal/action"
	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	vars := map[string]any{"status": 200, "body": `{"ok":true}`, "items": []any{1, 2}}

	tests := []struct {
		src  string
		want bool
	}{
		{"status == 200", true},
		{`body contains "ok"`, true},
		{"len(items) > 2", false},
		{"status >= 400 || len(items) == 2", true},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			got, err := Eval(tc.src, vars)

			require.NoError(t, err)
			tassert.Equal(t, tc.want, got)
		})
	}
}

func TestEval_Errors(t *testing.T) {
	_, err := Eval("status + 1", map[string]any{"status": 1})
	tassert.Error(t, err)

	_, err = Eval("missing == 1", map[string]any{})
	tassert.ErrorContains(t, err, "compile condition")
}

func TestAction_FailsWithMessage(t *testing.T) {
	// --- Arrange ---
	req := &action.Request{
		Config:    action.Config{"expression": "code == 201", "message": "unexpected status"},
		Variables: map[string]any{"code": 500},
	}

	// --- Act ---
	out := action.Run(context.Background(), new(Action), req)

	// --- Assert ---
	require.False(t, out.OK())
	tassert.Equal(t, false, out.Outputs["assert_result"])
	tassert.EqualError(t, out.Err, "unexpected status: code == 201")
}

func TestAction_Validate(t *testing.T) {
	err := new(Action).Validate(action.Config{"expression": "a =="})

	var ve *action.ValidationError
	require.ErrorAs(t, err, &ve)
	tassert.Equal(t, "expression", ve.Field)
}

package http_request

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_PostJSON(t *testing.T) {
	// --- Arrange ---
	var gotMethod, gotToken string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotToken = r.Header.Get("X-Token")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("X-Server", "fake")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	req := &action.Request{Config: action.Config{
		"method":  "post",
		"url":     srv.URL + "/items",
		"headers": `{"X-Token": "abc"}`,
		"body":    `{"name": "widget"}`,
	}}

	// --- Act ---
	out := action.Run(context.Background(), new(Action), req)

	// --- Assert ---
	require.True(t, out.OK(), "traces: %v", out.Traces)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "abc", gotToken)
	assert.Equal(t, "widget", gotBody["name"])
	assert.Equal(t, 201, out.Outputs["http_status_code"])
	assert.Equal(t, `{"ok":true}`, out.Outputs["http_response_body"])
	headers := out.Outputs["http_response_headers"].(map[string]any)
	assert.Equal(t, "fake", headers["X-Server"])
	assert.Contains(t, out.Traces, "Response status: 201")
}

func TestAction_ErrorStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	out := action.Run(context.Background(), new(Action), &action.Request{Config: action.Config{
		"method": "GET",
		"url":    srv.URL,
	}})

	assert.False(t, out.OK())
	assert.Equal(t, 404, out.Outputs["http_status_code"])
	assert.Contains(t, out.Err.Error(), "404")
}

func TestAction_ConnectionErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out := action.Run(context.Background(), new(Action), &action.Request{Config: action.Config{
		"method": "GET",
		"url":    url,
	}})

	require.False(t, out.OK())
	var te *action.TransportError
	assert.ErrorAs(t, out.Err, &te)
}

func TestAction_Validate(t *testing.T) {
	a := new(Action)

	tests := []struct {
		name      string
		cfg       action.Config
		wantField string
	}{
		{"missing url", action.Config{"method": "GET"}, "url"},
		{"bad method", action.Config{"method": "TRACE", "url": "http://x"}, "method"},
		{"bad headers", action.Config{"method": "GET", "url": "http://x", "headers": "not json"}, "headers"},
		{"bad timeout", action.Config{"method": "GET", "url": "http://x", "timeout": "soon"}, "timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := a.Validate(tc.cfg)
			var ve *action.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.wantField, ve.Field)
		})
	}

	assert.NoError(t, a.Validate(action.Config{"method": "delete", "url": "http://x", "timeout": "5"}))
}

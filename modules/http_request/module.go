// Package http_request provides the "http" action: one HTTP request whose
// status, body, headers and timing become output variables.
package http_request

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/registry"
)

const defaultTimeout = 30 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the http action.
func (m *Module) Register(t *registry.Table) error {
	t.Action(func() action.Action { return new(Action) })
	return nil
}

// Action performs an HTTP request.
type Action struct{}

func (a *Action) PluginName() string { return "http" }

func (a *Action) Info() action.Info {
	return action.Info{
		Version:     "1.0.0",
		Author:      "testgrid",
		Description: "Performs an HTTP request (GET, POST, PUT, DELETE, PATCH, HEAD)",
	}
}

func (a *Action) Inputs() []action.Field {
	return []action.Field{
		{Name: "method", Type: action.FieldSelect, Label: "HTTP method", Required: true, Default: "GET",
			Options: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD"}},
		{Name: "url", Type: action.FieldText, Label: "URL", Required: true, Placeholder: "https://example.com/api/endpoint"},
		{Name: "headers", Type: action.FieldTextArea, Label: "HTTP headers (JSON)", Placeholder: `{"Content-Type": "application/json"}`},
		{Name: "body", Type: action.FieldTextArea, Label: "Request body (POST/PUT/PATCH)", Placeholder: `{"key": "value"}`},
		{Name: "timeout", Type: action.FieldNumber, Label: "Timeout (seconds)", Default: 30},
	}
}

func (a *Action) Outputs() []action.Output {
	return []action.Output{
		{Name: "http_status_code", Type: "number", Description: "HTTP status code of the response"},
		{Name: "http_response_body", Type: "string", Description: "Response body"},
		{Name: "http_response_time", Type: "number", Description: "Response time in seconds"},
		{Name: "http_response_headers", Type: "object", Description: "Response headers"},
	}
}

func (a *Action) Validate(cfg action.Config) error {
	if err := action.ValidateFields("http", a.Inputs(), cfg); err != nil {
		return err
	}
	if _, err := cfg.Map("headers"); err != nil {
		return err
	}
	_, err := cfg.Int("timeout", 0)
	return err
}

func (a *Action) Execute(ctx context.Context, req *action.Request) *action.Outcome {
	cfg := req.Config
	out := action.NewOutcome()
	method := strings.ToUpper(cfg.StringOr("method", "GET"))
	url := cfg.String("url")
	logger := ctxlog.FromContext(ctx).With("method", method, "url", url)

	timeout := defaultTimeout
	if secs, _ := cfg.Int("timeout", 0); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	headers, err := cfg.Map("headers")
	if err != nil {
		return out.Fail(err)
	}

	out.Tracef("Preparing %s request to %s", method, url)

	client := resty.New().SetTimeout(timeout)
	defer client.Close()

	r := client.R().SetContext(ctx)
	for k, v := range headers {
		r.SetHeader(k, fmt.Sprint(v))
	}
	if body, ok := requestBody(cfg); ok && method != "GET" && method != "HEAD" {
		r.SetBody(body)
	}

	logger.Debug("Sending HTTP request.")
	start := time.Now()
	res, err := r.Execute(method, url)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		return out.Fail(action.Transport("http "+method, err))
	}

	status := res.StatusCode()
	respHeaders := make(map[string]any, len(res.Header()))
	for k := range res.Header() {
		respHeaders[k] = res.Header().Get(k)
	}
	out.Set("http_status_code", status)
	out.Set("http_response_body", res.String())
	out.Set("http_response_time", elapsed)
	out.Set("http_response_headers", respHeaders)

	out.Tracef("Response status: %d", status)
	out.Tracef("Response time: %.3fs", elapsed)
	logger.Debug("Received HTTP response.", "status", status)

	if status < 200 || status >= 300 {
		return out.Fail(fmt.Errorf("HTTP error: %d", status))
	}
	out.Tracef("Request succeeded")
	out.Result = map[string]any{"status_code": status, "body": action.Truncate(res.String(), 1000)}
	return out
}

// requestBody returns the body to send. JSON text is sent as JSON, other
// text as is.
func requestBody(cfg action.Config) (any, bool) {
	if !cfg.Has("body") {
		return nil, false
	}
	switch b := cfg["body"].(type) {
	case string:
		var doc any
		if json.Unmarshal([]byte(b), &doc) == nil {
			return doc, true
		}
		return b, true
	default:
		return b, true
	}
}

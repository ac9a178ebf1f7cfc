// Package socketio forwards run events to a socket.io server so that
// dashboards can follow campaign progress live.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/events"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const defaultConnectTimeout = 15 * time.Second

// Options configures the socket.io connection.
type Options struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

type emitFunc func(event string, data any)

// Sink emits every event under its own name, with the event itself as
// the message body.
type Sink struct {
	emit  emitFunc
	close func()
}

// NewSink wraps an emit function. It is mostly useful for tests.
func NewSink(emit func(event string, data any)) *Sink {
	return &Sink{emit: emit, close: func() {}}
}

// Dial connects to the socket.io server and returns a Sink using the
// connection. It waits for the connect event, ctx cancellation or the
// connect timeout, whichever comes first.
func Dial(ctx context.Context, opts Options) (*Sink, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", opts.URL)

	parsed, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}

	sopts := socket.DefaultOptions()
	if parsed.Path != "" {
		sopts.SetPath(parsed.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host), sopts)
	io := manager.Socket(opts.Namespace, sopts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				connected <- err
				return
			}
		}
		connected <- fmt.Errorf("connect_error: %v", errs)
	})

	logger.Debug("Connecting to socket.io server.")
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(opts.ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", opts.ConnectTimeout)
	}
	logger.Info("🔌 Connected to socket.io server", "sid", io.Id())

	return &Sink{
		emit:  func(event string, data any) { io.Emit(event, data) },
		close: func() { io.Disconnect() },
	}, nil
}

// Emit implements events.Sink.
func (s *Sink) Emit(_ context.Context, e events.Event) {
	s.emit(string(e.Name), map[string]any{
		"run_id":    e.RunID,
		"timestamp": e.Timestamp.Format(time.RFC3339Nano),
		"payload":   e.Payload,
	})
}

// Close disconnects from the server.
func (s *Sink) Close() error {
	s.close()
	return nil
}

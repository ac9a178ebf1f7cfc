// Package mqtt publishes run events to an MQTT broker.
//
// Events are JSON encoded and published to
// <prefix>/<run id>/<event name> with QoS 1, not retained.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/events"
)

const (
	DefaultTopicPrefix = "testgrid/runs"
	defaultTimeout     = 10 * time.Second
	qos                = 1
)

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Options configures the broker connection.
type Options struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Timeout     time.Duration
}

// Sink publishes events through a Publisher.
type Sink struct {
	pub    Publisher
	prefix string
}

// NewSink creates a Sink. An empty prefix selects DefaultTopicPrefix.
func NewSink(pub Publisher, prefix string) *Sink {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Sink{pub: pub, prefix: prefix}
}

// Topic returns the topic an event is published to.
func (s *Sink) Topic(e events.Event) string {
	return fmt.Sprintf("%s/%s/%s", s.prefix, e.RunID, e.Name)
}

// Emit implements events.Sink. Failures are logged and otherwise ignored.
func (s *Sink) Emit(ctx context.Context, e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to encode event for MQTT.", "event", e.Name, "error", err)
		return
	}
	if err := s.pub.Publish(s.Topic(e), data); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to publish event to MQTT.", "event", e.Name, "error", err)
	}
}

// Client is a Publisher backed by a paho connection.
type Client struct {
	c       paho.Client
	timeout time.Duration
}

// Connect opens a broker connection.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt: broker address is required")
	}
	if opts.ClientID == "" {
		opts.ClientID = "testgrid-" + uuid.NewString()[:8]
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetConnectTimeout(opts.Timeout).
		SetAutoReconnect(true)
	if opts.Username != "" {
		po.SetUsername(opts.Username)
		po.SetPassword(opts.Password)
	}

	c := paho.NewClient(po)
	tok := c.Connect()
	if err := wait(ctx, tok, opts.Timeout); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", opts.Broker, err)
	}
	ctxlog.FromContext(ctx).Info("📡 Connected to MQTT broker", "broker", opts.Broker, "client_id", opts.ClientID)
	return &Client{c: c, timeout: opts.Timeout}, nil
}

// Publish implements Publisher.
func (c *Client) Publish(topic string, payload []byte) error {
	return wait(context.Background(), c.c.Publish(topic, qos, false, payload), c.timeout)
}

// Close disconnects, giving in-flight messages 250ms to complete.
func (c *Client) Close() error {
	c.c.Disconnect(250)
	return nil
}

func wait(ctx context.Context, tok paho.Token, timeout time.Duration) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return fmt.Errorf("timed out after %s", timeout)
	}
}

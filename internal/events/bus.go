package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
)

const defaultBusBuffer = 256

// BusMetrics reports delivery counters.
type BusMetrics struct {
	Published int64
	Delivered int64
	Dropped   int64
}

// Bus fans events out to subscribed sinks. Events are queued and delivered
// in publish order by one dispatcher goroutine. When the queue is full the
// event is dropped and counted.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink

	// sendMu guards queue against being closed during a send.
	sendMu sync.RWMutex
	queue  chan queued
	done   chan struct{}
	closed bool

	published atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64
}

type queued struct {
	ctx context.Context
	ev  Event
}

// NewBus creates and starts a Bus with the given queue size. A size of
// zero or less selects the default.
func NewBus(buffer int, sinks ...Sink) *Bus {
	if buffer <= 0 {
		buffer = defaultBusBuffer
	}
	b := &Bus{
		sinks: sinks,
		queue: make(chan queued, buffer),
		done:  make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Subscribe adds a sink.
func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Emit queues e for delivery. It never blocks.
func (b *Bus) Emit(ctx context.Context, e Event) {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()
	if b.closed {
		b.dropped.Add(1)
		return
	}
	b.published.Add(1)
	select {
	case b.queue <- queued{ctx: context.WithoutCancel(ctx), ev: e}:
	default:
		b.dropped.Add(1)
		ctxlog.FromContext(ctx).Warn("Event queue full, event dropped.", "event", e.Name, "run_id", e.RunID)
	}
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for q := range b.queue {
		b.mu.RLock()
		sinks := append([]Sink(nil), b.sinks...)
		b.mu.RUnlock()

		for _, s := range sinks {
			b.deliver(q, s)
		}
	}
}

func (b *Bus) deliver(q queued, s Sink) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(q.ctx).Error("Event sink panicked.", "event", q.ev.Name, "panic", r)
		}
	}()
	s.Emit(q.ctx, q.ev)
	b.delivered.Add(1)
}

// Close stops accepting events, delivers what is queued and waits for the
// dispatcher to finish.
func (b *Bus) Close() {
	b.sendMu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.sendMu.Unlock()
	<-b.done
}

// Metrics returns a snapshot of the delivery counters.
func (b *Bus) Metrics() BusMetrics {
	return BusMetrics{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Dropped:   b.dropped.Load(),
	}
}

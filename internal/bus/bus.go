// Package bus is the engine's typed publish/subscribe fabric. It replaces
// ambient hook dispatch with an explicit observer list per event name, so
// the scheduler never knows who is watching severity changes.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fitvtt/attrition/pkg/core"
)

// Event is one occurrence published on the bus.
type Event struct {
	Name      string
	ActorID   core.ActorID
	Payload   any
	Timestamp time.Time
}

// HandlerFunc consumes an event. Handlers must not block the publisher;
// slow consumers subscribe Buffered.
type HandlerFunc func(Event)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a subscription.
type Option func(*subConfig)

type subConfig struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the subscriber async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *subConfig) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered subscriber block when the queue is full instead
// of dropping.
func Blocking() Option {
	return func(c *subConfig) {
		c.blocking = true
	}
}

// Logged adds debug logging around the subscriber.
func Logged() Option {
	return func(c *subConfig) {
		c.logged = true
	}
}

// Bus fans events out to subscribers keyed by event name.
type Bus struct {
	logger Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	published metric.Int64Counter
	dropped   metric.Int64Counter

	mu      sync.RWMutex
	subs    map[string][]HandlerFunc
	buffers []*subBuffer
}

type subBuffer struct {
	event string
	ch    chan Event
}

// New creates a new Bus with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Bus, error) {
	b := &Bus{
		subs:   make(map[string][]HandlerFunc),
		logger: logger,
	}

	m := meter()

	var err error

	b.queueSize, err = m.Int64ObservableGauge(
		"bus.queue.size",
		metric.WithDescription("Current number of events queued per subscriber"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			b.mu.RLock()
			defer b.mu.RUnlock()
			for _, buf := range b.buffers {
				o.ObserveInt64(b.queueSize, int64(len(buf.ch)),
					metric.WithAttributes(attribute.String("event", buf.event)))
			}
			return nil
		},
		b.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	b.published, err = m.Int64Counter(
		"bus.events.published",
		metric.WithDescription("Total events delivered to subscribers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating published counter: %w", err)
	}

	b.dropped, err = m.Int64Counter(
		"bus.events.dropped",
		metric.WithDescription("Total events dropped due to full subscriber queues"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return b, nil
}

// Subscribe registers a handler for the named event with optional configuration.
func (b *Bus) Subscribe(event string, h HandlerFunc, opts ...Option) {
	cfg := &subConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.bufferSize > 0 {
		handler = b.withBuffer(event, cfg.bufferSize, cfg.blocking, handler)
	}

	if cfg.logged {
		handler = b.withLogging(event, handler)
	}

	b.mu.Lock()
	b.subs[event] = append(b.subs[event], handler)
	b.mu.Unlock()
}

// Publish delivers an event to every subscriber of its name. Publishing an
// event nobody subscribes to is not an error.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	handlers := b.subs[e.Name]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}

	b.published.Add(context.Background(), int64(len(handlers)),
		metric.WithAttributes(attribute.String("event", e.Name)))
}

// HasSubscribers returns true if anyone listens for the event.
func (b *Bus) HasSubscribers(event string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[event]) > 0
}

func (b *Bus) withBuffer(event string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	b.mu.Lock()
	b.buffers = append(b.buffers, &subBuffer{event: event, ch: buffer})
	b.mu.Unlock()

	eventAttr := attribute.String("event", event)

	go func() {
		for e := range buffer {
			h(e)
		}
	}()

	if blocking {
		return func(e Event) {
			buffer <- e
		}
	}

	return func(e Event) {
		select {
		case buffer <- e:
		default:
			b.dropped.Add(context.Background(), 1, metric.WithAttributes(eventAttr))
			if b.logger != nil {
				b.logger.Error("subscriber queue full, event dropped", "event", event)
			}
		}
	}
}

func (b *Bus) withLogging(event string, h HandlerFunc) HandlerFunc {
	return func(e Event) {
		start := time.Now()
		b.logger.Debug("handling event", "event", event, "actor", e.ActorID)

		h(e)

		b.logger.Debug("event complete", "event", event, "duration", time.Since(start))
	}
}

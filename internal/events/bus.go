// Package events carries catalog domain events from producers (CRUD
// handlers, the import runner) to in-process consumers (the webhook
// dispatcher). Publishing is fire-and-forget: an event published while no
// subscriber is registered, or while a subscriber's buffer is full, is
// dropped with a log line. There is no persistence across restarts.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Webhook event types
const (
	ProductCreated  = "product.created"
	ProductUpdated  = "product.updated"
	ProductDeleted  = "product.deleted"
	ImportCompleted = "import.completed"
)

// Known reports whether eventType belongs to the enumerated event set
func Known(eventType string) bool {
	switch eventType {
	case ProductCreated, ProductUpdated, ProductDeleted, ImportCompleted:
		return true
	}
	return false
}

// Event is an ephemeral domain event message
type Event struct {
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Publisher is the producer-side contract of the bus
type Publisher interface {
	Publish(event Event)
}

// Handler consumes events delivered in publish order
type Handler func(event Event)

// Bus is an in-process publish point. Each subscriber gets its own buffered
// channel drained by a dedicated goroutine, so handler execution never
// blocks the publishing call site and a single publisher's events reach
// each subscriber in order.
type Bus struct {
	logger *slog.Logger
	buffer int

	mu     sync.Mutex
	subs   []chan Event
	closed bool
	wg     sync.WaitGroup
}

// NewBus creates a bus with the given per-subscriber buffer size
func NewBus(logger *slog.Logger, buffer int) *Bus {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Bus{logger: logger, buffer: buffer}
}

// Subscribe registers a handler invoked for every subsequently published
// event, on a dedicated goroutine
func (b *Bus) Subscribe(handler Handler) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return
	}
	b.subs = append(b.subs, ch)
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for ev := range ch {
			handler(ev)
		}
	}()
}

// Publish delivers the event to all current subscribers without blocking.
// A subscriber whose buffer is full misses the event.
func (b *Bus) Publish(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Warn("Event published after bus close, dropping",
			slog.String("event", event.Type),
		)
		return
	}
	subs := make([]chan Event, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			b.logger.Warn("Subscriber buffer full, dropping event",
				slog.String("event", event.Type),
			)
		}
	}
}

// Close stops accepting events and waits for subscribers to drain their
// buffers
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
	b.wg.Wait()
}

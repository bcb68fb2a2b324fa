// Package events provides a small in-process event bus that decouples
// the request path from observers like the stats collector.
package events

import (
	"sync"
)

// EventType represents the type of event
type EventType string

const (
	// Batch lifecycle events
	EventBatchCompleted EventType = "batch.completed"
	EventBatchRejected  EventType = "batch.rejected"

	// Config events
	EventConfigReloaded EventType = "config.reloaded"
)

// allEventTypes is the set SubscribeAll fans a handler out to.
var allEventTypes = []EventType{
	EventBatchCompleted,
	EventBatchRejected,
	EventConfigReloaded,
}

// Event represents a gateway event
type Event struct {
	Type      EventType
	RequestID string
	Data      map[string]any
}

// Handler is a function that handles events
type Handler func(event Event)

// Bus is a simple event bus for decoupled communication between components
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	closed   bool
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all events
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, et := range allEventTypes {
		b.handlers[et] = append(b.handlers[et], handler)
	}
}

// Publish sends an event to all registered handlers.
// Handlers are called synchronously in the order they were registered.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// PublishAsync sends an event to all registered handlers asynchronously.
func (b *Bus) PublishAsync(event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	go func() {
		for _, handler := range handlers {
			handler(event)
		}
	}()
}

// Close shuts the bus down; further subscriptions and publishes are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.handlers = make(map[EventType][]Handler)
}

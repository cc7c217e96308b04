// Package shared holds the domain event plumbing used by the aggregates
package shared

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DomainEvent represents an event that has occurred in the domain
type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// EventHandler reacts to one dispatched event
type EventHandler func(ctx context.Context, event DomainEvent) error

// AggregateRoot records the events raised while an aggregate was built
type AggregateRoot struct {
	events []DomainEvent
}

// AddEvent records a domain event
func (a *AggregateRoot) AddEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// Events returns the recorded events in the order they were raised
func (a *AggregateRoot) Events() []DomainEvent {
	return append([]DomainEvent(nil), a.events...)
}

// Dispatcher fans events out to the handlers registered for their name.
// Every handler runs; their errors are joined.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]EventHandler)}
}

// Register adds a handler for eventName. "*" receives every event.
func (d *Dispatcher) Register(eventName string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], handler)
}

// Dispatch delivers events in order
func (d *Dispatcher) Dispatch(ctx context.Context, events ...DomainEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var errs []error
	for _, ev := range events {
		handlers := append(append([]EventHandler(nil), d.handlers[ev.EventName()]...), d.handlers["*"]...)
		for _, h := range handlers {
			if err := h(ctx, ev); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", ev.EventName(), err))
			}
		}
	}
	return errors.Join(errs...)
}

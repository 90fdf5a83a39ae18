package reporting

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventFilter is a function that determines if an event should be delivered
type EventFilter func(Event) bool

// EventSubscription represents a subscription to events
type EventSubscription struct {
	ID      string
	Filter  EventFilter
	Channel chan Event
	Closed  bool
	mu      sync.RWMutex
}

// Close closes the subscription
func (s *EventSubscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Closed {
		close(s.Channel)
		s.Closed = true
	}
}

// IsClosed returns whether the subscription is closed
func (s *EventSubscription) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Closed
}

// deliver never blocks. When the buffer is full the oldest queued event is
// discarded so the subscriber always ends up with the newest one.
func (s *EventSubscription) deliver(event Event) (delivered, dropped bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Closed {
		return false, false
	}
	select {
	case s.Channel <- event:
		return true, false
	default:
	}
	select {
	case <-s.Channel:
		dropped = true
	default:
	}
	select {
	case s.Channel <- event:
		return true, dropped
	default:
		return false, true
	}
}

// EventBus provides publish/subscribe functionality for events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(event Event)

	// Subscribe creates a channel subscription
	Subscribe(filter EventFilter, bufferSize int) *EventSubscription

	// Unsubscribe removes a subscription
	Unsubscribe(subscription *EventSubscription)

	// GetMetrics returns event bus metrics
	GetMetrics() EventBusMetrics

	// Close closes the event bus and all subscriptions
	Close()
}

// EventBusMetrics tracks event bus activity
type EventBusMetrics struct {
	TotalSubscriptions  int
	ActiveSubscriptions int
	EventsPublished     int64
	EventsDelivered     int64
	EventsDropped       int64
	LastEventTime       time.Time
	EventsByType        map[EventType]int64
}

// DefaultEventBus is the default implementation of EventBus
type DefaultEventBus struct {
	subscriptions map[string]*EventSubscription
	metrics       EventBusMetrics
	mu            sync.RWMutex
	closed        bool
}

// NewEventBus creates a new event bus
func NewEventBus() EventBus {
	return &DefaultEventBus{
		subscriptions: make(map[string]*EventSubscription),
		metrics: EventBusMetrics{
			EventsByType: make(map[EventType]int64),
		},
	}
}

// Publish publishes an event to all subscribers
func (eb *DefaultEventBus) Publish(event Event) {
	eb.mu.RLock()
	if eb.closed {
		eb.mu.RUnlock()
		return
	}
	subs := make([]*EventSubscription, 0, len(eb.subscriptions))
	for _, s := range eb.subscriptions {
		subs = append(subs, s)
	}
	eb.mu.RUnlock()

	delivered := 0
	dropped := 0
	for _, subscription := range subs {
		if subscription.Filter != nil && !subscription.Filter(event) {
			continue
		}
		ok, lost := subscription.deliver(event)
		if ok {
			delivered++
		}
		if lost {
			dropped++
		}
	}

	eb.mu.Lock()
	eb.metrics.EventsPublished++
	eb.metrics.EventsByType[event.Type()]++
	eb.metrics.LastEventTime = event.Timestamp()
	eb.metrics.EventsDelivered += int64(delivered)
	eb.metrics.EventsDropped += int64(dropped)
	eb.mu.Unlock()
}

// Subscribe creates a subscription with a buffered channel.
// It returns nil once the bus is closed.
func (eb *DefaultEventBus) Subscribe(filter EventFilter, bufferSize int) *EventSubscription {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return nil
	}
	if bufferSize < 1 {
		bufferSize = 1
	}

	subscription := &EventSubscription{
		ID:      uuid.NewString(),
		Filter:  filter,
		Channel: make(chan Event, bufferSize),
	}

	eb.subscriptions[subscription.ID] = subscription
	eb.metrics.TotalSubscriptions++
	eb.metrics.ActiveSubscriptions++

	return subscription
}

// Unsubscribe removes a subscription
func (eb *DefaultEventBus) Unsubscribe(subscription *EventSubscription) {
	if subscription == nil {
		return
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if _, exists := eb.subscriptions[subscription.ID]; exists {
		subscription.Close()
		delete(eb.subscriptions, subscription.ID)
		eb.metrics.ActiveSubscriptions--
	}
}

// GetMetrics returns event bus metrics
func (eb *DefaultEventBus) GetMetrics() EventBusMetrics {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Return a copy to prevent external modification
	metrics := eb.metrics
	metrics.EventsByType = make(map[EventType]int64, len(eb.metrics.EventsByType))
	for k, v := range eb.metrics.EventsByType {
		metrics.EventsByType[k] = v
	}
	return metrics
}

// Close closes the event bus and all subscriptions
func (eb *DefaultEventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, subscription := range eb.subscriptions {
		subscription.Close()
	}

	eb.subscriptions = make(map[string]*EventSubscription)
	eb.metrics.ActiveSubscriptions = 0
}

// Common event filters

// FilterByType creates a filter that matches events of specific types
func FilterByType(eventTypes ...EventType) EventFilter {
	typeMap := make(map[EventType]bool)
	for _, t := range eventTypes {
		typeMap[t] = true
	}

	return func(event Event) bool {
		return typeMap[event.Type()]
	}
}

// FilterBySource creates a filter that matches events from specific sources
func FilterBySource(sources ...string) EventFilter {
	sourceMap := make(map[string]bool)
	for _, s := range sources {
		sourceMap[s] = true
	}

	return func(event Event) bool {
		return sourceMap[event.Source()]
	}
}

// FilterBySeverity creates a filter that matches events with minimum severity
func FilterBySeverity(minSeverity EventSeverity) EventFilter {
	minLevel := severityLevels[minSeverity]

	return func(event Event) bool {
		eventLevel, exists := severityLevels[event.Severity()]
		return exists && eventLevel >= minLevel
	}
}

// CombineFilters combines multiple filters with AND logic
func CombineFilters(filters ...EventFilter) EventFilter {
	return func(event Event) bool {
		for _, filter := range filters {
			if !filter(event) {
				return false
			}
		}
		return true
	}
}

// AnyFilter combines multiple filters with OR logic
func AnyFilter(filters ...EventFilter) EventFilter {
	return func(event Event) bool {
		for _, filter := range filters {
			if filter(event) {
				return true
			}
		}
		return false
	}
}

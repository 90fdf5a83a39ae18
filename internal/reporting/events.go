package reporting

import (
	"fmt"
	"time"
)

// EventType defines the type of event
type EventType string

const (
	// Aggregate state events
	EventTypeStateChanged EventType = "session.state"
	EventTypeNotice       EventType = "session.notice"

	// Negotiation events
	EventTypeRouteProposed EventType = "negotiation.proposed"
	EventTypeRouteResolved EventType = "negotiation.resolved"

	// Reinit events
	EventTypeReinitRequested EventType = "reinit.requested"

	// Pool configuration events
	EventTypeFlowOpened EventType = "poolconfig.opened"
	EventTypeFlowClosed EventType = "poolconfig.closed"

	// Backend connection events
	EventTypeBackendDisconnected EventType = "backend.disconnected"

	// System events
	EventTypeSystemStartup  EventType = "system.startup"
	EventTypeSystemShutdown EventType = "system.shutdown"
)

// EventSeverity indicates the importance/severity of an event
type EventSeverity string

const (
	SeverityDebug EventSeverity = "debug"
	SeverityInfo  EventSeverity = "info"
	SeverityWarn  EventSeverity = "warn"
	SeverityError EventSeverity = "error"
)

var severityLevels = map[EventSeverity]int{
	SeverityDebug: 0,
	SeverityInfo:  1,
	SeverityWarn:  2,
	SeverityError: 3,
}

// Event is the base interface for all events in the system
type Event interface {
	// Type returns the event type
	Type() EventType

	// Source returns the component that generated this event
	Source() string

	// Timestamp returns when the event occurred
	Timestamp() time.Time

	// Severity returns the event severity
	Severity() EventSeverity

	// CorrelationID ties related events together, e.g. all events about one route proposal.
	CorrelationID() string

	// Metadata returns additional event-specific data
	Metadata() map[string]interface{}

	// String returns a human-readable description of the event
	String() string
}

// BaseEvent provides common event functionality. Concrete events embed it.
type BaseEvent struct {
	EventType     EventType              `json:"type"`
	SourceLabel   string                 `json:"source"`
	EventTime     time.Time              `json:"timestamp"`
	EventSeverity EventSeverity          `json:"severity"`
	CorrelationId string                 `json:"correlation_id,omitempty"`
	Message       string                 `json:"message,omitempty"`
	Meta          map[string]interface{} `json:"metadata,omitempty"`
}

// NewBaseEvent creates a BaseEvent stamped with the current time.
func NewBaseEvent(eventType EventType, source string, severity EventSeverity, message string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SourceLabel:   source,
		EventTime:     time.Now(),
		EventSeverity: severity,
		Message:       message,
	}
}

// Type implements Event interface
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Source implements Event interface
func (e BaseEvent) Source() string {
	return e.SourceLabel
}

// Timestamp implements Event interface
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// Severity implements Event interface
func (e BaseEvent) Severity() EventSeverity {
	return e.EventSeverity
}

// CorrelationID implements Event interface
func (e BaseEvent) CorrelationID() string {
	return e.CorrelationId
}

// Metadata implements Event interface
func (e BaseEvent) Metadata() map[string]interface{} {
	return e.Meta
}

// String implements Event interface
func (e BaseEvent) String() string {
	if e.Message == "" {
		return fmt.Sprintf("[%s] %s", e.SourceLabel, e.EventType)
	}
	return fmt.Sprintf("[%s] %s: %s", e.SourceLabel, e.EventType, e.Message)
}

// WithCorrelation sets the correlation ID.
func (e *BaseEvent) WithCorrelation(correlationID string) *BaseEvent {
	e.CorrelationId = correlationID
	return e
}

// WithMetadata adds a metadata entry.
func (e *BaseEvent) WithMetadata(key string, value interface{}) *BaseEvent {
	if e.Meta == nil {
		e.Meta = make(map[string]interface{})
	}
	e.Meta[key] = value
	return e
}

package shared

import (
	"context"
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each one records a state change that already happened.
const (
	EventMentorshipCreated   EventType = "mentorship.created"
	EventMentorshipAccepted  EventType = "mentorship.accepted"
	EventMentorshipCancelled EventType = "mentorship.cancelled"
	EventMentorshipCompleted EventType = "mentorship.completed"

	EventMeetingScheduled   EventType = "meeting.scheduled"
	EventMeetingCompleted   EventType = "meeting.completed"
	EventMeetingCancelled   EventType = "meeting.cancelled"
	EventMeetingRescheduled EventType = "meeting.rescheduled"

	EventObjectiveProgressed EventType = "objective.progressed"
	EventObjectiveCompleted  EventType = "objective.completed"

	EventFeedbackSubmitted  EventType = "feedback.submitted"
	EventMentorRatingUpdate EventType = "mentor.rating_updated"

	EventExamAssigned  EventType = "exam.assigned"
	EventExamCompleted EventType = "exam.completed"
)

// Event is the base interface for all domain events.
type Event interface {
	EventType() EventType
	OccurredAt() time.Time
	AggregateID() string
	Payload() map[string]any
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.AggregateId }

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Generic payload event
// ═══════════════════════════════════════════════════════════════════════════

// ChangeEvent carries a flat payload. The engine's events are small enough
// that one shape covers all of them.
type ChangeEvent struct {
	BaseEvent
	Data map[string]any `json:"data"`
}

// Payload implements Event interface.
func (e ChangeEvent) Payload() map[string]any {
	return e.Data
}

// NewChangeEvent creates an event for aggregateID with the given payload.
func NewChangeEvent(eventType EventType, aggregateID string, at time.Time, data map[string]any) ChangeEvent {
	if data == nil {
		data = map[string]any{}
	}
	return ChangeEvent{
		BaseEvent: NewBaseEvent(eventType, aggregateID, at),
		Data:      data,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Event restores a ChangeEvent from the envelope.
func (e EventEnvelope) Event() (ChangeEvent, error) {
	data := map[string]any{}
	if len(e.Payload) > 0 {
		if err := json.Unmarshal(e.Payload, &data); err != nil {
			return ChangeEvent{}, err
		}
	}
	ev := NewChangeEvent(e.Type, e.AggregateID, e.Timestamp, data)
	ev.Version = e.Version
	ev.CorrelationID = e.CorrelationID
	return ev, nil
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }

// Ctx-scoped correlation id, attached to events by publishers that care.
type correlationKey struct{}

// WithCorrelation stores a correlation id in ctx.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationFrom returns the correlation id stored in ctx, if any.
func CorrelationFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

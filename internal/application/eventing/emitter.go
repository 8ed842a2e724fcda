// Package eventing publishes domain events on behalf of application
// services. Publishing is best-effort: failures are logged and dropped.
package eventing

import (
	"context"
	"time"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/logger"
)

// Emitter wraps an EventPublisher.
type Emitter struct {
	pub shared.EventPublisher
	log *logger.Logger
}

// NewEmitter returns an emitter. A nil publisher drops every event.
func NewEmitter(pub shared.EventPublisher, log *logger.Logger) *Emitter {
	if pub == nil {
		pub = shared.NopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Emitter{pub: pub, log: log}
}

// Emit publishes a change event, tagging it with the correlation id in ctx.
func (e *Emitter) Emit(ctx context.Context, eventType shared.EventType, aggregateID string, at time.Time, data map[string]any) {
	ev := shared.NewChangeEvent(eventType, aggregateID, at, data)
	if id := shared.CorrelationFrom(ctx); id != "" {
		ev.BaseEvent = ev.WithCorrelationID(id)
	}
	if err := e.pub.Publish(ev); err != nil {
		e.log.Warn("failed to publish event",
			logger.EventType(string(eventType)),
			logger.String("aggregate_id", aggregateID),
			logger.Err(err),
		)
	}
}

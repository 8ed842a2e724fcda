// Package testutil holds fakes shared by the service tests.
package testutil

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
)

// Epoch is the frozen start time used by service tests.
var Epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// EventRecorder is a shared.EventPublisher that keeps every event.
type EventRecorder struct {
	mu     sync.Mutex
	events []shared.Event
	// Err, when set, is returned from Publish after recording.
	Err error
}

// Publish implements shared.EventPublisher.
func (r *EventRecorder) Publish(e shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.Err
}

// Types returns the recorded event types in publish order.
func (r *EventRecorder) Types() []shared.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

// Last returns the most recent event of type t, or nil.
func (r *EventRecorder) Last(t shared.EventType) shared.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].EventType() == t {
			return r.events[i]
		}
	}
	return nil
}

// Count returns how many events of type t were recorded.
func (r *EventRecorder) Count(t shared.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventType() == t {
			n++
		}
	}
	return n
}

// Reset drops the recorded events.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// SequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

// Package bus provides event bus implementations for broadcasting
// interaction and index lifecycle events.
package bus

import (
	"context"
	"time"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type (e.g., "conversation.interaction").
	Type string `json:"type"`

	// Source is the component that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created.
	Timestamp int64 `json:"timestamp"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// NewEvent creates an event with type and payload, stamped now.
func NewEvent(eventType, source string, payload any) Event {
	now := time.Now()
	return Event{
		ID:        now.Format("20060102150405.000000000"),
		Type:      eventType,
		Source:    source,
		Timestamp: now.Unix(),
		Payload:   payload,
	}
}

// Topics for different event types.
const (
	// TopicInteraction carries one event per answered question.
	TopicInteraction = "conversation.interaction"

	// TopicIndexRebuilt signals a completed index rebuild.
	TopicIndexRebuilt = "index.rebuilt"
)

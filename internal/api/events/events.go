// Package events publishes job and task lifecycle notifications.
// Publishing is best effort: a failed publish never fails the request.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types, also used as routing keys
const (
	TypeJobCreated   = "job.created"
	TypeJobUpdated   = "job.updated"
	TypeJobDeleted   = "job.deleted"
	TypeTaskAccepted = "task.accepted"
	TypeTaskRemoved  = "task.removed"
)

// Event is the message body sent to the broker
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// New creates an event with a fresh id and the current time
func New(eventType string, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher sends events somewhere
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Broker is the subset of the RabbitMQ client the publisher needs
type Broker interface {
	PublishWithRetry(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// RabbitPublisher publishes events as JSON with the event type as routing key
type RabbitPublisher struct {
	broker Broker
}

// NewRabbitPublisher creates a RabbitPublisher
func NewRabbitPublisher(broker Broker) *RabbitPublisher {
	return &RabbitPublisher{broker: broker}
}

func (p *RabbitPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.Type, err)
	}
	return p.broker.PublishWithRetry(ctx, event.Type, body, "application/json")
}

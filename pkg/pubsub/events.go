package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

// EnvelopeVersion is bumped whenever the envelope shape changes.
const EnvelopeVersion = 1

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role,omitempty"`
}

// Event is a domain event ready to be wrapped and published.
type Event struct {
	Type string
	// Key groups related events, e.g. the report id.
	Key   string
	Actor *ActorRef
	Data  any
}

// Envelope is the wire shape of every published message.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type sendFunc func(ctx context.Context, data []byte, attrs map[string]string) error

// TopicPublisher wraps events in an Envelope and sends them to one topic.
type TopicPublisher struct {
	send sendFunc
	now  func() time.Time
}

// NewTopicPublisher publishes through p and waits for the server ack.
func NewTopicPublisher(p *pubsub.Publisher) (*TopicPublisher, error) {
	if p == nil {
		return nil, fmt.Errorf("pubsub publisher required")
	}
	return newTopicPublisher(func(ctx context.Context, data []byte, attrs map[string]string) error {
		res := p.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
		_, err := res.Get(ctx)
		return err
	}), nil
}

func newTopicPublisher(send sendFunc) *TopicPublisher {
	return &TopicPublisher{
		send: send,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Publish encodes the event and sends it.
func (t *TopicPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := Encode(event, t.now())
	if err != nil {
		return err
	}
	if err := t.send(ctx, msg.Body, msg.Attributes); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Message is an event encoded for the wire.
type Message struct {
	EventID    uuid.UUID
	Body       []byte
	Attributes map[string]string
}

// Encode wraps event in an Envelope stamped with a fresh event id and at.
func Encode(event Event, at time.Time) (*Message, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.Type, err)
	}
	id := uuid.New()
	env := Envelope{
		Version:    EnvelopeVersion,
		EventID:    id.String(),
		EventType:  event.Type,
		OccurredAt: at.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return &Message{EventID: id, Body: body, Attributes: Attributes(env, event.Key)}, nil
}

// Attributes returns the message attributes for an envelope.
func Attributes(env Envelope, key string) map[string]string {
	attrs := map[string]string{
		"event_type": env.EventType,
		"event_id":   env.EventID,
	}
	if key != "" {
		attrs["key"] = key
	}
	return attrs
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

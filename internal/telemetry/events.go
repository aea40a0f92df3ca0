package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Publisher delivers serialized events to a broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// Routing keys for client events.
const (
	RoutingChat = "client_events.chat"
	RoutingAuth = "client_events.auth"
	RoutingFeed = "client_events.feed"
)

// EventEmitter publishes client activity events.
type EventEmitter struct {
	publisher   Publisher
	service     string
	environment string
	log         zerolog.Logger
}

// ClientEvent is the envelope of every published event.
type ClientEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventID       string         `json:"event_id"`
	EventType     string         `json:"event_type"`
	OccurredAt    string         `json:"occurred_at"`
	Service       string         `json:"service"`
	Environment   string         `json:"environment"`
	MemberID      *int64         `json:"member_id,omitempty"`
	Payload       map[string]any `json:"payload"`
}

// NewEventEmitter returns an emitter; a nil publisher makes Emit a no-op.
func NewEventEmitter(publisher Publisher, service, environment string, logger zerolog.Logger) *EventEmitter {
	return &EventEmitter{
		publisher:   publisher,
		service:     service,
		environment: environment,
		log:         logger,
	}
}

// Emit publishes one event. Failures are logged, never returned.
func (e *EventEmitter) Emit(ctx context.Context, routingKey, eventType string, memberID int64, payload map[string]any) {
	if e == nil || e.publisher == nil {
		return
	}

	event := ClientEvent{
		SchemaVersion: 1,
		EventID:       uuid.NewString(),
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		Payload:       payload,
	}
	if memberID != 0 {
		event.MemberID = &memberID
	}

	e.log.Debug().Str("event_type", eventType).Str("routing_key", routingKey).Msg("emit client event")
	if err := e.publisher.Publish(ctx, routingKey, event); err != nil {
		e.log.Warn().Err(err).Str("event_type", eventType).Msg("client event publish failed")
	}
}

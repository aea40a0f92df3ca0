package telemetry_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chat-client/internal/mocks"
	"chat-client/internal/telemetry"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.EventPublisherMock)
	emitter := telemetry.NewEventEmitter(publisher, "chat-client", "test", zerolog.Nop())

	publisher.On("Publish", mock.Anything, telemetry.RoutingChat, mock.MatchedBy(func(ev telemetry.ClientEvent) bool {
		return ev.EventType == "message_sent" &&
			ev.SchemaVersion == 1 &&
			ev.Service == "chat-client" &&
			ev.MemberID != nil && *ev.MemberID == 9 &&
			ev.Payload["room_id"] == int64(4) &&
			ev.EventID != ""
	})).Return(nil).Once()

	emitter.Emit(context.Background(), telemetry.RoutingChat, "message_sent", 9, map[string]any{"room_id": int64(4)})

	publisher.AssertExpectations(t)
}

func TestEmitOmitsAnonymousMember(t *testing.T) {
	publisher := new(mocks.EventPublisherMock)
	emitter := telemetry.NewEventEmitter(publisher, "chat-client", "test", zerolog.Nop())

	publisher.On("Publish", mock.Anything, telemetry.RoutingAuth, mock.MatchedBy(func(ev telemetry.ClientEvent) bool {
		return ev.MemberID == nil
	})).Return(assert.AnError).Once()

	emitter.Emit(context.Background(), telemetry.RoutingAuth, "logout", 0, nil)

	publisher.AssertExpectations(t)
}

func TestNilEmitterIsNoop(t *testing.T) {
	var emitter *telemetry.EventEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), telemetry.RoutingChat, "room_joined", 1, nil)
	})
}

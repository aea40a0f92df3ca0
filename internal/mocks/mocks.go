package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-client/internal/models"
)

type SessionRepositoryMock struct {
	mock.Mock
}

func (m *SessionRepositoryMock) Load(ctx context.Context) (models.StoredSession, error) {
	args := m.Called(ctx)
	var s models.StoredSession
	if val := args.Get(0); val != nil {
		s = val.(models.StoredSession)
	}
	return s, args.Error(1)
}

func (m *SessionRepositoryMock) Save(ctx context.Context, s models.StoredSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *SessionRepositoryMock) Delete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type HistoryClientMock struct {
	mock.Mock
}

func (m *HistoryClientMock) ChatMessages(ctx context.Context, room models.RoomRef) ([]models.ChatMessage, error) {
	args := m.Called(ctx, room)
	var msgs []models.ChatMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.ChatMessage)
	}
	return msgs, args.Error(1)
}

func (m *HistoryClientMock) LeaveRoom(ctx context.Context, room models.RoomRef) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

type ConfirmerMock struct {
	mock.Mock
}

func (m *ConfirmerMock) Confirm(ctx context.Context, prompt string) bool {
	args := m.Called(ctx, prompt)
	return args.Bool(0)
}

type ChatViewMock struct {
	mock.Mock
}

func (m *ChatViewMock) Room() (models.RoomRef, bool) {
	args := m.Called()
	var room models.RoomRef
	if val := args.Get(0); val != nil {
		room = val.(models.RoomRef)
	}
	return room, args.Bool(1)
}

func (m *ChatViewMock) ReadOnly() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *ChatViewMock) Messages() []models.ChatMessage {
	args := m.Called()
	var msgs []models.ChatMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.ChatMessage)
	}
	return msgs
}

func (m *ChatViewMock) SendMessage(text string) error {
	args := m.Called(text)
	return args.Error(0)
}

// EventPublisherMock stands in for the client-event publisher.
type EventPublisherMock struct {
	mock.Mock
}

func (m *EventPublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	return m.Called(ctx, routingKey, event).Error(0)
}

func (m *EventPublisherMock) Close() error {
	return m.Called().Error(0)
}

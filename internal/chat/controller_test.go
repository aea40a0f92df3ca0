package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-client/internal/mocks"
	"chat-client/internal/models"
	"chat-client/internal/realtime"
	"chat-client/internal/telemetry"
)

type fakeCreds struct {
	token    string
	memberID int64
}

func (f fakeCreds) Credential() (string, bool) { return f.token, f.token != "" }
func (f fakeCreds) MemberID() int64            { return f.memberID }

var groupRoom = models.RoomRef{RoomID: 4, RoomType: "group"}

type harness struct {
	ctrl      *Controller
	history   *mocks.HistoryClientMock
	transport *mocks.FakeTransport
	manager   *realtime.Manager
}

func newHarness(t *testing.T, creds fakeCreds, events *telemetry.EventEmitter) *harness {
	t.Helper()
	history := new(mocks.HistoryClientMock)
	transport := &mocks.FakeTransport{}
	manager := realtime.NewManager(transport, "fake", zerolog.Nop())
	return &harness{
		ctrl:      NewController(history, creds, manager, events, zerolog.Nop()),
		history:   history,
		transport: transport,
		manager:   manager,
	}
}

func message(id int64, content string) models.ChatMessage {
	return models.ChatMessage{ID: id, RoomID: 4, SenderID: 2, Content: content, MessageType: models.MessageTypeText}
}

func deliver(t *testing.T, link *mocks.FakeLink, room models.RoomRef, msg models.ChatMessage) {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	require.True(t, link.Deliver(room.Topic(), body))
}

func TestActivateSeedsHistoryThenAppendsLiveMessages(t *testing.T) {
	h := newHarness(t, fakeCreds{token: "tok", memberID: 1}, nil)
	h.history.On("ChatMessages", mock.Anything, groupRoom).
		Return([]models.ChatMessage{message(1, "a"), message(2, "b")}, nil).Once()

	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))
	assert.False(t, h.ctrl.ReadOnly())

	link := h.transport.Last()
	deliver(t, link, groupRoom, message(3, "c"))
	deliver(t, link, groupRoom, message(3, "c"))

	assert.Eventually(t, func() bool { return len(h.ctrl.Messages()) == 4 }, time.Second, 5*time.Millisecond)
	var contents []string
	for _, m := range h.ctrl.Messages() {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"a", "b", "c", "c"}, contents)
	h.history.AssertExpectations(t)
}

func TestActivateWithoutCredentialIsReadOnly(t *testing.T) {
	h := newHarness(t, fakeCreds{}, nil)
	h.history.On("ChatMessages", mock.Anything, groupRoom).Return([]models.ChatMessage{message(1, "a")}, nil).Once()

	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))

	assert.True(t, h.ctrl.ReadOnly())
	assert.Len(t, h.ctrl.Messages(), 1)
	assert.Zero(t, h.transport.DialCount())
	assert.ErrorIs(t, h.ctrl.SendMessage("hi"), models.ErrValidation)
}

func TestActivateHistoryFailure(t *testing.T) {
	h := newHarness(t, fakeCreds{token: "tok"}, nil)
	h.history.On("ChatMessages", mock.Anything, groupRoom).Return(nil, assert.AnError).Once()

	err := h.ctrl.Activate(context.Background(), groupRoom)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, h.transport.DialCount())
}

func TestSendMessagePublishesWithoutOptimisticAppend(t *testing.T) {
	h := newHarness(t, fakeCreds{token: "tok"}, nil)
	h.history.On("ChatMessages", mock.Anything, groupRoom).Return([]models.ChatMessage{}, nil).Once()
	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))

	require.NoError(t, h.ctrl.SendMessage("hello"))

	sent := h.transport.Last().SentFrames()
	require.Len(t, sent, 1)
	assert.Equal(t, SendDestination, sent[0].Destination)
	assert.JSONEq(t, `{"roomId":4,"content":"hello","messageType":"TEXT","chatRoomType":"GROUP"}`, string(sent[0].Body))
	assert.Empty(t, h.ctrl.Messages())
}

func TestSendMessageRejectsWhitespace(t *testing.T) {
	h := newHarness(t, fakeCreds{token: "tok"}, nil)
	h.history.On("ChatMessages", mock.Anything, groupRoom).Return([]models.ChatMessage{}, nil).Once()
	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))

	assert.ErrorIs(t, h.ctrl.SendMessage("  \n\t"), models.ErrValidation)
	assert.Empty(t, h.transport.Last().SentFrames())
}

func TestSendMessageWhileDisconnected(t *testing.T) {
	h := newHarness(t, fakeCreds{token: "tok"}, nil)
	h.history.On("ChatMessages", mock.Anything, groupRoom).Return([]models.ChatMessage{}, nil).Once()
	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))
	h.transport.Last().Drop()

	assert.Eventually(t, func() bool { return h.manager.State() == realtime.Disconnected }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, h.ctrl.SendMessage("hi"), realtime.ErrChannelNotReady)
}

func TestLinkDropMakesRoomReadOnly(t *testing.T) {
	h := newHarness(t, fakeCreds{token: "tok"}, nil)
	h.history.On("ChatMessages", mock.Anything, groupRoom).Return([]models.ChatMessage{message(1, "a")}, nil).Once()
	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))
	require.False(t, h.ctrl.ReadOnly())

	h.transport.Last().Drop()

	assert.Eventually(t, h.ctrl.ReadOnly, time.Second, 5*time.Millisecond)
	assert.Equal(t, realtime.Disconnected, h.manager.State())
	room, ok := h.ctrl.Room()
	assert.True(t, ok)
	assert.Equal(t, groupRoom, room)
	assert.Len(t, h.ctrl.Messages(), 1)

	h.history.On("ChatMessages", mock.Anything, groupRoom).Return([]models.ChatMessage{message(1, "a")}, nil).Once()
	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))
	assert.False(t, h.ctrl.ReadOnly())
	assert.Equal(t, 2, h.transport.DialCount())
}

func TestLeaveRoomDeclinedKeepsSubscription(t *testing.T) {
	h := newHarness(t, fakeCreds{token: "tok"}, nil)
	h.history.On("ChatMessages", mock.Anything, groupRoom).Return([]models.ChatMessage{}, nil).Once()
	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))

	confirmer := new(mocks.ConfirmerMock)
	confirmer.On("Confirm", mock.Anything, mock.AnythingOfType("string")).Return(false).Once()

	left, err := h.ctrl.LeaveRoom(context.Background(), confirmer)
	require.NoError(t, err)
	assert.False(t, left)

	h.history.AssertNotCalled(t, "LeaveRoom", mock.Anything, mock.Anything)
	assert.Equal(t, realtime.Connected, h.manager.State())
	_, subscribed := h.transport.Last().SubscriptionFor(groupRoom.Topic())
	assert.True(t, subscribed)
	confirmer.AssertExpectations(t)
}

func TestLeaveRoomConfirmedLeavesAndDeactivates(t *testing.T) {
	h := newHarness(t, fakeCreds{token: "tok"}, nil)
	h.history.On("ChatMessages", mock.Anything, groupRoom).Return([]models.ChatMessage{}, nil).Once()
	h.history.On("LeaveRoom", mock.Anything, groupRoom).Return(nil).Once()
	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))

	left, err := h.ctrl.LeaveRoom(context.Background(), ConfirmFunc(func(context.Context, string) bool { return true }))
	require.NoError(t, err)
	assert.True(t, left)

	link := h.transport.Last()
	assert.Len(t, link.UnsubscribedIDs(), 1)
	assert.True(t, link.Closed())
	assert.Equal(t, realtime.Disconnected, h.manager.State())
	_, active := h.ctrl.Room()
	assert.False(t, active)
	h.history.AssertExpectations(t)
}

func TestLeaveRoomFailureKeepsRoom(t *testing.T) {
	h := newHarness(t, fakeCreds{token: "tok"}, nil)
	h.history.On("ChatMessages", mock.Anything, groupRoom).Return([]models.ChatMessage{}, nil).Once()
	h.history.On("LeaveRoom", mock.Anything, groupRoom).Return(assert.AnError).Once()
	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))

	left, err := h.ctrl.LeaveRoom(context.Background(), ConfirmFunc(func(context.Context, string) bool { return true }))
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, left)
	assert.Equal(t, realtime.Connected, h.manager.State())
}

func TestDeactivateFromAnyState(t *testing.T) {
	h := newHarness(t, fakeCreds{token: "tok"}, nil)
	h.ctrl.Deactivate()
	h.ctrl.Deactivate()
	assert.Equal(t, realtime.Disconnected, h.manager.State())
}

func TestDeactivateDropsActiveRoom(t *testing.T) {
	h := newHarness(t, fakeCreds{token: "tok"}, nil)
	h.history.On("ChatMessages", mock.Anything, groupRoom).Return([]models.ChatMessage{}, nil).Once()
	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))

	h.ctrl.Deactivate()

	_, active := h.ctrl.Room()
	assert.False(t, active)
	assert.True(t, h.ctrl.ReadOnly())
	assert.Len(t, h.transport.Last().UnsubscribedIDs(), 1)
	assert.Equal(t, realtime.Disconnected, h.manager.State())
	assert.ErrorIs(t, h.ctrl.SendMessage("hi"), models.ErrValidation)
}

func TestSwitchingRoomsDropsOldDeliveries(t *testing.T) {
	h := newHarness(t, fakeCreds{token: "tok"}, nil)
	direct := models.RoomRef{RoomID: 9, RoomType: "direct"}
	h.history.On("ChatMessages", mock.Anything, groupRoom).Return([]models.ChatMessage{message(1, "group")}, nil).Once()
	h.history.On("ChatMessages", mock.Anything, direct).Return([]models.ChatMessage{message(2, "direct")}, nil).Once()

	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))
	first := h.transport.Last()
	require.NoError(t, h.ctrl.Activate(context.Background(), direct))
	second := h.transport.Last()

	assert.True(t, first.Closed())
	assert.NotSame(t, first, second)
	deliver(t, second, direct, message(3, "live"))

	assert.Eventually(t, func() bool { return len(h.ctrl.Messages()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "direct", h.ctrl.Messages()[0].Content)
	room, _ := h.ctrl.Room()
	assert.Equal(t, direct, room)
}

func TestListenerReceivesSnapshots(t *testing.T) {
	h := newHarness(t, fakeCreds{token: "tok"}, nil)
	h.history.On("ChatMessages", mock.Anything, groupRoom).Return([]models.ChatMessage{message(1, "a")}, nil).Once()

	var mu sync.Mutex
	var sizes []int
	h.ctrl.SetListener(func(msgs []models.ChatMessage) {
		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, len(msgs))
	})

	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))
	deliver(t, h.transport.Last(), groupRoom, message(2, "b"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sizes) == 2
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []int{1, 2}, sizes)
	mu.Unlock()
}

func TestEventsEmitted(t *testing.T) {
	publisher := new(mocks.EventPublisherMock)
	publisher.On("Publish", mock.Anything, telemetry.RoutingChat, mock.MatchedBy(func(ev telemetry.ClientEvent) bool {
		return ev.EventType == "room_joined"
	})).Return(nil).Once()
	publisher.On("Publish", mock.Anything, telemetry.RoutingChat, mock.MatchedBy(func(ev telemetry.ClientEvent) bool {
		return ev.EventType == "message_sent" && ev.MemberID != nil && *ev.MemberID == 1
	})).Return(nil).Once()

	events := telemetry.NewEventEmitter(publisher, "chat-client", "test", zerolog.Nop())
	h := newHarness(t, fakeCreds{token: "tok", memberID: 1}, events)
	h.history.On("ChatMessages", mock.Anything, groupRoom).Return([]models.ChatMessage{}, nil).Once()

	require.NoError(t, h.ctrl.Activate(context.Background(), groupRoom))
	require.NoError(t, h.ctrl.SendMessage("hi"))

	publisher.AssertExpectations(t)
}

// Package chat drives one chat room: history, live messages, send and leave.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"chat-client/internal/models"
	"chat-client/internal/realtime"
	"chat-client/internal/telemetry"
)

// SendDestination is where outgoing chat messages are published.
const SendDestination = "/app/chats/sendMessage"

const leavePrompt = "Leave this chat room?"

type HistoryClient interface {
	ChatMessages(ctx context.Context, room models.RoomRef) ([]models.ChatMessage, error)
	LeaveRoom(ctx context.Context, room models.RoomRef) error
}

type CredentialSource interface {
	Credential() (string, bool)
	MemberID() int64
}

// Channel is the realtime surface the controller needs.
type Channel interface {
	Connect(ctx context.Context, credential string, onConnected func()) error
	Subscribe(destination string, handler realtime.Handler) (*realtime.Subscription, error)
	Unsubscribe(sub *realtime.Subscription)
	Publish(destination string, payload any) error
	Disconnect()
	OnDrop(fn func())
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Controller keeps the visible message list of the active room.
type Controller struct {
	history HistoryClient
	creds   CredentialSource
	channel Channel
	events  *telemetry.EventEmitter
	log     zerolog.Logger

	mu       sync.Mutex
	gen      uint64
	room     *models.RoomRef
	readOnly bool
	messages []models.ChatMessage
	sub      *realtime.Subscription
	listener func([]models.ChatMessage)
}

func NewController(history HistoryClient, creds CredentialSource, channel Channel, events *telemetry.EventEmitter, logger zerolog.Logger) *Controller {
	c := &Controller{
		history: history,
		creds:   creds,
		channel: channel,
		events:  events,
		log:     logger,
	}
	channel.OnDrop(c.linkDropped)
	return c
}

// linkDropped keeps the room and its messages but makes it read-only until reactivated.
func (c *Controller) linkDropped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil {
		return
	}
	c.sub = nil
	c.readOnly = true
	c.log.Warn().Str("room", c.room.String()).Msg("realtime link dropped, room is read-only")
}

// SetListener registers fn to receive a copy of the list after every change.
func (c *Controller) SetListener(fn func([]models.ChatMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = fn
}

// Activate opens room. Any previously active room is deactivated first.
// Without a credential the room stays read-only.
func (c *Controller) Activate(ctx context.Context, room models.RoomRef) error {
	c.Deactivate()

	c.mu.Lock()
	c.gen++
	gen := c.gen
	r := room
	c.room = &r
	c.messages = nil
	c.readOnly = true
	c.mu.Unlock()

	history, err := c.history.ChatMessages(ctx, room)
	if err != nil {
		return fmt.Errorf("load history for %s: %w", room, err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	c.messages = append(c.messages[:0], history...)
	notify := c.notifierLocked()
	c.mu.Unlock()
	notify()

	token, ok := c.creds.Credential()
	if !ok {
		c.log.Info().Str("room", room.String()).Msg("no credential, room is read-only")
		return nil
	}

	err = c.channel.Connect(ctx, token, func() {
		sub, err := c.channel.Subscribe(room.Topic(), c.deliver(gen))
		if err != nil {
			c.log.Warn().Err(err).Str("room", room.String()).Msg("subscribe failed")
			return
		}
		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			c.channel.Unsubscribe(sub)
			return
		}
		c.sub = sub
		c.readOnly = false
		c.mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", room, err)
	}

	c.events.Emit(ctx, telemetry.RoutingChat, "room_joined", c.creds.MemberID(), map[string]any{
		"room_id":   room.RoomID,
		"room_type": room.RoomType,
	})
	return nil
}

func (c *Controller) deliver(gen uint64) realtime.Handler {
	return func(f realtime.Frame) {
		var msg models.ChatMessage
		if err := json.Unmarshal(f.Body, &msg); err != nil {
			c.log.Warn().Err(err).Str("destination", f.Destination).Msg("drop undecodable message")
			return
		}

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		c.messages = append(c.messages, msg)
		notify := c.notifierLocked()
		c.mu.Unlock()
		notify()
	}
}

// SendMessage publishes text to the active room. Delivery shows up through the subscription.
func (c *Controller) SendMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty message: %w", models.ErrValidation)
	}
	if _, ok := c.creds.Credential(); !ok {
		return fmt.Errorf("not signed in: %w", models.ErrValidation)
	}

	c.mu.Lock()
	room := c.room
	c.mu.Unlock()
	if room == nil {
		return fmt.Errorf("no active room: %w", models.ErrValidation)
	}

	err := c.channel.Publish(SendDestination, models.SendMessageRequest{
		RoomID:       room.RoomID,
		Content:      text,
		MessageType:  models.MessageTypeText,
		ChatRoomType: room.WireType(),
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", room, err)
	}

	c.events.Emit(context.Background(), telemetry.RoutingChat, "message_sent", c.creds.MemberID(), map[string]any{
		"room_id": room.RoomID,
	})
	return nil
}

// LeaveRoom asks confirmer first. A declined prompt changes nothing.
func (c *Controller) LeaveRoom(ctx context.Context, confirmer Confirmer) (bool, error) {
	c.mu.Lock()
	room := c.room
	c.mu.Unlock()
	if room == nil {
		return false, fmt.Errorf("no active room: %w", models.ErrValidation)
	}

	if !confirmer.Confirm(ctx, leavePrompt) {
		return false, nil
	}

	if err := c.history.LeaveRoom(ctx, *room); err != nil {
		return false, fmt.Errorf("leave %s: %w", room, err)
	}
	c.events.Emit(ctx, telemetry.RoutingChat, "room_left", c.creds.MemberID(), map[string]any{
		"room_id":   room.RoomID,
		"room_type": room.RoomType,
	})
	c.Deactivate()
	return true, nil
}

// Deactivate unsubscribes and disconnects. It is safe in any state.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	c.gen++
	sub := c.sub
	c.sub = nil
	c.room = nil
	c.readOnly = true
	c.mu.Unlock()

	c.channel.Unsubscribe(sub)
	c.channel.Disconnect()
}

// Messages returns a copy of the visible list.
func (c *Controller) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatMessage(nil), c.messages...)
}

func (c *Controller) Room() (models.RoomRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil {
		return models.RoomRef{}, false
	}
	return *c.room, true
}

// ReadOnly is true until the room subscription is live.
func (c *Controller) ReadOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readOnly
}

// notifierLocked captures the listener and a copy of the list; call the result unlocked.
func (c *Controller) notifierLocked() func() {
	fn := c.listener
	if fn == nil {
		return func() {}
	}
	snapshot := append([]models.ChatMessage(nil), c.messages...)
	return func() { fn(snapshot) }
}

package models

import (
	"fmt"
	"strings"
	"time"
)

// MessageTypeText is the only message type the client sends.
const MessageTypeText = "TEXT"

// ChatMessage represents a chat message delivered by history or the realtime topic.
type ChatMessage struct {
	ID          int64     `json:"id"`
	RoomID      int64     `json:"roomId"`
	SenderID    int64     `json:"senderId"`
	Content     string    `json:"content"`
	MessageType string    `json:"messageType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ChatHistory is the payload returned by the room history endpoint.
type ChatHistory struct {
	Messages []ChatMessage `json:"messages"`
}

// RoomRef identifies a chat room and its topic namespace.
type RoomRef struct {
	RoomID   int64
	RoomType string
}

// Topic returns the subscribe destination for the room.
func (r RoomRef) Topic() string {
	return fmt.Sprintf("/topic/%s/rooms/%d", r.RoomType, r.RoomID)
}

// WireType is the room type as the backend expects it in payloads and query strings.
func (r RoomRef) WireType() string {
	return strings.ToUpper(r.RoomType)
}

func (r RoomRef) String() string {
	return fmt.Sprintf("%s/%d", r.RoomType, r.RoomID)
}

// SendMessageRequest is published to the send destination.
type SendMessageRequest struct {
	RoomID       int64  `json:"roomId"`
	Content      string `json:"content"`
	MessageType  string `json:"messageType"`
	ChatRoomType string `json:"chatRoomType"`
}

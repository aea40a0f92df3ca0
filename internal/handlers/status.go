package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chat-client/internal/models"
	"chat-client/internal/realtime"
)

type SessionView interface {
	HasHydrated() bool
	Credential() (string, bool)
	MemberID() int64
	Role() string
}

type ChatView interface {
	Room() (models.RoomRef, bool)
	ReadOnly() bool
	Messages() []models.ChatMessage
	SendMessage(text string) error
}

type ChannelView interface {
	State() realtime.State
}

// StatusHandler exposes the running client's state on the local debug server.
type StatusHandler struct {
	session SessionView
	chat    ChatView
	channel ChannelView
}

func NewStatusHandler(session SessionView, chat ChatView, channel ChannelView) *StatusHandler {
	return &StatusHandler{session: session, chat: chat, channel: channel}
}

func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "realtime": h.channel.State().String()})
}

func (h *StatusHandler) Session(c *gin.Context) {
	_, signedIn := h.session.Credential()
	c.JSON(http.StatusOK, gin.H{
		"hydrated":  h.session.HasHydrated(),
		"signed_in": signedIn,
		"member_id": h.session.MemberID(),
		"role":      h.session.Role(),
	})
}

// Chat returns the active room and its last messages. ?limit bounds the list.
func (h *StatusHandler) Chat(c *gin.Context) {
	room, active := h.chat.Room()
	if !active {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active room"})
		return
	}

	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil || query.Limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	msgs := h.chat.Messages()
	total := len(msgs)
	if query.Limit > 0 && total > query.Limit {
		msgs = msgs[total-query.Limit:]
	}

	type messageResponse struct {
		ID        int64     `json:"id"`
		SenderID  int64     `json:"sender_id"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{ID: m.ID, SenderID: m.SenderID, Content: m.Content, CreatedAt: m.CreatedAt})
	}

	c.JSON(http.StatusOK, gin.H{
		"room_id":   room.RoomID,
		"room_type": room.RoomType,
		"read_only": h.chat.ReadOnly(),
		"realtime":  h.channel.State().String(),
		"total":     total,
		"messages":  out,
	})
}

// SendMessage publishes a message to the active room.
func (h *StatusHandler) SendMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	err := h.chat.SendMessage(req.Content)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": "sent", "request_id": requestIDFromContext(c)})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, realtime.ErrChannelNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime channel not connected"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to send message"})
	}
}

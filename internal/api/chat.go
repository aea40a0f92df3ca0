package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"chat-client/internal/models"
)

func roomQuery(room models.RoomRef) string {
	return "?" + url.Values{"chatRoomType": {room.WireType()}}.Encode()
}

// ChatMessages loads the message history of a room, oldest first.
func (g *Gateway) ChatMessages(ctx context.Context, room models.RoomRef) ([]models.ChatMessage, error) {
	path := fmt.Sprintf("/api/v1/chats/rooms/%d/messages%s", room.RoomID, roomQuery(room))
	history, err := Call[models.ChatHistory](ctx, g, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return history.Messages, nil
}

func (g *Gateway) LeaveRoom(ctx context.Context, room models.RoomRef) error {
	path := fmt.Sprintf("/api/v1/chats/rooms/%d/members/me%s", room.RoomID, roomQuery(room))
	return g.Do(ctx, http.MethodDelete, path, nil, nil)
}

func (g *Gateway) PublicGroupRooms(ctx context.Context) ([]models.GroupRoom, error) {
	return Call[[]models.GroupRoom](ctx, g, http.MethodGet, "/api/v1/chats/rooms/group/public", nil)
}

func (g *Gateway) JoinGroupRoom(ctx context.Context, roomID int64, password string) error {
	path := fmt.Sprintf("/api/v1/chats/rooms/group/%d/join", roomID)
	return g.Do(ctx, http.MethodPost, path, models.JoinGroupRequest{Password: password}, nil)
}

// CloseGroupRoom is an administrator action.
func (g *Gateway) CloseGroupRoom(ctx context.Context, roomID int64) error {
	return g.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/admin/chats/rooms/%d", roomID), nil, nil)
}

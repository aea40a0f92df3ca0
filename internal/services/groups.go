package services

import (
	"context"
	"fmt"

	"chat-client/internal/cache"
	"chat-client/internal/models"
	"chat-client/internal/session"
)

type GroupAPI interface {
	PublicGroupRooms(ctx context.Context) ([]models.GroupRoom, error)
	JoinGroupRoom(ctx context.Context, roomID int64, password string) error
	CloseGroupRoom(ctx context.Context, roomID int64) error
}

type GroupService struct {
	api     GroupAPI
	session *session.Store
	cache   *cache.Cache
}

func NewGroupService(api GroupAPI, store *session.Store, c *cache.Cache) *GroupService {
	return &GroupService{api: api, session: store, cache: c}
}

func (s *GroupService) PublicRooms(ctx context.Context) ([]models.GroupRoom, error) {
	return cache.FetchAs(ctx, s.cache, groupRoomsKey(), listStaleTime, s.api.PublicGroupRooms)
}

// Join enters a public room. Password-protected rooms need a password.
func (s *GroupService) Join(ctx context.Context, room models.GroupRoom, password string) error {
	if room.HasPassword && password == "" {
		return fmt.Errorf("room %d requires a password: %w", room.ID, models.ErrValidation)
	}
	if !room.HasPassword {
		password = ""
	}
	if err := s.api.JoinGroupRoom(ctx, room.ID, password); err != nil {
		return fmt.Errorf("join room %d: %w", room.ID, err)
	}
	s.cache.Invalidate(KindGroupRooms)
	return nil
}

// Close shuts a room down. Administrators only.
func (s *GroupService) Close(ctx context.Context, roomID int64) error {
	if s.session.Role() != models.RoleAdmin {
		return fmt.Errorf("close room %d: %w", roomID, models.ErrForbidden)
	}
	if err := s.api.CloseGroupRoom(ctx, roomID); err != nil {
		return fmt.Errorf("close room %d: %w", roomID, err)
	}
	s.cache.Invalidate(KindGroupRooms)
	return nil
}

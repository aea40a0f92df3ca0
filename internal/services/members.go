package services

import (
	"context"

	"chat-client/internal/cache"
	"chat-client/internal/models"
	"chat-client/internal/session"
)

type MembersAPI interface {
	ListMembers(ctx context.Context) ([]models.MemberSummary, error)
}

type MemberService struct {
	api     MembersAPI
	session *session.Store
	cache   *cache.Cache
}

func NewMemberService(api MembersAPI, store *session.Store, c *cache.Cache) *MemberService {
	return &MemberService{api: api, session: store, cache: c}
}

// Members lists members. Without a credential nothing is requested.
func (s *MemberService) Members(ctx context.Context) ([]models.MemberSummary, error) {
	if _, ok := s.session.Credential(); !ok {
		return nil, nil
	}
	return cache.FetchAs(ctx, s.cache, membersKey(), profileStaleTime, s.api.ListMembers)
}

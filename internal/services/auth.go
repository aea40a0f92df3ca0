// Package services composes the gateway, session and query cache into client use cases.
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"chat-client/internal/cache"
	"chat-client/internal/models"
	"chat-client/internal/session"
	"chat-client/internal/telemetry"
)

type AuthAPI interface {
	Me(ctx context.Context) (*models.MyProfile, error)
	Login(ctx context.Context, req models.LoginRequest) (string, error)
	Signup(ctx context.Context, req models.JoinRequest) error
	Logout(ctx context.Context) error
}

// AuthService owns sign-in state.
type AuthService struct {
	api     AuthAPI
	session *session.Store
	cache   *cache.Cache
	events  *telemetry.EventEmitter
	log     zerolog.Logger

	mu       sync.Mutex
	onLogout []func()
}

// NewAuthService wires the cache to be cleared whenever the session is cleared.
func NewAuthService(api AuthAPI, store *session.Store, c *cache.Cache, events *telemetry.EventEmitter, logger zerolog.Logger) *AuthService {
	store.OnClear(c.Clear)
	return &AuthService{api: api, session: store, cache: c, events: events, log: logger}
}

// OnLogout registers fn to run after a successful logout, once the cache is cleared.
func (s *AuthService) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Bootstrap hydrates the session and loads the current member when signed in.
func (s *AuthService) Bootstrap(ctx context.Context) (*models.MyProfile, error) {
	if !s.session.HasHydrated() {
		s.session.Init(ctx)
	}
	if _, ok := s.session.Credential(); !ok {
		return nil, nil
	}

	me, err := s.Me(ctx)
	if err != nil {
		return nil, err
	}
	if me != nil {
		if err := s.session.SetMember(ctx, me.MemberID); err != nil {
			s.log.Warn().Err(err).Msg("persist member id failed")
		}
	}
	return me, nil
}

// Me returns the cached profile, or nil when the backend does not recognise the session.
func (s *AuthService) Me(ctx context.Context) (*models.MyProfile, error) {
	if !s.session.HasHydrated() {
		return nil, nil
	}
	return cache.FetchAs(ctx, s.cache, meKey(), profileStaleTime, s.api.Me)
}

// Login stores the returned credential and refreshes the profile.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.MyProfile, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password required: %w", models.ErrValidation)
	}

	token, err := s.api.Login(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := s.session.SetCredential(ctx, token); err != nil {
		return nil, err
	}

	s.cache.Invalidate(KindMe)
	me, err := s.Me(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("fetch profile after login failed")
		return nil, nil
	}
	if me != nil {
		if err := s.session.SetMember(ctx, me.MemberID); err != nil {
			s.log.Warn().Err(err).Msg("persist member id failed")
		}
	}

	s.events.Emit(ctx, telemetry.RoutingAuth, "signed_in", s.session.MemberID(), nil)
	return me, nil
}

func (s *AuthService) Signup(ctx context.Context, req models.JoinRequest) error {
	if req.Email == "" || req.Password == "" || req.Nickname == "" {
		return fmt.Errorf("email, password and nickname required: %w", models.ErrValidation)
	}
	if err := s.api.Signup(ctx, req); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	return nil
}

// Logout ends the session server-side. Only on success is local state dropped.
func (s *AuthService) Logout(ctx context.Context) error {
	memberID := s.session.MemberID()
	if err := s.api.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	if err := s.session.ClearCredential(ctx); err != nil {
		s.log.Warn().Err(err).Msg("delete stored session failed")
	}

	s.mu.Lock()
	hooks := append([]func(){}, s.onLogout...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	s.events.Emit(ctx, telemetry.RoutingAuth, "signed_out", memberID, nil)
	return nil
}

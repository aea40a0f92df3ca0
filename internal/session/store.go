package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"chat-client/internal/models"
	"chat-client/internal/repositories"
)

// Store holds the authenticated identity of the running client.
// It is safe for concurrent use.
type Store struct {
	repo repositories.SessionRepository
	log  zerolog.Logger
	now  func() time.Time

	mu         sync.RWMutex
	hydrated   bool
	credential string
	memberID   int64
	role       string
	expiresAt  time.Time
	onClear    []func()
}

// NewStore constructs a Store. A nil repo keeps the session in memory only.
func NewStore(repo repositories.SessionRepository, logger zerolog.Logger) *Store {
	return &Store{repo: repo, log: logger, now: time.Now}
}

type claims struct {
	memberID  int64
	role      string
	expiresAt time.Time
}

// parseClaims reads identity claims without verifying the signature.
// Tokens that are not JWTs yield empty claims.
func parseClaims(token string) claims {
	var c claims
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return c
	}

	if sub, err := mc.GetSubject(); err == nil && sub != "" {
		if id, err := strconv.ParseInt(sub, 10, 64); err == nil {
			c.memberID = id
		}
	}
	if c.memberID == 0 {
		switch v := mc["memberId"].(type) {
		case float64:
			c.memberID = int64(v)
		case string:
			c.memberID, _ = strconv.ParseInt(v, 10, 64)
		}
	}
	if role, ok := mc["role"].(string); ok {
		c.role = role
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.expiresAt = exp.Time
	}
	return c
}

// Init hydrates the store from persistence. The store is hydrated afterwards
// even when loading fails; the session is then anonymous.
func (s *Store) Init(ctx context.Context) {
	var stored models.StoredSession
	var err error
	if s.repo != nil {
		stored, err = s.repo.Load(ctx)
	} else {
		err = repositories.ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrated = true

	if err != nil {
		if !errors.Is(err, repositories.ErrSessionNotFound) {
			s.log.Warn().Err(err).Msg("load session failed, continuing anonymous")
		}
		return
	}

	c := parseClaims(stored.Credential)
	s.credential = stored.Credential
	s.memberID = stored.MemberID
	if s.memberID == 0 {
		s.memberID = c.memberID
	}
	s.role = stored.Role
	if s.role == "" {
		s.role = c.role
	}
	s.expiresAt = c.expiresAt
	s.log.Debug().Int64("member_id", s.memberID).Msg("session hydrated")
}

// SetCredential replaces the credential and persists it.
func (s *Store) SetCredential(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("empty credential: %w", models.ErrValidation)
	}
	c := parseClaims(token)

	s.mu.Lock()
	s.hydrated = true
	s.credential = token
	s.memberID = c.memberID
	s.role = c.role
	s.expiresAt = c.expiresAt
	stored := s.snapshotLocked()
	s.mu.Unlock()

	return s.persist(ctx, stored)
}

// SetMember records the member id once the profile is known.
func (s *Store) SetMember(ctx context.Context, memberID int64) error {
	s.mu.Lock()
	if s.credential == "" {
		s.mu.Unlock()
		return nil
	}
	s.memberID = memberID
	stored := s.snapshotLocked()
	s.mu.Unlock()

	return s.persist(ctx, stored)
}

// ClearCredential drops the session and runs every OnClear hook.
func (s *Store) ClearCredential(ctx context.Context) error {
	s.mu.Lock()
	s.credential = ""
	s.memberID = 0
	s.role = ""
	s.expiresAt = time.Time{}
	hooks := append([]func(){}, s.onClear...)
	s.mu.Unlock()

	var err error
	if s.repo != nil {
		err = s.repo.Delete(ctx)
	}
	for _, fn := range hooks {
		fn()
	}
	return err
}

// OnClear registers fn to run after every ClearCredential.
func (s *Store) OnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, fn)
}

// Credential returns the bearer token. ok is false before hydration,
// when no credential is held, or when the credential has expired.
func (s *Store) Credential() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return "", false
	}
	return s.credential, true
}

func (s *Store) HasHydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

func (s *Store) MemberID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return 0
	}
	return s.memberID
}

func (s *Store) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return ""
	}
	return s.role
}

func (s *Store) validLocked() bool {
	if !s.hydrated || s.credential == "" {
		return false
	}
	return s.expiresAt.IsZero() || s.now().Before(s.expiresAt)
}

func (s *Store) snapshotLocked() models.StoredSession {
	return models.StoredSession{
		MemberID:   s.memberID,
		Credential: s.credential,
		Role:       s.role,
		UpdatedAt:  s.now().UnixMilli(),
	}
}

func (s *Store) persist(ctx context.Context, stored models.StoredSession) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Save(ctx, stored); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

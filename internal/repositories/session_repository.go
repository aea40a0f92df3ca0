package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-client/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists the single local session across restarts.
type SessionRepository interface {
	Load(ctx context.Context) (models.StoredSession, error)
	Save(ctx context.Context, s models.StoredSession) error
	Delete(ctx context.Context) error
}

// sessionRowID pins the table to one row.
const sessionRowID = 1

// SessionRepo is a sqlx implementation of SessionRepository.
type SessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo constructs a SessionRepo.
func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Load returns the stored session or ErrSessionNotFound.
func (r *SessionRepo) Load(ctx context.Context) (models.StoredSession, error) {
	var s models.StoredSession
	query := r.db.Rebind(`SELECT member_id, credential, role, updated_at FROM client_session WHERE id = ?`)
	err := r.db.GetContext(ctx, &s, query, sessionRowID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StoredSession{}, ErrSessionNotFound
	}
	return s, err
}

// Save upserts the session row.
func (r *SessionRepo) Save(ctx context.Context, s models.StoredSession) error {
	query := r.db.Rebind(`INSERT INTO client_session (id, member_id, credential, role, updated_at) VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET member_id = excluded.member_id, credential = excluded.credential,
        role = excluded.role, updated_at = excluded.updated_at`)
	_, err := r.db.ExecContext(ctx, query, sessionRowID, s.MemberID, s.Credential, s.Role, s.UpdatedAt)
	return err
}

// Delete removes the session row. Deleting a missing row is not an error.
func (r *SessionRepo) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM client_session WHERE id = ?`), sessionRowID)
	return err
}

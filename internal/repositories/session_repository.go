package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"lifi-chat-service/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `id, user1, user2, last_message_content, last_message_at, created_at`

// SessionRepository abstracts chat session persistence.
type SessionRepository interface {
	FindByPair(ctx context.Context, user1, user2 string) (models.ChatSession, error)
	CreateOrGet(ctx context.Context, user1, user2 string) (models.ChatSession, error)
	Get(ctx context.Context, sessionID string) (models.ChatSession, error)
	ListForUser(ctx context.Context, userID string) ([]models.ChatSession, error)
	IsParticipant(ctx context.Context, sessionID, userID string) (bool, error)
	UpdateSummary(ctx context.Context, sessionID, content string) (models.ChatSession, error)
}

// SessionRepo is a sqlx implementation of SessionRepository.
type SessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo constructs a SessionRepo.
func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// FindByPair resolves the session for a canonical (user1 < user2) pair.
func (r *SessionRepo) FindByPair(ctx context.Context, user1, user2 string) (models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.GetContext(ctx, &session,
		`SELECT `+sessionColumns+` FROM chat_sessions WHERE user1=$1 AND user2=$2`, user1, user2)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatSession{}, ErrSessionNotFound
	}
	return session, err
}

// CreateOrGet creates the session for a canonical pair if it does not already
// exist. The UNIQUE(user1, user2) constraint makes concurrent creation for
// the same pair converge on one record.
func (r *SessionRepo) CreateOrGet(ctx context.Context, user1, user2 string) (models.ChatSession, error) {
	session, err := r.FindByPair(ctx, user1, user2)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return models.ChatSession{}, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO chat_sessions (id, user1, user2) VALUES ($1, $2, $3)
         ON CONFLICT (user1, user2) DO NOTHING
         RETURNING `+sessionColumns, uuid.NewString(), user1, user2).StructScan(&session)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the race; the winner's row is the session.
		return r.FindByPair(ctx, user1, user2)
	}
	return session, err
}

// Get fetches a session by id.
func (r *SessionRepo) Get(ctx context.Context, sessionID string) (models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.GetContext(ctx, &session,
		`SELECT `+sessionColumns+` FROM chat_sessions WHERE id=$1`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatSession{}, ErrSessionNotFound
	}
	return session, err
}

// ListForUser returns the sessions containing the user, most recent message
// first.
func (r *SessionRepo) ListForUser(ctx context.Context, userID string) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := r.db.SelectContext(ctx, &sessions,
		`SELECT `+sessionColumns+` FROM chat_sessions
         WHERE user1=$1 OR user2=$1
         ORDER BY last_message_at DESC`, userID)
	return sessions, err
}

// IsParticipant checks whether a user belongs to the session.
func (r *SessionRepo) IsParticipant(ctx context.Context, sessionID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chat_sessions WHERE id=$1 AND (user1=$2 OR user2=$2))`, sessionID, userID)
	return exists, err
}

// UpdateSummary refreshes the denormalized last-message fields. The timestamp
// is taken from the database clock.
func (r *SessionRepo) UpdateSummary(ctx context.Context, sessionID, content string) (models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.QueryRowxContext(ctx,
		`UPDATE chat_sessions SET last_message_content=$2, last_message_at=NOW()
         WHERE id=$1
         RETURNING `+sessionColumns, sessionID, content).StructScan(&session)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatSession{}, ErrSessionNotFound
	}
	return session, err
}

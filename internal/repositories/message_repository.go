package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"lifi-chat-service/internal/models"
)

const messageColumns = `id, session_id, from_user_id, content, "timestamp"`

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	Append(ctx context.Context, sessionID, fromUserID, content string) (models.Message, error)
	ListRecent(ctx context.Context, sessionID string, limit int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append stores a message. The timestamp is assigned by the database clock so
// ordering within a session is server-authoritative.
func (r *MessageRepo) Append(ctx context.Context, sessionID, fromUserID, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, session_id, from_user_id, content) VALUES ($1, $2, $3, $4)
         RETURNING `+messageColumns, uuid.NewString(), sessionID, fromUserID, content).StructScan(&msg)
	return msg, err
}

// ListRecent returns the most recent messages of a session in ascending
// timestamp order, capped at limit. History beyond the cap is not served.
func (r *MessageRepo) ListRecent(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM (
            SELECT `+messageColumns+` FROM messages
            WHERE session_id=$1
            ORDER BY "timestamp" DESC, id DESC
            LIMIT $2
         ) recent
         ORDER BY "timestamp" ASC, id ASC`, sessionID, limit)
	return msgs, err
}

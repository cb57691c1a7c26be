package chat

import (
	"context"

	"lifi-chat-service/internal/models"
)

// MessageWindow caps message subscriptions to the most recent N messages.
// Older history beyond the window is silently dropped; there is no pagination.
const MessageWindow = 100

// SessionSnapshot is one delivery of a sessions-by-participant subscription.
type SessionSnapshot struct {
	Sessions []models.ChatSession
	Err      error
}

// MessageSnapshot is one delivery of a message subscription. SessionID tags
// the owning session so consumers can discard deliveries from a subscription
// that has since been replaced.
type MessageSnapshot struct {
	SessionID string
	Messages  []models.Message
	Err       error
}

// ProfileSnapshot is one delivery of a per-user profile subscription.
type ProfileSnapshot struct {
	UserID  string
	Profile models.UserProfile
	Found   bool
	Err     error
}

// SessionStream is a cancelable continuous subscription to the sessions a user
// participates in, ordered by last message timestamp descending. The snapshot
// channel is closed once Close is called or the stream terminates.
type SessionStream interface {
	Snapshots() <-chan SessionSnapshot
	Close()
}

// MessageStream is a cancelable continuous subscription to a session's
// messages in timestamp order, capped to the most recent messages.
type MessageStream interface {
	Snapshots() <-chan MessageSnapshot
	Close()
}

// ProfileStream is a cancelable continuous subscription to a user's profile.
type ProfileStream interface {
	Snapshots() <-chan ProfileSnapshot
	Close()
}

// Source is the document-store capability the chat core consumes. Watch
// methods open scoped subscriptions; the remaining methods are one-shot
// round trips. Implementations must assign message timestamps server-side.
type Source interface {
	WatchSessionsForUser(userID string) SessionStream
	WatchMessages(sessionID string, limit int) MessageStream
	WatchProfile(userID string) ProfileStream

	FindSessionByPair(ctx context.Context, user1, user2 string) (models.ChatSession, error)
	CreateOrGetSession(ctx context.Context, user1, user2 string) (models.ChatSession, error)
	AppendMessage(ctx context.Context, sessionID, fromUserID, content string) (models.Message, error)
	UpdateSessionSummary(ctx context.Context, sessionID, lastMessage string) error
}

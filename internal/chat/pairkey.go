package chat

import (
	"context"

	"lifi-chat-service/internal/models"
)

// CanonicalPair orders two participant ids lexicographically so a two-party
// session can be addressed deterministically regardless of argument order.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// SessionCreator is the subset of the store capability needed to guarantee a
// session exists for a pair.
type SessionCreator interface {
	CreateOrGetSession(ctx context.Context, user1, user2 string) (models.ChatSession, error)
}

// EnsureSession resolves or creates the session for the unordered pair
// (currentUserID, otherUserID). Creation is idempotent: concurrent callers
// for the same pair converge on a single session record.
func EnsureSession(ctx context.Context, store SessionCreator, currentUserID, otherUserID string) (models.ChatSession, error) {
	if currentUserID == "" || otherUserID == "" || currentUserID == otherUserID {
		return models.ChatSession{}, ErrInvalidParticipants
	}
	user1, user2 := CanonicalPair(currentUserID, otherUserID)
	return store.CreateOrGetSession(ctx, user1, user2)
}

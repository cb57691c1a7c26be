package models

import "time"

// ChatSession represents a private conversation between exactly two users.
// User1 and User2 are stored in canonical order (lexicographically smaller
// first) so a pair can be resolved with an exact-match lookup.
type ChatSession struct {
	ID                 string    `db:"id" json:"id"`
	User1              string    `db:"user1" json:"user1"`
	User2              string    `db:"user2" json:"user2"`
	LastMessageContent string    `db:"last_message_content" json:"last_message_content,omitempty"`
	LastMessageAt      time.Time `db:"last_message_at" json:"last_message_at"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Participants returns both participant ids in canonical order.
func (s ChatSession) Participants() [2]string {
	return [2]string{s.User1, s.User2}
}

// Other returns the participant that is not userID. The second return value is
// false when the session does not contain userID or its participant data is
// malformed (empty or duplicate ids).
func (s ChatSession) Other(userID string) (string, bool) {
	if s.User1 == "" || s.User2 == "" || s.User1 == s.User2 {
		return "", false
	}
	switch userID {
	case s.User1:
		return s.User2, true
	case s.User2:
		return s.User1, true
	}
	return "", false
}

// SessionSummary is the view-facing projection of a session joined with the
// other participant's profile. Recipient fields start as placeholders and are
// filled in as profile data arrives.
type SessionSummary struct {
	SessionID          string    `json:"session_id"`
	OtherUserID        string    `json:"other_user_id"`
	OtherName          string    `json:"other_name"`
	OtherSurname       string    `json:"other_surname"`
	OtherProfileImage  string    `json:"other_profile_image,omitempty"`
	LastMessageContent string    `json:"last_message_content,omitempty"`
	LastMessageAt      time.Time `json:"last_message_at"`
}

// Same reports list-diff identity: two summaries describe the same state when
// session id and last message timestamp both match, even if other fields
// differ transiently.
func (s SessionSummary) Same(o SessionSummary) bool {
	return s.SessionID == o.SessionID && s.LastMessageAt.Equal(o.LastMessageAt)
}

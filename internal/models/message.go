package models

import "time"

// Message represents a chat message. Timestamp is assigned by the store's
// server-side clock at write time, never by the client.
type Message struct {
	ID         string    `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	FromUserID string    `db:"from_user_id" json:"from_user_id"`
	Content    string    `db:"content" json:"content"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
}

// ChatEvent is broadcasted through websockets for a single conversation.
type ChatEvent struct {
	Type      string       `json:"type"`
	SessionID string       `json:"session_id,omitempty"`
	Exists    bool         `json:"exists"`
	Messages  []Message    `json:"messages,omitempty"`
	Recipient *UserProfile `json:"recipient,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// DirectoryEvent is broadcasted through websockets for the session list.
type DirectoryEvent struct {
	Type     string           `json:"type"`
	Sessions []SessionSummary `json:"sessions"`
	Error    string           `json:"error,omitempty"`
}

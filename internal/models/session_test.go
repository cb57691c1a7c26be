package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatSessionOther(t *testing.T) {
	session := ChatSession{ID: "s1", User1: "alice", User2: "bob"}

	other, ok := session.Other("alice")
	assert.True(t, ok)
	assert.Equal(t, "bob", other)

	other, ok = session.Other("bob")
	assert.True(t, ok)
	assert.Equal(t, "alice", other)

	_, ok = session.Other("carol")
	assert.False(t, ok)
}

func TestChatSessionOtherMalformed(t *testing.T) {
	_, ok := ChatSession{User1: "alice", User2: ""}.Other("alice")
	assert.False(t, ok)

	_, ok = ChatSession{User1: "alice", User2: "alice"}.Other("alice")
	assert.False(t, ok)
}

func TestSessionSummarySame(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	a := SessionSummary{SessionID: "s1", OtherName: "Loading...", LastMessageAt: ts}
	b := SessionSummary{SessionID: "s1", OtherName: "Bob", LastMessageAt: ts}
	assert.True(t, a.Same(b))

	// Equal instants in different locations still match.
	c := SessionSummary{SessionID: "s1", LastMessageAt: ts.UTC()}
	assert.True(t, a.Same(c))

	assert.False(t, a.Same(SessionSummary{SessionID: "s2", LastMessageAt: ts}))
	assert.False(t, a.Same(SessionSummary{SessionID: "s1", LastMessageAt: ts.Add(time.Second)}))
}

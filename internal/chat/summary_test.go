package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lifi-chat-service/internal/models"
)

func TestBuildSummariesPlaceholderUntilProfileKnown(t *testing.T) {
	sessions := []models.ChatSession{
		{ID: "s1", User1: "alice", User2: "bob", LastMessageContent: "hi"},
	}

	summaries := buildSummaries(sessions, "alice", map[string]models.UserProfile{})
	assert.Len(t, summaries, 1)
	assert.Equal(t, "bob", summaries[0].OtherUserID)
	assert.Equal(t, placeholderName, summaries[0].OtherName)
	assert.Equal(t, "hi", summaries[0].LastMessageContent)
}

func TestBuildSummariesUsesCachedProfile(t *testing.T) {
	sessions := []models.ChatSession{
		{ID: "s1", User1: "alice", User2: "bob"},
	}
	profiles := map[string]models.UserProfile{
		"bob": {UserID: "bob", Name: "Bob", Surname: "Builder", ProfileImage: "img"},
	}

	summaries := buildSummaries(sessions, "alice", profiles)
	assert.Len(t, summaries, 1)
	assert.Equal(t, "Bob", summaries[0].OtherName)
	assert.Equal(t, "Builder", summaries[0].OtherSurname)
	assert.Equal(t, "img", summaries[0].OtherProfileImage)
}

func TestBuildSummariesSkipsMalformedSessions(t *testing.T) {
	sessions := []models.ChatSession{
		{ID: "s1", User1: "alice", User2: "bob"},
		{ID: "broken", User1: "alice", User2: ""},
		{ID: "dupe", User1: "alice", User2: "alice"},
		{ID: "foreign", User1: "carol", User2: "dave"},
	}

	summaries := buildSummaries(sessions, "alice", nil)
	assert.Len(t, summaries, 1)
	assert.Equal(t, "s1", summaries[0].SessionID)
}

func TestResolveProfileFallbacks(t *testing.T) {
	got := resolveProfile(ProfileSnapshot{UserID: "bob", Err: assert.AnError})
	assert.Equal(t, unknownName, got.Name)
	assert.Empty(t, got.Surname)

	got = resolveProfile(ProfileSnapshot{UserID: "bob", Found: false})
	assert.Equal(t, unknownName, got.Name)
	assert.Equal(t, unknownSurname, got.Surname)

	got = resolveProfile(ProfileSnapshot{
		UserID:  "bob",
		Found:   true,
		Profile: models.UserProfile{UserID: "bob", Name: "Bob"},
	})
	assert.Equal(t, "Bob", got.Name)
}

func TestSameSummaryListComparesIDAndTimestampOnly(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	a := []models.SessionSummary{{SessionID: "s1", OtherName: "Loading...", LastMessageAt: ts}}
	b := []models.SessionSummary{{SessionID: "s1", OtherName: "Bob", LastMessageAt: ts}}
	assert.True(t, sameSummaryList(a, b))

	c := []models.SessionSummary{{SessionID: "s1", LastMessageAt: ts.Add(time.Second)}}
	assert.False(t, sameSummaryList(a, c))

	d := []models.SessionSummary{{SessionID: "s2", LastMessageAt: ts}}
	assert.False(t, sameSummaryList(a, d))

	assert.False(t, sameSummaryList(a, nil))
}

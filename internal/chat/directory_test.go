package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifi-chat-service/internal/chat"
	"lifi-chat-service/internal/mocks"
	"lifi-chat-service/internal/models"
)

// waitDirectory drains updates until one satisfies cond. Intermediate updates
// may be coalesced away, so tests assert on reachable states, not on counts.
func waitDirectory(t *testing.T, ch <-chan chat.DirectoryUpdate, cond func(chat.DirectoryUpdate) bool) chat.DirectoryUpdate {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			require.True(t, ok, "updates channel closed while waiting")
			if cond(u) {
				return u
			}
		case <-deadline:
			t.Fatal("timed out waiting for directory update")
		}
	}
}

func expectNoDirectoryUpdate(t *testing.T, ch <-chan chat.DirectoryUpdate) {
	t.Helper()
	select {
	case u := <-ch:
		t.Fatalf("unexpected directory update: %+v", u)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDirectoryStartRequiresUser(t *testing.T) {
	directory := chat.NewSessionDirectory(mocks.NewFakeSource())
	defer directory.Stop()

	assert.ErrorIs(t, directory.Start(""), chat.ErrNotAuthenticated)
}

func TestDirectoryOrdersSessionsMostRecentFirst(t *testing.T) {
	source := mocks.NewFakeSource()
	ctx := context.Background()

	bobSession, err := source.CreateOrGetSession(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = source.CreateOrGetSession(ctx, "alice", "carol")
	require.NoError(t, err)
	_, err = source.CreateOrGetSession(ctx, "alice", "dave")
	require.NoError(t, err)

	directory := chat.NewSessionDirectory(source)
	defer directory.Stop()
	require.NoError(t, directory.Start("alice"))

	update := waitDirectory(t, directory.Updates(), func(u chat.DirectoryUpdate) bool {
		return len(u.Sessions) == 3
	})
	assert.Equal(t, "dave", update.Sessions[0].OtherUserID)
	assert.Equal(t, "carol", update.Sessions[1].OtherUserID)
	assert.Equal(t, "bob", update.Sessions[2].OtherUserID)

	// A new message bubbles its session to the top.
	require.NoError(t, source.UpdateSessionSummary(ctx, bobSession.ID, "hey"))
	update = waitDirectory(t, directory.Updates(), func(u chat.DirectoryUpdate) bool {
		return len(u.Sessions) == 3 && u.Sessions[0].OtherUserID == "bob"
	})
	assert.Equal(t, "hey", update.Sessions[0].LastMessageContent)
}

func TestDirectoryJoinsProfiles(t *testing.T) {
	source := mocks.NewFakeSource()
	ctx := context.Background()

	source.SaveProfile(models.UserProfile{UserID: "bob", Name: "Bob", Surname: "Builder", ProfileImage: "img"})
	_, err := source.CreateOrGetSession(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = source.CreateOrGetSession(ctx, "alice", "ghost")
	require.NoError(t, err)

	directory := chat.NewSessionDirectory(source)
	defer directory.Stop()
	require.NoError(t, directory.Start("alice"))

	update := waitDirectory(t, directory.Updates(), func(u chat.DirectoryUpdate) bool {
		if len(u.Sessions) != 2 {
			return false
		}
		byOther := map[string]models.SessionSummary{}
		for _, s := range u.Sessions {
			byOther[s.OtherUserID] = s
		}
		return byOther["bob"].OtherName == "Bob" && byOther["ghost"].OtherName == "Unknown"
	})

	byOther := map[string]models.SessionSummary{}
	for _, s := range update.Sessions {
		byOther[s.OtherUserID] = s
	}
	assert.Equal(t, "Builder", byOther["bob"].OtherSurname)
	assert.Equal(t, "img", byOther["bob"].OtherProfileImage)
	assert.Equal(t, "User", byOther["ghost"].OtherSurname)
}

func TestDirectoryProfileChangePropagates(t *testing.T) {
	source := mocks.NewFakeSource()
	ctx := context.Background()

	_, err := source.CreateOrGetSession(ctx, "alice", "bob")
	require.NoError(t, err)

	directory := chat.NewSessionDirectory(source)
	defer directory.Stop()
	require.NoError(t, directory.Start("alice"))

	waitDirectory(t, directory.Updates(), func(u chat.DirectoryUpdate) bool {
		return len(u.Sessions) == 1 && u.Sessions[0].OtherName == "Unknown"
	})

	source.SaveProfile(models.UserProfile{UserID: "bob", Name: "Bob"})
	waitDirectory(t, directory.Updates(), func(u chat.DirectoryUpdate) bool {
		return len(u.Sessions) == 1 && u.Sessions[0].OtherName == "Bob"
	})
}

func TestDirectorySuppressesUnchangedSnapshots(t *testing.T) {
	source := mocks.NewFakeSource()
	ctx := context.Background()

	source.SaveProfile(models.UserProfile{UserID: "bob", Name: "Bob"})
	session, err := source.CreateOrGetSession(ctx, "alice", "bob")
	require.NoError(t, err)

	directory := chat.NewSessionDirectory(source)
	defer directory.Stop()
	require.NoError(t, directory.Start("alice"))

	// Drain to the steady state where the profile has been applied.
	waitDirectory(t, directory.Updates(), func(u chat.DirectoryUpdate) bool {
		return len(u.Sessions) == 1 && u.Sessions[0].OtherName == "Bob"
	})

	// Same session id and last-message timestamp: no publish.
	source.NotifySessions("alice")
	expectNoDirectoryUpdate(t, directory.Updates())

	// A bumped timestamp publishes again.
	require.NoError(t, source.UpdateSessionSummary(ctx, session.ID, "ping"))
	waitDirectory(t, directory.Updates(), func(u chat.DirectoryUpdate) bool {
		return len(u.Sessions) == 1 && u.Sessions[0].LastMessageContent == "ping"
	})
}

func TestDirectoryErrorPreservesLastList(t *testing.T) {
	source := mocks.NewFakeSource()
	ctx := context.Background()

	source.SaveProfile(models.UserProfile{UserID: "bob", Name: "Bob"})
	_, err := source.CreateOrGetSession(ctx, "alice", "bob")
	require.NoError(t, err)

	directory := chat.NewSessionDirectory(source)
	defer directory.Stop()
	require.NoError(t, directory.Start("alice"))

	waitDirectory(t, directory.Updates(), func(u chat.DirectoryUpdate) bool {
		return len(u.Sessions) == 1 && u.Sessions[0].OtherName == "Bob"
	})

	source.EmitSessionsError("alice", assert.AnError)
	update := waitDirectory(t, directory.Updates(), func(u chat.DirectoryUpdate) bool {
		return u.Err != nil
	})
	assert.ErrorIs(t, update.Err, chat.ErrDirectoryUnavailable)
	require.Len(t, update.Sessions, 1)
	assert.Equal(t, "bob", update.Sessions[0].OtherUserID)
}

func TestDirectoryEmptySnapshotClearsList(t *testing.T) {
	source := mocks.NewFakeSource()
	ctx := context.Background()

	_, err := source.CreateOrGetSession(ctx, "alice", "bob")
	require.NoError(t, err)

	directory := chat.NewSessionDirectory(source)
	defer directory.Stop()
	require.NoError(t, directory.Start("alice"))

	waitDirectory(t, directory.Updates(), func(u chat.DirectoryUpdate) bool {
		return len(u.Sessions) == 1
	})

	source.ClearSessions()
	update := waitDirectory(t, directory.Updates(), func(u chat.DirectoryUpdate) bool {
		return len(u.Sessions) == 0
	})
	assert.NoError(t, update.Err)
}

func TestDirectoryRestartReplacesSubscription(t *testing.T) {
	source := mocks.NewFakeSource()

	directory := chat.NewSessionDirectory(source)
	defer directory.Stop()

	require.NoError(t, directory.Start("alice"))
	require.NoError(t, directory.Start("alice"))
	assert.Equal(t, 1, source.ActiveSessionWatches("alice"))

	require.NoError(t, directory.Start("bob"))
	assert.Equal(t, 0, source.ActiveSessionWatches("alice"))
	assert.Equal(t, 1, source.ActiveSessionWatches("bob"))
}

func TestDirectoryStopClosesEverything(t *testing.T) {
	source := mocks.NewFakeSource()
	ctx := context.Background()

	_, err := source.CreateOrGetSession(ctx, "alice", "bob")
	require.NoError(t, err)

	directory := chat.NewSessionDirectory(source)
	require.NoError(t, directory.Start("alice"))

	waitDirectory(t, directory.Updates(), func(u chat.DirectoryUpdate) bool {
		return len(u.Sessions) == 1
	})

	directory.Stop()
	directory.Stop()

	assert.Equal(t, 0, source.ActiveSessionWatches("alice"))
	assert.Equal(t, 0, source.ActiveProfileWatches("bob"))

	for range directory.Updates() {
	}

	assert.ErrorIs(t, directory.Start("alice"), chat.ErrClosed)
}

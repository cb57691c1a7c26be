package chat_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifi-chat-service/internal/chat"
	"lifi-chat-service/internal/mocks"
)

func TestCanonicalPair(t *testing.T) {
	a, b := chat.CanonicalPair("bob", "alice")
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)

	a, b = chat.CanonicalPair("alice", "bob")
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)

	a, b = chat.CanonicalPair("x", "x")
	assert.Equal(t, "x", a)
	assert.Equal(t, "x", b)
}

func TestEnsureSessionRejectsInvalidParticipants(t *testing.T) {
	source := mocks.NewFakeSource()

	_, err := chat.EnsureSession(context.Background(), source, "", "bob")
	assert.ErrorIs(t, err, chat.ErrInvalidParticipants)

	_, err = chat.EnsureSession(context.Background(), source, "alice", "")
	assert.ErrorIs(t, err, chat.ErrInvalidParticipants)

	_, err = chat.EnsureSession(context.Background(), source, "alice", "alice")
	assert.ErrorIs(t, err, chat.ErrInvalidParticipants)
}

func TestEnsureSessionSymmetric(t *testing.T) {
	source := mocks.NewFakeSource()

	first, err := chat.EnsureSession(context.Background(), source, "alice", "bob")
	require.NoError(t, err)
	second, err := chat.EnsureSession(context.Background(), source, "bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice", first.User1)
	assert.Equal(t, "bob", first.User2)
}

func TestEnsureSessionConcurrentCallersConverge(t *testing.T) {
	source := mocks.NewFakeSource()

	const callers = 16
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			me, other := "alice", "bob"
			if i%2 == 1 {
				me, other = other, me
			}
			session, err := chat.EnsureSession(context.Background(), source, me, other)
			assert.NoError(t, err)
			ids[i] = session.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Equal(t, ids[0], ids[i])
	}
}

package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifi-chat-service/internal/auth"
	"lifi-chat-service/internal/mocks"
	"lifi-chat-service/internal/models"
)

func setupWSServer(t *testing.T, source *mocks.FakeSource, manager *auth.JWTManager) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/chats", NewDirectoryWebSocketHandler(source, manager).Handle)
	r.GET("/ws/chats/with/:user_id", NewConversationWebSocketHandler(source, manager).Handle)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func dialWS(t *testing.T, rawURL string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(rawURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestDirectoryWSRejectsMissingToken(t *testing.T) {
	server := setupWSServer(t, mocks.NewFakeSource(), auth.NewJWTManager("secret", time.Hour))

	resp, err := http.Get(server.URL + "/ws/chats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDirectoryWSStreamsSessions(t *testing.T) {
	source := mocks.NewFakeSource()
	manager := auth.NewJWTManager("secret", time.Hour)
	server := setupWSServer(t, source, manager)

	source.SaveProfile(models.UserProfile{UserID: "bob", Name: "Bob"})
	_, err := source.CreateOrGetSession(context.Background(), "alice", "bob")
	require.NoError(t, err)

	token, _, err := manager.GenerateToken("alice")
	require.NoError(t, err)

	conn := dialWS(t, wsURL(server, "/ws/chats?token="+token))

	var event models.DirectoryEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "sessions", event.Type)
	require.Len(t, event.Sessions, 1)
	assert.Equal(t, "bob", event.Sessions[0].OtherUserID)
}

func TestConversationWSOpenAndSend(t *testing.T) {
	source := mocks.NewFakeSource()
	manager := auth.NewJWTManager("secret", time.Hour)
	server := setupWSServer(t, source, manager)

	_, err := source.CreateOrGetSession(context.Background(), "alice", "bob")
	require.NoError(t, err)

	token, _, err := manager.GenerateToken("alice")
	require.NoError(t, err)

	conn := dialWS(t, wsURL(server, "/ws/chats/with/bob?token="+token))

	// Profile updates may arrive before the session resolves; wait for it.
	var event models.ChatEvent
	deadline := time.Now().Add(2 * time.Second)
	for !event.Exists {
		require.True(t, time.Now().Before(deadline), "timed out waiting for session event")
		require.NoError(t, conn.ReadJSON(&event))
		assert.Equal(t, "conversation", event.Type)
	}

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "send", "content": "hello"}))

	for {
		require.True(t, time.Now().Before(deadline), "timed out waiting for message event")
		require.NoError(t, conn.ReadJSON(&event))
		if len(event.Messages) == 1 {
			break
		}
	}
	assert.Equal(t, "hello", event.Messages[0].Content)
	assert.Equal(t, "alice", event.Messages[0].FromUserID)
}

func TestConversationWSNoSession(t *testing.T) {
	source := mocks.NewFakeSource()
	manager := auth.NewJWTManager("secret", time.Hour)
	server := setupWSServer(t, source, manager)

	token, _, err := manager.GenerateToken("alice")
	require.NoError(t, err)

	conn := dialWS(t, wsURL(server, "/ws/chats/with/bob?token="+token))

	var event models.ChatEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "conversation", event.Type)
	assert.False(t, event.Exists)
	assert.Empty(t, event.SessionID)
}

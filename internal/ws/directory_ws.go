package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"lifi-chat-service/internal/auth"
	"lifi-chat-service/internal/chat"
	"lifi-chat-service/internal/models"
	"lifi-chat-service/internal/observability"
	"lifi-chat-service/internal/telemetry"
)

// DirectoryWebSocketHandler streams the caller's live session list.
type DirectoryWebSocketHandler struct {
	source chat.Source
	jwt    *auth.JWTManager
}

// NewDirectoryWebSocketHandler constructs a DirectoryWebSocketHandler.
func NewDirectoryWebSocketHandler(source chat.Source, jwt *auth.JWTManager) *DirectoryWebSocketHandler {
	return &DirectoryWebSocketHandler{source: source, jwt: jwt}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, starts a SessionDirectory for the caller
// and forwards its updates until the client disconnects.
func (h *DirectoryWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := telemetry.Tracer("lifi-chat-service/ws").Start(c.Request.Context(), "ws.directory")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := authenticate(c, h.jwt)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	meta := observability.ClientMetaFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		IP:          meta.IP,
		RequestID:   meta.RequestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	directory := chat.NewSessionDirectory(h.source)
	if err := directory.Start(userID); err != nil {
		_ = conn.WriteJSON(models.DirectoryEvent{Type: "error", Error: err.Error()})
		conn.Close()
		return
	}

	observability.IncWSActive("directory")
	publishWSEvent(ctx, "directory", "ws_connect", "", info)

	// Writer: forward directory updates until Stop closes the channel.
	go func() {
		for update := range directory.Updates() {
			event := models.DirectoryEvent{Type: "sessions", Sessions: update.Sessions}
			if update.Err != nil {
				event.Type = "error"
				event.Error = update.Err.Error()
			}
			if err := conn.WriteJSON(event); err != nil {
				conn.Close()
				return
			}
			observability.IncUpdatePublished("directory")
		}
	}()

	// Reader: the client sends nothing meaningful; a read error means the
	// connection is gone.
	go func() {
		var closeReason string
		defer func() {
			directory.Stop()
			observability.DecWSActive("directory")
			publishWSEvent(ctx, "directory", "ws_disconnect", closeReason, info)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishWSEvent(ctx, "directory", "ws_error", closeReason, info)
				}
				return
			}
		}
	}()
}

func authenticate(c *gin.Context, jwt *auth.JWTManager) (string, bool) {
	token := c.GetHeader("Authorization")
	if token != "" {
		const prefix = "Bearer "
		if len(token) > len(prefix) {
			token = token[len(prefix):]
		}
	} else {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return "", false
	}

	userID, err := jwt.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return "", false
	}
	return userID, true
}

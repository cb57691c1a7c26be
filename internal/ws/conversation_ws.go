package ws

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"lifi-chat-service/internal/auth"
	"lifi-chat-service/internal/chat"
	"lifi-chat-service/internal/models"
	"lifi-chat-service/internal/observability"
	"lifi-chat-service/internal/telemetry"
)

// ConversationWebSocketHandler streams one two-party conversation and accepts
// send/open frames from the client.
type ConversationWebSocketHandler struct {
	source chat.Source
	jwt    *auth.JWTManager
}

// NewConversationWebSocketHandler constructs a ConversationWebSocketHandler.
func NewConversationWebSocketHandler(source chat.Source, jwt *auth.JWTManager) *ConversationWebSocketHandler {
	return &ConversationWebSocketHandler{source: source, jwt: jwt}
}

type conversationFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// Handle upgrades the connection, opens a ConversationChannel against the
// other participant and pumps updates out / frames in until disconnect.
func (h *ConversationWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := telemetry.Tracer("lifi-chat-service/ws").Start(c.Request.Context(), "ws.conversation")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := authenticate(c, h.jwt)
	if !ok {
		return
	}
	otherUserID := c.Param("user_id")

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

	channel := chat.NewConversationChannel(h.source)
	if err := channel.Open(ctx, userID, otherUserID); err != nil && errors.Is(err, chat.ErrInvalidParticipants) {
		_ = conn.WriteJSON(models.ChatEvent{Type: "error", Error: err.Error()})
		channel.Close()
		conn.Close()
		return
	}

	observability.IncWSActive("conversation")
	publishWSEvent(ctx, "conversation", "ws_connect", "", info)

	// Writer: forward channel updates until Close closes the channel.
	go func() {
		for update := range channel.Updates() {
			event := models.ChatEvent{
				Type:      "conversation",
				SessionID: update.SessionID,
				Exists:    update.Exists,
				Messages:  update.Messages,
			}
			if update.Recipient.UserID != "" || update.Recipient.Name != "" {
				recipient := update.Recipient
				event.Recipient = &recipient
			}
			if update.Err != nil {
				event.Type = "error"
				event.Error = update.Err.Error()
			}
			if err := conn.WriteJSON(event); err != nil {
				conn.Close()
				return
			}
			observability.IncUpdatePublished("conversation")
		}
	}()

	// Reader: send/open frames from the client.
	go func() {
		var closeReason string
		defer func() {
			channel.Close()
			observability.DecWSActive("conversation")
			publishWSEvent(ctx, "conversation", "ws_disconnect", closeReason, info)
			conn.Close()
		}()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishWSEvent(ctx, "conversation", "ws_error", closeReason, info)
				}
				return
			}

			var frame conversationFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				continue
			}
			switch frame.Type {
			case "send":
				if err := channel.Send(ctx, frame.Content); err == nil {
					observability.IncMessageSent()
				}
			case "open":
				// Re-resolve, e.g. after the peer started the session.
				_ = channel.Open(ctx, userID, otherUserID)
			}
		}
	}()
}

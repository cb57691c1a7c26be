package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lifi-chat-service/internal/chat"
	"lifi-chat-service/internal/models"
	"lifi-chat-service/internal/observability"
	"lifi-chat-service/internal/repositories"
	"lifi-chat-service/internal/telemetry"
)

// Store is the one-shot read/write surface the handlers consume. Writes must
// wake the corresponding live watchers.
type Store interface {
	ListSessionsForUser(ctx context.Context, userID string) ([]models.ChatSession, error)
	GetSession(ctx context.Context, sessionID string) (models.ChatSession, error)
	IsParticipant(ctx context.Context, sessionID, userID string) (bool, error)
	ListMessages(ctx context.Context, sessionID string, limit int) ([]models.Message, error)
	Profiles(ctx context.Context, userIDs []string) ([]models.UserProfile, error)
	SaveProfile(ctx context.Context, profile models.UserProfile) error
	CreateOrGetSession(ctx context.Context, user1, user2 string) (models.ChatSession, error)
	AppendMessage(ctx context.Context, sessionID, fromUserID, content string) (models.Message, error)
	UpdateSessionSummary(ctx context.Context, sessionID, lastMessage string) error
}

// ChatHandler manages the chat session endpoints.
type ChatHandler struct {
	store Store
	audit *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler. audit may be nil.
func NewChatHandler(store Store, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{store: store, audit: audit}
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

// ListChats returns the caller's sessions joined with the other participant's
// profile, most recent message first.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetString("userID")

	sessions, err := h.store.ListSessionsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	otherIDs := make([]string, 0, len(sessions))
	otherIDSet := map[string]struct{}{}
	for _, s := range sessions {
		other, ok := s.Other(userID)
		if !ok {
			continue
		}
		if _, seen := otherIDSet[other]; !seen {
			otherIDSet[other] = struct{}{}
			otherIDs = append(otherIDs, other)
		}
	}

	profiles, err := h.store.Profiles(c.Request.Context(), otherIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profiles"})
		return
	}
	profileByID := map[string]models.UserProfile{}
	for _, p := range profiles {
		profileByID[p.UserID] = p
	}

	summaries := make([]models.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		other, ok := s.Other(userID)
		if !ok {
			// Malformed participant data is skipped, not surfaced.
			continue
		}
		summary := models.SessionSummary{
			SessionID:          s.ID,
			OtherUserID:        other,
			LastMessageContent: s.LastMessageContent,
			LastMessageAt:      s.LastMessageAt,
		}
		if p, found := profileByID[other]; found {
			summary.OtherName = p.Name
			summary.OtherSurname = p.Surname
			summary.OtherProfileImage = p.ProfileImage
		}
		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, gin.H{"chats": summaries})
}

// StartChat resolves or creates the session between the caller and another
// user. Idempotent: both participants arrive at the same session.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		OtherUserID string `json:"other_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	session, err := chat.EnsureSession(c.Request.Context(), h.store, userID, req.OtherUserID)
	if err != nil {
		if errors.Is(err, chat.ErrInvalidParticipants) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participants"})
			return
		}
		h.emitAudit(c, "ERROR", "could not create chat")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
		return
	}

	h.emitAudit(c, "INFO", "chat started")
	c.JSON(http.StatusOK, gin.H{"session_id": session.ID})
}

// GetChatMessages returns the capped ascending message window of a session.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	sessionID := c.Param("chat_id")
	userID := c.GetString("userID")

	member, err := h.store.IsParticipant(c.Request.Context(), sessionID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	msgs, err := h.store.ListMessages(c.Request.Context(), sessionID, chat.MessageWindow)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChatMessage appends a message and refreshes the session summary.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	sessionID := c.Param("chat_id")
	userID := c.GetString("userID")

	session, err := h.store.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}
	if _, ok := session.Other(userID); !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty content"})
		return
	}

	msg, err := h.store.AppendMessage(c.Request.Context(), sessionID, userID, content)
	if err != nil {
		h.emitAudit(c, "ERROR", "failed to store message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}
	observability.IncMessageSent()
	h.emitAudit(c, "INFO", "message sent")

	// Second of the two sequential writes; the message above stays
	// authoritative if this one fails.
	if err := h.store.UpdateSessionSummary(c.Request.Context(), sessionID, content); err != nil {
		c.JSON(http.StatusCreated, gin.H{"message": msg, "warning": "summary update failed"})
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// UpsertProfile stores the caller's display metadata.
func (h *ChatHandler) UpsertProfile(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Name         string `json:"name" binding:"required"`
		Surname      string `json:"surname"`
		ProfileImage string `json:"profile_image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile := models.UserProfile{
		UserID:       userID,
		Name:         req.Name,
		Surname:      req.Surname,
		ProfileImage: req.ProfileImage,
	}
	if err := h.store.SaveProfile(c.Request.Context(), profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save profile"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

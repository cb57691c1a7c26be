package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"lifi-chat-service/internal/models"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) ListSessionsForUser(ctx context.Context, userID string) ([]models.ChatSession, error) {
	args := m.Called(ctx, userID)
	var sessions []models.ChatSession
	if val := args.Get(0); val != nil {
		sessions = val.([]models.ChatSession)
	}
	return sessions, args.Error(1)
}

func (m *StoreMock) GetSession(ctx context.Context, sessionID string) (models.ChatSession, error) {
	args := m.Called(ctx, sessionID)
	var session models.ChatSession
	if val := args.Get(0); val != nil {
		session = val.(models.ChatSession)
	}
	return session, args.Error(1)
}

func (m *StoreMock) IsParticipant(ctx context.Context, sessionID, userID string) (bool, error) {
	args := m.Called(ctx, sessionID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *StoreMock) ListMessages(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, sessionID, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *StoreMock) Profiles(ctx context.Context, userIDs []string) ([]models.UserProfile, error) {
	args := m.Called(ctx, userIDs)
	var profiles []models.UserProfile
	if val := args.Get(0); val != nil {
		profiles = val.([]models.UserProfile)
	}
	return profiles, args.Error(1)
}

func (m *StoreMock) SaveProfile(ctx context.Context, profile models.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *StoreMock) CreateOrGetSession(ctx context.Context, user1, user2 string) (models.ChatSession, error) {
	args := m.Called(ctx, user1, user2)
	var session models.ChatSession
	if val := args.Get(0); val != nil {
		session = val.(models.ChatSession)
	}
	return session, args.Error(1)
}

func (m *StoreMock) AppendMessage(ctx context.Context, sessionID, fromUserID, content string) (models.Message, error) {
	args := m.Called(ctx, sessionID, fromUserID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *StoreMock) UpdateSessionSummary(ctx context.Context, sessionID, lastMessage string) error {
	args := m.Called(ctx, sessionID, lastMessage)
	return args.Error(0)
}

package api

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/varsitymarket/backend/internal/database"
	"github.com/varsitymarket/backend/internal/models"
)

// MockDB implements database.DBInterface for handler tests
type MockDB struct {
	mock.Mock
}

// User methods

func (m *MockDB) CreateUser(username, email, passwordHash string) (*models.User, error) {
	args := m.Called(username, email, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDB) GetUserByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDB) GetUserByID(id uuid.UUID) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDB) UpdateLastSeen(userID uuid.UUID) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockDB) GetAllUsers(excludeUserID uuid.UUID) ([]*models.User, error) {
	args := m.Called(excludeUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

// Conversation store

func (m *MockDB) GetOrCreateConversation(userA, userB uuid.UUID, relatedProductID *uuid.UUID) (*models.Conversation, bool, error) {
	args := m.Called(userA, userB, relatedProductID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Conversation), args.Bool(1), args.Error(2)
}

func (m *MockDB) GetConversationByID(id uuid.UUID) (*models.Conversation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockDB) ListConversations(userID uuid.UUID) ([]*models.Conversation, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

func (m *MockDB) GetOtherParticipant(conversationID, userID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(conversationID, userID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockDB) SetConversationActive(conversationID uuid.UUID, active bool) error {
	args := m.Called(conversationID, active)
	return args.Error(0)
}

// Participant state

func (m *MockDB) GetParticipant(conversationID, userID uuid.UUID) (*models.ConversationParticipant, error) {
	args := m.Called(conversationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConversationParticipant), args.Error(1)
}

func (m *MockDB) MuteConversation(conversationID, userID uuid.UUID, muted bool) error {
	args := m.Called(conversationID, userID, muted)
	return args.Error(0)
}

func (m *MockDB) ArchiveConversation(conversationID, userID uuid.UUID, archived bool) error {
	args := m.Called(conversationID, userID, archived)
	return args.Error(0)
}

func (m *MockDB) BlockConversation(conversationID, userID uuid.UUID, blocked bool) error {
	args := m.Called(conversationID, userID, blocked)
	return args.Error(0)
}

// Message log

func (m *MockDB) PostMessage(conversationID, senderID uuid.UUID, draft *models.MessageDraft) (*models.Message, error) {
	args := m.Called(conversationID, senderID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockDB) GetMessageByID(messageID uuid.UUID) (*models.Message, error) {
	args := m.Called(messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockDB) EditMessage(messageID, editorID uuid.UUID, newContent string) (*models.Message, error) {
	args := m.Called(messageID, editorID, newContent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockDB) SoftDeleteMessage(messageID, requesterID uuid.UUID) error {
	args := m.Called(messageID, requesterID)
	return args.Error(0)
}

func (m *MockDB) MarkMessageRead(messageID, readerID uuid.UUID) error {
	args := m.Called(messageID, readerID)
	return args.Error(0)
}

func (m *MockDB) MarkConversationRead(conversationID, userID uuid.UUID) error {
	args := m.Called(conversationID, userID)
	return args.Error(0)
}

func (m *MockDB) UnreadCount(conversationID, userID uuid.UUID) (int, error) {
	args := m.Called(conversationID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockDB) TotalUnreadCount(userID uuid.UUID) (int, error) {
	args := m.Called(userID)
	return args.Int(0), args.Error(1)
}

func (m *MockDB) ListMessages(conversationID uuid.UUID, limit int, before *uuid.UUID) ([]*models.Message, error) {
	args := m.Called(conversationID, limit, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

// Attachments

func (m *MockDB) CreateAttachment(messageID uuid.UUID, req *models.AttachmentRequest) (*models.MessageAttachment, error) {
	args := m.Called(messageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageAttachment), args.Error(1)
}

func (m *MockDB) ListAttachments(messageID uuid.UUID) ([]*models.MessageAttachment, error) {
	args := m.Called(messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MessageAttachment), args.Error(1)
}

// Common methods

func (m *MockDB) Exec(query string, args ...interface{}) (database.ExecResult, error) {
	mockArgs := m.Called(append([]interface{}{query}, args...)...)
	if mockArgs.Get(0) == nil {
		return nil, mockArgs.Error(1)
	}
	return mockArgs.Get(0).(database.ExecResult), mockArgs.Error(1)
}

func (m *MockDB) Close() error {
	args := m.Called()
	return args.Error(0)
}

package database

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/varsitymarket/backend/internal/models"
)

type DBInterface interface {
	// User methods
	CreateUser(username, email, passwordHash string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uuid.UUID) (*models.User, error)
	UpdateLastSeen(userID uuid.UUID) error
	GetAllUsers(excludeUserID uuid.UUID) ([]*models.User, error)

	// Conversation store
	GetOrCreateConversation(userA, userB uuid.UUID, relatedProductID *uuid.UUID) (*models.Conversation, bool, error)
	GetConversationByID(id uuid.UUID) (*models.Conversation, error)
	ListConversations(userID uuid.UUID) ([]*models.Conversation, error)
	GetOtherParticipant(conversationID, userID uuid.UUID) (uuid.UUID, error)
	SetConversationActive(conversationID uuid.UUID, active bool) error

	// Participant state
	GetParticipant(conversationID, userID uuid.UUID) (*models.ConversationParticipant, error)
	MuteConversation(conversationID, userID uuid.UUID, muted bool) error
	ArchiveConversation(conversationID, userID uuid.UUID, archived bool) error
	BlockConversation(conversationID, userID uuid.UUID, blocked bool) error

	// Message log
	PostMessage(conversationID, senderID uuid.UUID, draft *models.MessageDraft) (*models.Message, error)
	GetMessageByID(messageID uuid.UUID) (*models.Message, error)
	EditMessage(messageID, editorID uuid.UUID, newContent string) (*models.Message, error)
	SoftDeleteMessage(messageID, requesterID uuid.UUID) error
	MarkMessageRead(messageID, readerID uuid.UUID) error
	MarkConversationRead(conversationID, userID uuid.UUID) error
	UnreadCount(conversationID, userID uuid.UUID) (int, error)
	TotalUnreadCount(userID uuid.UUID) (int, error)
	ListMessages(conversationID uuid.UUID, limit int, before *uuid.UUID) ([]*models.Message, error)

	// Attachments
	CreateAttachment(messageID uuid.UUID, req *models.AttachmentRequest) (*models.MessageAttachment, error)
	ListAttachments(messageID uuid.UUID) ([]*models.MessageAttachment, error)

	// Common methods
	Exec(query string, args ...interface{}) (ExecResult, error)
	Close() error
}

type ExecResult interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

type DatabaseType string

const (
	PostgreSQL DatabaseType = "postgres"
	MySQL      DatabaseType = "mysql"
)

func NewDatabase(dbType DatabaseType, connStr string) (DBInterface, error) {
	switch dbType {
	case PostgreSQL:
		return NewPostgresDB(connStr)
	case MySQL:
		return nil, fmt.Errorf("MySQL implementation not available yet")
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

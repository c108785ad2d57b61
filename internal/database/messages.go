package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/varsitymarket/backend/internal/models"
)

// PostMessage appends a message to a conversation. The sender must be a
// participant and the conversation active; the insert and the bump of the
// conversation's last_message_at commit together, so no reader ever sees the
// timestamp lag behind the newest message.
func (db *PostgresDB) PostMessage(conversationID, senderID uuid.UUID, draft *models.MessageDraft) (*models.Message, error) {
	msgType := draft.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if !msgType.Valid() {
		return nil, fmt.Errorf("unknown message type %q", msgType)
	}

	content := strings.TrimSpace(draft.Content)
	if content == "" && msgType.RequiresContent() {
		return nil, ErrEmptyContent
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var isActive bool
	err = tx.QueryRow("SELECT is_active FROM conversations WHERE id = $1", conversationID).Scan(&isActive)
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}

	var isParticipant bool
	err = tx.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM conversation_participants
		              WHERE conversation_id = $1 AND user_id = $2)`,
		conversationID, senderID).Scan(&isParticipant)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, ErrNotAParticipant
	}

	if !isActive {
		return nil, ErrConversationClosed
	}

	message := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Type:           msgType,
		Content:        content,
		ImageURL:       draft.ImageURL,
		Metadata:       draft.Metadata,
		IsRead:         false,
		CreatedAt:      time.Now().UTC(),
	}
	message.UpdatedAt = message.CreatedAt

	_, err = tx.Exec(`
		INSERT INTO messages (id, conversation_id, sender_id, message_type, content, image_url,
		                      metadata, is_read, is_edited, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, false, false, $8, $8)`,
		message.ID, message.ConversationID, message.SenderID, message.Type, message.Content,
		nullableString(message.ImageURL), message.Metadata, message.CreatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		UPDATE conversations SET last_message_at = $1, updated_at = $1 WHERE id = $2`,
		message.CreatedAt, conversationID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return message, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

const messageColumns = `id, conversation_id, sender_id, message_type, content,
	COALESCE(image_url, ''), metadata, is_read, is_edited, is_deleted,
	created_at, updated_at, read_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var rawMetadata []byte
	var readAt sql.NullTime

	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Type, &msg.Content,
		&msg.ImageURL, &rawMetadata, &msg.IsRead, &msg.IsEdited, &msg.IsDeleted,
		&msg.CreatedAt, &msg.UpdatedAt, &readAt)
	if err != nil {
		return nil, err
	}

	if len(rawMetadata) > 0 {
		metadata := &models.MessageMetadata{}
		if err := metadata.Scan(rawMetadata); err != nil {
			return nil, err
		}
		msg.Metadata = metadata
	}
	if readAt.Valid {
		msg.ReadAt = &readAt.Time
	}
	return msg, nil
}

// GetMessageByID returns the raw row, deleted or not. Callers that hand the
// message to a client must Redact it first.
func (db *PostgresDB) GetMessageByID(messageID uuid.UUID) (*models.Message, error) {
	row := db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = $1`, messageID)
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// EditMessage replaces a message's content. Only the original sender may edit,
// and a soft-deleted message stays frozen.
func (db *PostgresDB) EditMessage(messageID, editorID uuid.UUID, newContent string) (*models.Message, error) {
	msg, err := db.GetMessageByID(messageID)
	if err != nil {
		return nil, err
	}

	if msg.SenderID != editorID {
		return nil, ErrForbidden
	}
	if msg.IsDeleted {
		return nil, ErrMessageDeleted
	}

	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, ErrEmptyContent
	}

	now := time.Now().UTC()
	_, err = db.Exec(`
		UPDATE messages SET content = $1, is_edited = true, updated_at = $2 WHERE id = $3`,
		newContent, now, messageID)
	if err != nil {
		return nil, err
	}

	msg.Content = newContent
	msg.IsEdited = true
	msg.UpdatedAt = now
	return msg, nil
}

// SoftDeleteMessage hides a message without removing its row or disturbing
// ordering. Sender only; already-deleted is a no-op.
func (db *PostgresDB) SoftDeleteMessage(messageID, requesterID uuid.UUID) error {
	msg, err := db.GetMessageByID(messageID)
	if err != nil {
		return err
	}

	if msg.SenderID != requesterID {
		return ErrForbidden
	}
	if msg.IsDeleted {
		return nil
	}

	_, err = db.Exec(`
		UPDATE messages SET is_deleted = true, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), messageID)
	return err
}

// MarkMessageRead marks a single message read for the recipient. A sender
// "reading" their own message is a no-op, and a second call leaves the
// original read_at untouched.
func (db *PostgresDB) MarkMessageRead(messageID, readerID uuid.UUID) error {
	msg, err := db.GetMessageByID(messageID)
	if err != nil {
		return err
	}

	if msg.SenderID == readerID {
		return nil
	}

	_, err = db.Exec(`
		UPDATE messages SET is_read = true, read_at = $1
		WHERE id = $2 AND is_read = false`,
		time.Now().UTC(), messageID)
	return err
}

// MarkConversationRead marks every message not authored by user, unread at
// the time of the call, as read with a single shared timestamp. A message
// arriving mid-operation is simply not part of the snapshot.
func (db *PostgresDB) MarkConversationRead(conversationID, userID uuid.UUID) error {
	if _, err := db.GetParticipant(conversationID, userID); err != nil {
		return err
	}

	now := time.Now().UTC()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE messages SET is_read = true, read_at = $1
		WHERE conversation_id = $2 AND sender_id != $3 AND is_read = false`,
		now, conversationID, userID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE conversation_participants SET last_read_at = $1
		WHERE conversation_id = $2 AND user_id = $3`,
		now, conversationID, userID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// UnreadCount counts messages in the conversation that the user has not read.
// The user's own messages never count, and neither do soft-deleted ones.
func (db *PostgresDB) UnreadCount(conversationID, userID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = $1 AND sender_id != $2
		  AND is_read = false AND is_deleted = false`,
		conversationID, userID).Scan(&count)
	return count, err
}

// TotalUnreadCount aggregates unread messages across every conversation the
// user participates in.
func (db *PostgresDB) TotalUnreadCount(userID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM messages m
		JOIN conversation_participants cp
		  ON cp.conversation_id = m.conversation_id AND cp.user_id = $1
		WHERE m.sender_id != $1 AND m.is_read = false AND m.is_deleted = false`,
		userID).Scan(&count)
	return count, err
}

// ListMessages returns one page of a conversation's messages, newest first.
// Ordering is created_at then id, so equal timestamps still page
// deterministically; the cursor is the id of the oldest message of the
// previous page. Soft-deleted rows keep their slot but come back redacted.
func (db *PostgresDB) ListMessages(conversationID uuid.UUID, limit int, before *uuid.UUID) ([]*models.Message, error) {
	var rows *sql.Rows
	var err error

	if before != nil {
		rows, err = db.Query(`
			SELECT `+messageColumns+` FROM messages
			WHERE conversation_id = $1
			  AND (created_at, id) < (SELECT created_at, id FROM messages WHERE id = $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3`, conversationID, *before, limit)
	} else {
		rows, err = db.Query(`
			SELECT `+messageColumns+` FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, conversationID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msg.Redact()
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// CreateAttachment hangs a file reference off an existing message. Soft
// deletion of the message does not touch its attachments.
func (db *PostgresDB) CreateAttachment(messageID uuid.UUID, req *models.AttachmentRequest) (*models.MessageAttachment, error) {
	if _, err := db.GetMessageByID(messageID); err != nil {
		return nil, err
	}

	attachment := &models.MessageAttachment{
		ID:        uuid.New(),
		MessageID: messageID,
		FileURL:   req.FileURL,
		FileName:  req.FileName,
		FileSize:  req.FileSize,
		FileType:  req.FileType,
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.Exec(`
		INSERT INTO message_attachments (id, message_id, file_url, file_name, file_size, file_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		attachment.ID, attachment.MessageID, attachment.FileURL, attachment.FileName,
		attachment.FileSize, attachment.FileType, attachment.CreatedAt)
	if err != nil {
		return nil, err
	}

	return attachment, nil
}

func (db *PostgresDB) ListAttachments(messageID uuid.UUID) ([]*models.MessageAttachment, error) {
	rows, err := db.Query(`
		SELECT id, message_id, file_url, file_name, file_size, file_type, created_at
		FROM message_attachments
		WHERE message_id = $1
		ORDER BY created_at`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []*models.MessageAttachment
	for rows.Next() {
		a := &models.MessageAttachment{}
		err := rows.Scan(&a.ID, &a.MessageID, &a.FileURL, &a.FileName, &a.FileSize, &a.FileType, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return attachments, nil
}

package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/varsitymarket/backend/internal/models"
)

// normalizePair orders two participant IDs so that the same unordered pair
// always maps to the same (low, high) columns. This is what makes the
// (user_low, user_high, product_key) unique index order-independent.
func normalizePair(a, b uuid.UUID) (uuid.UUID, uuid.UUID, error) {
	if a == b {
		return uuid.Nil, uuid.Nil, ErrInvalidParticipants
	}
	if a.String() < b.String() {
		return a, b, nil
	}
	return b, a, nil
}

// productKey collapses "no product" to the zero UUID so it can take part in
// the unique index (a nullable column would let duplicates through).
func productKey(relatedProductID *uuid.UUID) uuid.UUID {
	if relatedProductID == nil {
		return uuid.Nil
	}
	return *relatedProductID
}

// GetOrCreateConversation returns the conversation for the given unordered
// user pair and product value, creating it (with both participant rows) if
// none exists. The lookup and insert run in one transaction and the insert
// goes through ON CONFLICT on the dedup index, so concurrent first-contact
// calls settle on a single row.
func (db *PostgresDB) GetOrCreateConversation(userA, userB uuid.UUID, relatedProductID *uuid.UUID) (*models.Conversation, bool, error) {
	userLow, userHigh, err := normalizePair(userA, userB)
	if err != nil {
		return nil, false, err
	}
	key := productKey(relatedProductID)

	tx, err := db.Begin()
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	conv, err := findConversationByKey(tx, userLow, userHigh, key)
	if err != nil && err != sql.ErrNoRows {
		return nil, false, err
	}
	if err == nil {
		if err := tx.Commit(); err != nil {
			return nil, false, err
		}
		return conv, false, nil
	}

	now := time.Now().UTC()
	id := uuid.New()

	var insertedID uuid.UUID
	err = tx.QueryRow(`
		INSERT INTO conversations (id, user_low, user_high, product_key, related_product_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, $6, $6)
		ON CONFLICT (user_low, user_high, product_key) DO NOTHING
		RETURNING id`,
		id, userLow, userHigh, key, relatedProductID, now).Scan(&insertedID)

	if err == sql.ErrNoRows {
		// A concurrent call won the insert; reuse its row.
		conv, err = findConversationByKey(tx, userLow, userHigh, key)
		if err != nil {
			return nil, false, err
		}
		if err := tx.Commit(); err != nil {
			return nil, false, err
		}
		return conv, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	for _, participant := range []uuid.UUID{userA, userB} {
		_, err = tx.Exec(`
			INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (conversation_id, user_id) DO NOTHING`,
			insertedID, participant, now)
		if err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	return &models.Conversation{
		ID:               insertedID,
		RelatedProductID: relatedProductID,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
		Participants:     []uuid.UUID{userA, userB},
	}, true, nil
}

// queryer lets the scan helpers run inside or outside a transaction
type queryer interface {
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

func findConversationByKey(q queryer, userLow, userHigh, key uuid.UUID) (*models.Conversation, error) {
	conv, err := scanConversation(q.QueryRow(`
		SELECT id, COALESCE(title, ''), related_product_id, is_active, created_at, updated_at, last_message_at
		FROM conversations
		WHERE user_low = $1 AND user_high = $2 AND product_key = $3`,
		userLow, userHigh, key))
	if err != nil {
		return nil, err
	}
	if err := loadParticipants(q, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func scanConversation(row *sql.Row) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var relatedProduct uuid.NullUUID
	var lastMessageAt sql.NullTime

	err := row.Scan(&conv.ID, &conv.Title, &relatedProduct, &conv.IsActive,
		&conv.CreatedAt, &conv.UpdatedAt, &lastMessageAt)
	if err != nil {
		return nil, err
	}

	if relatedProduct.Valid {
		conv.RelatedProductID = &relatedProduct.UUID
	}
	if lastMessageAt.Valid {
		conv.LastMessageAt = &lastMessageAt.Time
	}
	return conv, nil
}

func loadParticipants(q queryer, conv *models.Conversation) error {
	rows, err := q.Query(`
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY joined_at, user_id`, conv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	conv.Participants = conv.Participants[:0]
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return err
		}
		conv.Participants = append(conv.Participants, userID)
	}
	return rows.Err()
}

func (db *PostgresDB) GetConversationByID(id uuid.UUID) (*models.Conversation, error) {
	conv, err := scanConversation(db.QueryRow(`
		SELECT id, COALESCE(title, ''), related_product_id, is_active, created_at, updated_at, last_message_at
		FROM conversations WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := loadParticipants(db.DB, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// ListConversations returns the user's conversations newest-activity first,
// each carrying its unread count for that user.
func (db *PostgresDB) ListConversations(userID uuid.UUID) ([]*models.Conversation, error) {
	rows, err := db.Query(`
		SELECT c.id, COALESCE(c.title, ''), c.related_product_id, c.is_active,
		       c.created_at, c.updated_at, c.last_message_at,
		       c.user_low, c.user_high,
		       (SELECT COUNT(*) FROM messages m
		        WHERE m.conversation_id = c.id
		          AND m.sender_id != $1
		          AND m.is_read = false
		          AND m.is_deleted = false) AS unread_count
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE cp.user_id = $1
		ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		conv := &models.Conversation{}
		var relatedProduct uuid.NullUUID
		var lastMessageAt sql.NullTime
		var userLow, userHigh uuid.UUID

		err := rows.Scan(&conv.ID, &conv.Title, &relatedProduct, &conv.IsActive,
			&conv.CreatedAt, &conv.UpdatedAt, &lastMessageAt,
			&userLow, &userHigh, &conv.UnreadCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}

		if relatedProduct.Valid {
			conv.RelatedProductID = &relatedProduct.UUID
		}
		if lastMessageAt.Valid {
			conv.LastMessageAt = &lastMessageAt.Time
		}
		conv.Participants = []uuid.UUID{userLow, userHigh}
		conversations = append(conversations, conv)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return conversations, nil
}

// GetOtherParticipant resolves the counterpart of userID in a two-party
// conversation. The pair lives on the conversation row itself, which keeps
// this deterministic.
func (db *PostgresDB) GetOtherParticipant(conversationID, userID uuid.UUID) (uuid.UUID, error) {
	var userLow, userHigh uuid.UUID
	err := db.QueryRow(`
		SELECT user_low, user_high FROM conversations WHERE id = $1`,
		conversationID).Scan(&userLow, &userHigh)
	if err == sql.ErrNoRows {
		return uuid.Nil, ErrConversationNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}

	switch userID {
	case userLow:
		return userHigh, nil
	case userHigh:
		return userLow, nil
	default:
		return uuid.Nil, ErrNotAParticipant
	}
}

func (db *PostgresDB) SetConversationActive(conversationID uuid.UUID, active bool) error {
	result, err := db.Exec(`
		UPDATE conversations SET is_active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), conversationID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (db *PostgresDB) GetParticipant(conversationID, userID uuid.UUID) (*models.ConversationParticipant, error) {
	p := &models.ConversationParticipant{}
	var lastReadAt sql.NullTime
	err := db.QueryRow(`
		SELECT conversation_id, user_id, is_muted, is_archived, is_blocked, last_read_at, joined_at
		FROM conversation_participants
		WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID).Scan(
		&p.ConversationID, &p.UserID, &p.IsMuted, &p.IsArchived, &p.IsBlocked,
		&lastReadAt, &p.JoinedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotAParticipant
	}
	if err != nil {
		return nil, err
	}

	if lastReadAt.Valid {
		p.LastReadAt = &lastReadAt.Time
	}
	return p, nil
}

// setParticipantFlag updates one settings column on the caller's own
// participant row. The column name is fixed by the exported wrappers, never
// caller input.
func (db *PostgresDB) setParticipantFlag(column string, conversationID, userID uuid.UUID, value bool) error {
	query := fmt.Sprintf(`
		UPDATE conversation_participants SET %s = $1
		WHERE conversation_id = $2 AND user_id = $3`, column)

	result, err := db.Exec(query, value, conversationID, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotAParticipant
	}
	return nil
}

func (db *PostgresDB) MuteConversation(conversationID, userID uuid.UUID, muted bool) error {
	return db.setParticipantFlag("is_muted", conversationID, userID, muted)
}

func (db *PostgresDB) ArchiveConversation(conversationID, userID uuid.UUID, archived bool) error {
	return db.setParticipantFlag("is_archived", conversationID, userID, archived)
}

func (db *PostgresDB) BlockConversation(conversationID, userID uuid.UUID, blocked bool) error {
	return db.setParticipantFlag("is_blocked", conversationID, userID, blocked)
}

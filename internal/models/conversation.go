package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a two-party thread, optionally tied to a marketplace product.
// At most one conversation exists per unordered user pair and product value
// (including "no product"); the unique index in migrations/schema.sql enforces it.
type Conversation struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title,omitempty"`
	RelatedProductID *uuid.UUID `json:"related_product_id,omitempty"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	LastMessageAt    *time.Time `json:"last_message_at,omitempty"`

	// Participant user IDs, ordered by join time
	Participants []uuid.UUID `json:"participants"`

	// Populated for API responses
	OtherParticipant *UserResponse `json:"other_participant,omitempty"`
	UnreadCount      int           `json:"unread_count"`
	LastMessage      *Message      `json:"last_message,omitempty"`
}

// ConversationParticipant holds per-user settings and read position on a
// conversation. One row per (conversation, user), created when the user joins
// and updated in place afterwards.
type ConversationParticipant struct {
	ConversationID uuid.UUID  `json:"conversation_id"`
	UserID         uuid.UUID  `json:"user_id"`
	IsMuted        bool       `json:"is_muted"`
	IsArchived     bool       `json:"is_archived"`
	IsBlocked      bool       `json:"is_blocked"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
	JoinedAt       time.Time  `json:"joined_at"`
}

// ConversationCreateRequest starts (or resumes) a conversation. Either
// other_user_id or related_product_id must be given; with a product the other
// party is the product's seller, resolved by the catalog collaborator upstream.
type ConversationCreateRequest struct {
	OtherUserID      *uuid.UUID `json:"other_user_id,omitempty"`
	RelatedProductID *uuid.UUID `json:"related_product_id,omitempty"`
	Title            string     `json:"title,omitempty"`
	InitialMessage   string     `json:"initial_message,omitempty"`
}

// ParticipantSettingRequest toggles one of the per-participant flags
type ParticipantSettingRequest struct {
	Value bool `json:"value"`
}

// ConversationActiveRequest opens or archives the whole conversation
type ConversationActiveRequest struct {
	IsActive bool `json:"is_active"`
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageType discriminates the payload carried by a message.
type MessageType string

const (
	MessageTypeText           MessageType = "text"
	MessageTypeImage          MessageType = "image"
	MessageTypeSystem         MessageType = "system"
	MessageTypeProductInquiry MessageType = "product_inquiry"
	MessageTypePriceOffer     MessageType = "price_offer"
	MessageTypeMeetingRequest MessageType = "meeting_request"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeSystem,
		MessageTypeProductInquiry, MessageTypePriceOffer, MessageTypeMeetingRequest:
		return true
	}
	return false
}

// RequiresContent reports whether messages of this type must carry non-empty
// text content. Image messages may carry only the image reference.
func (t MessageType) RequiresContent() bool {
	return t != MessageTypeImage
}

var (
	ErrInvalidAmount = errors.New("offer amount must be greater than zero")
	ErrEmptyLocation = errors.New("meetup location cannot be empty")
	ErrMissingTime   = errors.New("meetup time is required")
)

// MessageMetadata is the structured payload for special message types.
// Only the fields matching the message type are set: OfferAmount for price
// offers, Location and SuggestedTime for meeting requests. It is stored as a
// single jsonb column.
type MessageMetadata struct {
	OfferAmount   *float64   `json:"offer_amount,omitempty"`
	Location      string     `json:"location,omitempty"`
	SuggestedTime *time.Time `json:"suggested_time,omitempty"`
}

// Value implements driver.Valuer so the metadata can be written to a jsonb column.
func (m MessageMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for reading the jsonb column back.
func (m *MessageMetadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
}

// Message represents a single message within a conversation
type Message struct {
	ID             uuid.UUID        `json:"id"`
	ConversationID uuid.UUID        `json:"conversation_id"`
	SenderID       uuid.UUID        `json:"sender_id"`
	Type           MessageType      `json:"message_type"`
	Content        string           `json:"content"`
	ImageURL       string           `json:"image_url,omitempty"`
	Metadata       *MessageMetadata `json:"metadata,omitempty"`
	IsRead         bool             `json:"is_read"`
	IsEdited       bool             `json:"is_edited"`
	IsDeleted      bool             `json:"is_deleted"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`

	// Populated for API responses
	Sender *UserResponse `json:"sender,omitempty"`
}

// DeletedPlaceholder is what clients see instead of a soft-deleted message's text.
const DeletedPlaceholder = "This message was deleted"

// Redact strips the content of a soft-deleted message before it leaves the
// server. The row itself, and its position in the conversation, survive.
func (m *Message) Redact() {
	if !m.IsDeleted {
		return
	}
	m.Content = DeletedPlaceholder
	m.ImageURL = ""
	m.Metadata = nil
}

// MessageDraft is a validated, not-yet-persisted message produced by the
// structured builders. Persistence goes through the message log's PostMessage,
// which re-checks participant and active-conversation preconditions.
type MessageDraft struct {
	Type     MessageType
	Content  string
	ImageURL string
	Metadata *MessageMetadata
}

// NewPriceOffer builds a price-offer draft. The amount must be positive; when
// no note is given the content embeds the amount the way the client renders it.
func NewPriceOffer(amount float64, note string) (*MessageDraft, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	content := strings.TrimSpace(note)
	if content == "" {
		content = fmt.Sprintf("I'd like to offer R%.2f for this item.", amount)
	}

	return &MessageDraft{
		Type:     MessageTypePriceOffer,
		Content:  content,
		Metadata: &MessageMetadata{OfferAmount: &amount},
	}, nil
}

// NewMeetupRequest builds a meeting-request draft. Location must be non-empty
// and a suggested time must be set; past times are accepted.
func NewMeetupRequest(location string, suggestedTime time.Time, note string) (*MessageDraft, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, ErrEmptyLocation
	}
	if suggestedTime.IsZero() {
		return nil, ErrMissingTime
	}

	content := strings.TrimSpace(note)
	if content == "" {
		content = fmt.Sprintf("Let's meet at %s", location)
	}

	return &MessageDraft{
		Type:    MessageTypeMeetingRequest,
		Content: content,
		Metadata: &MessageMetadata{
			Location:      location,
			SuggestedTime: &suggestedTime,
		},
	}, nil
}

// MessageRequest is the structure for plain message creation requests
type MessageRequest struct {
	Content  string           `json:"content"`
	Type     MessageType      `json:"message_type"`
	ImageURL string           `json:"image_url,omitempty"`
	Metadata *MessageMetadata `json:"metadata,omitempty"`
}

// MessageEditRequest carries the replacement content for an edit
type MessageEditRequest struct {
	Content string `json:"content" binding:"required"`
}

// PriceOfferRequest is the request body for sending a price offer
type PriceOfferRequest struct {
	OfferAmount float64 `json:"offer_amount" binding:"required"`
	Message     string  `json:"message,omitempty"`
}

// MeetupRequest is the request body for sending a meeting request
type MeetupRequest struct {
	Location      string    `json:"location" binding:"required"`
	SuggestedTime time.Time `json:"suggested_time" binding:"required"`
	Message       string    `json:"message,omitempty"`
}

// MessageAttachment is an extra file hung off a message. Storage of the file
// itself is external; we keep only the reference and bookkeeping fields.
type MessageAttachment struct {
	ID        uuid.UUID `json:"id"`
	MessageID uuid.UUID `json:"message_id"`
	FileURL   string    `json:"file_url"`
	FileName  string    `json:"file_name"`
	FileSize  int64     `json:"file_size"`
	FileType  string    `json:"file_type"`
	CreatedAt time.Time `json:"created_at"`
}

// AttachmentRequest is the request body for attaching a file to a message
type AttachmentRequest struct {
	FileURL  string `json:"file_url" binding:"required"`
	FileName string `json:"file_name" binding:"required"`
	FileSize int64  `json:"file_size" binding:"required"`
	FileType string `json:"file_type" binding:"required"`
}

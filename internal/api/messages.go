package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/varsitymarket/backend/internal/database"
	"github.com/varsitymarket/backend/internal/models"
)

// MessageHandler handles per-message routes
type MessageHandler struct {
	DB database.DBInterface
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(db database.DBInterface) *MessageHandler {
	return &MessageHandler{DB: db}
}

// EditMessage replaces the content of the caller's own message
func (h *MessageHandler) EditMessage(c *gin.Context) {
	userUUID, messageID, ok := messageScope(c)
	if !ok {
		return
	}

	var req models.MessageEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.DB.EditMessage(messageID, userUUID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, message)
}

// DeleteMessage soft-deletes the caller's own message. The row stays; later
// reads see a redacted placeholder.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userUUID, messageID, ok := messageScope(c)
	if !ok {
		return
	}

	if err := h.DB.SoftDeleteMessage(messageID, userUUID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkMessageAsRead marks a single message as read for the caller. Senders
// cannot mark their own messages; repeated calls keep the first read_at.
func (h *MessageHandler) MarkMessageAsRead(c *gin.Context) {
	userUUID, messageID, ok := messageScope(c)
	if !ok {
		return
	}

	message, err := h.DB.GetMessageByID(messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	// Only participants of the owning conversation may touch read state
	if _, err := h.DB.GetParticipant(message.ConversationID, userUUID); err != nil {
		respondError(c, err)
		return
	}

	if err := h.DB.MarkMessageRead(messageID, userUUID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": "Message marked as read"})
}

// CreateAttachment hangs an uploaded file reference off a message
func (h *MessageHandler) CreateAttachment(c *gin.Context) {
	userUUID, messageID, ok := messageScope(c)
	if !ok {
		return
	}

	message, err := h.DB.GetMessageByID(messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.DB.GetParticipant(message.ConversationID, userUUID); err != nil {
		respondError(c, err)
		return
	}

	var req models.AttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attachment, err := h.DB.CreateAttachment(messageID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attachment)
}

// ListAttachments returns a message's attachments
func (h *MessageHandler) ListAttachments(c *gin.Context) {
	userUUID, messageID, ok := messageScope(c)
	if !ok {
		return
	}

	message, err := h.DB.GetMessageByID(messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.DB.GetParticipant(message.ConversationID, userUUID); err != nil {
		respondError(c, err)
		return
	}

	attachments, err := h.DB.ListAttachments(messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, attachments)
}

func messageScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}

	messageID, err := uuid.Parse(c.Param("messageID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return uuid.Nil, uuid.Nil, false
	}

	return userID.(uuid.UUID), messageID, true
}

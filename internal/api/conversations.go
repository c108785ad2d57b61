package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/varsitymarket/backend/internal/config"
	"github.com/varsitymarket/backend/internal/database"
	"github.com/varsitymarket/backend/internal/models"
)

// ConversationHandler handles conversation-level routes
type ConversationHandler struct {
	DB  database.DBInterface
	Cfg config.ChatConfig
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(db database.DBInterface, cfg config.ChatConfig) *ConversationHandler {
	return &ConversationHandler{DB: db, Cfg: cfg}
}

// ListConversations returns the authenticated user's conversations, newest
// activity first, each with its unread count and the other participant.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userUUID := userID.(uuid.UUID)

	conversations, err := h.DB.ListConversations(userUUID)
	if err != nil {
		respondError(c, err)
		return
	}

	for _, conv := range conversations {
		h.attachOtherParticipant(conv, userUUID)
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// CreateConversation starts a conversation with another user, optionally
// about a product, reusing the existing one when the pair+product already
// has a thread.
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userUUID := userID.(uuid.UUID)

	var req models.ConversationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.OtherUserID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "other_user_id is required"})
		return
	}

	// Make sure the counterpart actually exists before opening a thread
	if _, err := h.DB.GetUserByID(*req.OtherUserID); err != nil {
		respondError(c, err)
		return
	}

	conversation, created, err := h.DB.GetOrCreateConversation(userUUID, *req.OtherUserID, req.RelatedProductID)
	if err != nil {
		respondError(c, err)
		return
	}

	if created && req.InitialMessage != "" {
		msgType := models.MessageTypeText
		if req.RelatedProductID != nil {
			msgType = models.MessageTypeProductInquiry
		}
		_, err := h.DB.PostMessage(conversation.ID, userUUID, &models.MessageDraft{
			Type:    msgType,
			Content: req.InitialMessage,
		})
		if err != nil {
			respondError(c, err)
			return
		}
	}

	h.attachOtherParticipant(conversation, userUUID)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"conversation": conversation,
		"created":      created,
	})
}

// GetConversation returns one conversation with its latest page of messages,
// marking everything visible as read for the requester.
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	userUUID, conversationID, ok := h.conversationScope(c)
	if !ok {
		return
	}

	conversation, err := h.DB.GetConversationByID(conversationID)
	if err != nil {
		respondError(c, err)
		return
	}

	if !isParticipant(conversation, userUUID) {
		// Spec-wise the caller lacks visibility, not just permission
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	if err := h.DB.MarkConversationRead(conversationID, userUUID); err != nil {
		respondError(c, err)
		return
	}

	messages, err := h.DB.ListMessages(conversationID, h.Cfg.PageSize, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	h.attachOtherParticipant(conversation, userUUID)

	c.JSON(http.StatusOK, gin.H{
		"conversation": conversation,
		"messages":     messages,
		"has_more":     len(messages) == h.Cfg.PageSize,
	})
}

// ListMessages serves older pages of a conversation via a message-id cursor.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	userUUID, conversationID, ok := h.conversationScope(c)
	if !ok {
		return
	}

	if _, err := h.DB.GetParticipant(conversationID, userUUID); err != nil {
		respondError(c, err)
		return
	}

	var before *uuid.UUID
	if raw := c.Query("before"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
			return
		}
		before = &parsed
	}

	messages, err := h.DB.ListMessages(conversationID, h.Cfg.PageSize, before)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"has_more": len(messages) == h.Cfg.PageSize,
	})
}

// SendMessage posts a plain message to a conversation
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	userUUID, conversationID, ok := h.conversationScope(c)
	if !ok {
		return
	}

	var req models.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Content) > h.Cfg.MaxContentLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message content too long"})
		return
	}

	message, err := h.DB.PostMessage(conversationID, userUUID, &models.MessageDraft{
		Type:     req.Type,
		Content:  req.Content,
		ImageURL: req.ImageURL,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// SendPriceOffer posts a structured price-offer message
func (h *ConversationHandler) SendPriceOffer(c *gin.Context) {
	userUUID, conversationID, ok := h.conversationScope(c)
	if !ok {
		return
	}

	var req models.PriceOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Message) > h.Cfg.MaxNoteLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Offer note too long"})
		return
	}

	draft, err := models.NewPriceOffer(req.OfferAmount, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	message, err := h.DB.PostMessage(conversationID, userUUID, draft)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// SendMeetupRequest posts a structured meeting-request message
func (h *ConversationHandler) SendMeetupRequest(c *gin.Context) {
	userUUID, conversationID, ok := h.conversationScope(c)
	if !ok {
		return
	}

	var req models.MeetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Message) > h.Cfg.MaxNoteLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Meetup note too long"})
		return
	}

	draft, err := models.NewMeetupRequest(req.Location, req.SuggestedTime, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	message, err := h.DB.PostMessage(conversationID, userUUID, draft)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// MarkAllRead marks every message from the other participant as read
func (h *ConversationHandler) MarkAllRead(c *gin.Context) {
	userUUID, conversationID, ok := h.conversationScope(c)
	if !ok {
		return
	}

	if err := h.DB.MarkConversationRead(conversationID, userUUID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": "Messages marked as read"})
}

// UnreadCount returns the unread count within one conversation
func (h *ConversationHandler) UnreadCount(c *gin.Context) {
	userUUID, conversationID, ok := h.conversationScope(c)
	if !ok {
		return
	}

	count, err := h.DB.UnreadCount(conversationID, userUUID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// TotalUnreadCount returns the user's unread count across all conversations
func (h *ConversationHandler) TotalUnreadCount(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	count, err := h.DB.TotalUnreadCount(userID.(uuid.UUID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// SetActive opens or archives the conversation as a whole. Restricted to
// participants; history is never destroyed.
func (h *ConversationHandler) SetActive(c *gin.Context) {
	userUUID, conversationID, ok := h.conversationScope(c)
	if !ok {
		return
	}

	var req models.ConversationActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.DB.GetParticipant(conversationID, userUUID); err != nil {
		respondError(c, err)
		return
	}

	if err := h.DB.SetConversationActive(conversationID, req.IsActive); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"is_active": req.IsActive})
}

// Mute toggles the caller's own mute flag
func (h *ConversationHandler) Mute(c *gin.Context) {
	h.setParticipantFlag(c, h.DB.MuteConversation)
}

// Archive toggles the caller's own archive flag
func (h *ConversationHandler) Archive(c *gin.Context) {
	h.setParticipantFlag(c, h.DB.ArchiveConversation)
}

// Block toggles the caller's own block flag
func (h *ConversationHandler) Block(c *gin.Context) {
	h.setParticipantFlag(c, h.DB.BlockConversation)
}

func (h *ConversationHandler) setParticipantFlag(c *gin.Context, setter func(conversationID, userID uuid.UUID, value bool) error) {
	userUUID, conversationID, ok := h.conversationScope(c)
	if !ok {
		return
	}

	var req models.ParticipantSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := setter(conversationID, userUUID, req.Value); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"value": req.Value})
}

// conversationScope extracts the authenticated user and the :conversationID
// path parameter, writing the error response itself when either is missing.
func (h *ConversationHandler) conversationScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}

	conversationID, err := uuid.Parse(c.Param("conversationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return uuid.Nil, uuid.Nil, false
	}

	return userID.(uuid.UUID), conversationID, true
}

func isParticipant(conv *models.Conversation, userID uuid.UUID) bool {
	for _, p := range conv.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// attachOtherParticipant fills in the counterpart's public profile for
// display. Lookup failures leave the field empty rather than failing the
// whole request.
func (h *ConversationHandler) attachOtherParticipant(conv *models.Conversation, userID uuid.UUID) {
	for _, p := range conv.Participants {
		if p == userID {
			continue
		}
		user, err := h.DB.GetUserByID(p)
		if err != nil {
			return
		}
		conv.OtherParticipant = &models.UserResponse{
			ID:          user.ID,
			Username:    user.Username,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			AvatarURL:   user.AvatarURL,
			CreatedAt:   user.CreatedAt,
		}
		return
	}
}

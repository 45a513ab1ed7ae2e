package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/service"
	"messaging-service/internal/telemetry"
)

// MessageHandler exposes the message endpoints.
type MessageHandler struct {
	svc   service.API
	audit *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(svc service.API, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{svc: svc, audit: audit}
}

// ListMessages returns one page of the thread's visible history.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	page, err := h.svc.ListMessages(c.Request.Context(), service.ListMessagesInput{
		ConversationID: conversationID,
		RequesterID:    callerID(c),
		Limit:          limit,
		Cursor:         c.Query("cursor"),
		Order:          c.Query("order"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"messages": page.Messages, "total": page.Total}
	if page.NextCursor != "" {
		resp["next_cursor"] = page.NextCursor
	}
	c.JSON(http.StatusOK, resp)
}

// PostMessage appends a message to the thread. A receiver_id in the body is
// accepted for wire compatibility and ignored: the receiver is always the
// other participant.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}

	var req struct {
		Body       string `json:"body" binding:"required"`
		MsgType    string `json:"msg_type"`
		ReceiverID int64  `json:"receiver_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": service.CodeValidation, "error": err.Error()})
		return
	}

	msg, conv, err := h.svc.SendMessage(c.Request.Context(), service.SendMessageInput{
		ConversationID: conversationID,
		SenderID:       callerID(c),
		Body:           req.Body,
		MsgType:        req.MsgType,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg, "conversation": conv})
}

// DeleteMessage soft-deletes one message. Repeating the call is a no-op
// success.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := pathID(c, "message_id")
	if !ok {
		return
	}

	conv, err := h.svc.DeleteMessage(c.Request.Context(), messageID, callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "message_deleted",
		fmt.Sprintf("message %d deleted in conversation %d", messageID, conv.ID),
		requestIDFromContext(c), callerIDString(c))
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

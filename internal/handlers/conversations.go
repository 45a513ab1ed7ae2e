package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/service"
	"messaging-service/internal/telemetry"
)

// ConversationHandler exposes the conversation endpoints.
type ConversationHandler struct {
	svc   service.API
	audit *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(svc service.API, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{svc: svc, audit: audit}
}

// ListConversations returns the threads visible to the authenticated user.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := callerID(c)
	role := c.Query("role")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	conversations, err := h.svc.ListConversations(c.Request.Context(), userID, role, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	if conversations == nil {
		conversations = []models.ConversationSummary{}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// StartConversation creates or reuses the thread for a candidate/recruiter
// pair and appends the first message. The caller must be one of the two; the
// side they occupy determines who the message is from.
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	var req struct {
		JobID        int64  `json:"job_id"`
		CandidateID  int64  `json:"candidate_id" binding:"required"`
		RecruiterID  int64  `json:"recruiter_id" binding:"required"`
		FirstMessage string `json:"first_message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": service.CodeValidation, "error": err.Error()})
		return
	}

	userID := callerID(c)
	var senderRole string
	switch userID {
	case req.CandidateID:
		senderRole = models.RoleCandidate
	case req.RecruiterID:
		senderRole = models.RoleRecruiter
	default:
		c.JSON(http.StatusForbidden, gin.H{"code": service.CodeForbidden, "error": "caller is not a participant"})
		return
	}

	conv, msg, created, err := h.svc.CreateOrGetConversation(c.Request.Context(), service.CreateConversationInput{
		JobID:       req.JobID,
		CandidateID: req.CandidateID,
		RecruiterID: req.RecruiterID,
		SenderRole:  senderRole,
		FirstBody:   req.FirstMessage,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if created {
		h.audit.Emit(c.Request.Context(), "INFO", "conversation_created",
			fmt.Sprintf("conversation %d created for job %d", conv.ID, req.JobID),
			requestIDFromContext(c), callerIDString(c))
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"conversation": conv, "message": msg, "created": created})
}

// MarkRead zeroes the caller's unread counter for the thread.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), conversationID, callerID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteConversationForMe hides the thread for the caller only.
func (h *ConversationHandler) DeleteConversationForMe(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}

	if err := h.svc.DeleteConversation(c.Request.Context(), conversationID, callerID(c)); err != nil {
		respondError(c, err)
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "conversation_hidden",
		fmt.Sprintf("conversation %d hidden", conversationID),
		requestIDFromContext(c), callerIDString(c))
	c.Status(http.StatusNoContent)
}

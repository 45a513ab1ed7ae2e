package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/service"
	"messaging-service/internal/storage"
)

const maxAttachmentBytes = 25 << 20

// AttachmentHandler accepts multipart uploads and turns them into image or
// file messages whose body is the stored object's URL.
type AttachmentHandler struct {
	svc   service.API
	store storage.AttachmentStore
}

// NewAttachmentHandler builds an AttachmentHandler.
func NewAttachmentHandler(svc service.API, store storage.AttachmentStore) *AttachmentHandler {
	return &AttachmentHandler{svc: svc, store: store}
}

// Upload stores the file and appends the resulting message.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}

	// Gate before touching the blob store: an outsider must not be able to
	// persist bytes under someone else's conversation.
	if err := h.svc.VerifyParticipant(c.Request.Context(), conversationID, callerID(c)); err != nil {
		respondError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": service.CodeValidation, "error": "multipart field 'file' is required"})
		return
	}
	if header.Size > maxAttachmentBytes {
		c.JSON(http.StatusBadRequest, gin.H{"code": service.CodeValidation, "error": "attachment exceeds the size limit"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": service.CodeValidation, "error": "unreadable attachment"})
		return
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := h.store.Save(c.Request.Context(), conversationID, header.Filename, contentType, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": service.CodeInternal, "error": "failed to store attachment"})
		return
	}

	msgType := models.MessageFile
	if strings.HasPrefix(contentType, "image/") {
		msgType = models.MessageImage
	}

	msg, conv, err := h.svc.SendMessage(c.Request.Context(), service.SendMessageInput{
		ConversationID: conversationID,
		SenderID:       callerID(c),
		Body:           url,
		MsgType:        msgType,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg, "conversation": conv})
}

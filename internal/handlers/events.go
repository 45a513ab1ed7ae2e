package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/notify"
	"messaging-service/internal/service"
)

// InternalEventsHandler lets adjacent subsystems (job matching, profile
// updates) push their own events down a user's channel. Disabled unless
// explicitly enabled and guarded by a shared token.
type InternalEventsHandler struct {
	dispatcher notify.Dispatcher
	token      string
}

// NewInternalEventsHandler builds an InternalEventsHandler.
func NewInternalEventsHandler(dispatcher notify.Dispatcher, token string) *InternalEventsHandler {
	return &InternalEventsHandler{dispatcher: dispatcher, token: token}
}

// Publish pushes one event to the named user's channel.
func (h *InternalEventsHandler) Publish(c *gin.Context) {
	if h.token == "" || c.GetHeader("X-Internal-Token") != h.token {
		c.JSON(http.StatusForbidden, gin.H{"code": service.CodeForbidden, "error": "invalid internal token"})
		return
	}

	var req struct {
		UserID    int64          `json:"user_id" binding:"required"`
		EventType string         `json:"event_type" binding:"required"`
		Payload   map[string]any `json:"payload"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": service.CodeValidation, "error": err.Error()})
		return
	}

	delivered, err := h.dispatcher.NotifyUser(c.Request.Context(), req.UserID, req.EventType, models.UserEvent{
		Payload: req.Payload,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": service.CodeInternal, "error": "failed to dispatch event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}

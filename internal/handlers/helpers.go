package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/service"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func callerID(c *gin.Context) int64 {
	return c.GetInt64("userID")
}

func callerIDString(c *gin.Context) *string {
	if id := callerID(c); id != 0 {
		s := strconv.FormatInt(id, 10)
		return &s
	}
	return nil
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": service.CodeValidation, "error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError translates the service taxonomy into a status plus a stable
// machine-readable code.
func respondError(c *gin.Context, err error) {
	code := service.CodeFor(err)

	status := http.StatusInternalServerError
	message := "internal error"
	switch code {
	case service.CodeValidation:
		status = http.StatusBadRequest
		message = err.Error()
	case service.CodeNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case service.CodeForbidden:
		status = http.StatusForbidden
		message = err.Error()
	case service.CodeTimeout:
		status = http.StatusGatewayTimeout
		message = "store operation timed out"
	case service.CodeTransientStore:
		status = http.StatusServiceUnavailable
		message = "store temporarily unavailable"
	}

	c.JSON(status, gin.H{"code": code, "error": message})
}

package ws

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/presence"
)

// UserSocketHandler upgrades a request into the caller's per-user
// notification channel. Every push event the platform emits for this user
// (new messages, conversation updates, interview and onboarding status
// changes) travels over this single channel.
type UserSocketHandler struct {
	hub       *Hub
	presence  presence.Registry
	jwtSecret string
}

// NewUserSocketHandler constructs a UserSocketHandler.
func NewUserSocketHandler(hub *Hub, registry presence.Registry, jwtSecret string) *UserSocketHandler {
	return &UserSocketHandler{hub: hub, presence: registry, jwtSecret: jwtSecret}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates, upgrades the connection and registers the channel.
func (h *UserSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	token := c.GetHeader("Authorization")
	if token != "" {
		parts := strings.SplitN(token, " ", 2)
		if len(parts) == 2 {
			token = parts[1]
		}
	} else {
		token = c.Query("token")
	}

	userID, err := middleware.ParseUserToken(h.jwtSecret, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := newConnInfo(c.Request, userID, span.SpanContext().TraceID().String())
	h.hub.AddClient(userID, conn, info)
	if err := h.presence.MarkOnline(ctx, userID); err != nil {
		log.Printf("presence mark online failed user_id=%d: %v", userID, err)
	}

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycleEvent(ctx, "ws_connect", info, "")

	// Keep the connection alive; clean up on close. The read loop doubles as
	// a presence heartbeat. Only info and conn cross into the goroutine: the
	// gin context is recycled once Handle returns and must not be touched
	// after that.
	go func() {
		var closeReason string
		defer func() {
			bg := context.Background()
			h.hub.RemoveClient(userID, conn)
			if !h.hub.HasUser(userID) {
				_ = h.presence.MarkOffline(bg, userID)
			}
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			h.publishLifecycleEvent(bg, "ws_disconnect", info, closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
				}
				return
			}
			_ = h.presence.MarkOnline(context.Background(), userID)
		}
	}()
}

func (h *UserSocketHandler) publishLifecycleEvent(ctx context.Context, event string, info ConnInfo, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.users", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		UserID:    info.UserID,
		Payload: map[string]any{
			"conn_id":     info.ConnID,
			"device_id":   info.DeviceID,
			"ip":          info.IP,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
	}, observability.TraceHeaders(info.RequestID, info.TraceID))
}

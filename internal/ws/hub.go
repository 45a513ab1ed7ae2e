package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messaging-service/internal/observability"
)

// Hub maintains the active per-user notification channels. A user may hold
// several connections (multiple tabs or devices); an event is written to all
// of them.
type Hub struct {
	userConns map[int64]map[*websocket.Conn]ConnInfo
	mu        sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		userConns: make(map[int64]map[*websocket.Conn]ConnInfo),
	}
}

// AddClient registers a websocket connection on the user's channel.
func (h *Hub) AddClient(userID int64, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userConns[userID]; !ok {
		h.userConns[userID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.userConns[userID][conn] = info
}

// RemoveClient removes a connection from the user's channel.
func (h *Hub) RemoveClient(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.userConns[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.userConns, userID)
		}
	}
}

// HasUser reports whether the user holds at least one open connection here.
func (h *Hub) HasUser(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

// SendToUser writes the payload to every connection of the user and reports
// whether at least one write succeeded. Failed connections are closed and
// dropped.
func (h *Hub) SendToUser(userID int64, payload []byte) bool {
	h.mu.RLock()
	conns := make(map[*websocket.Conn]ConnInfo, len(h.userConns[userID]))
	for conn, info := range h.userConns[userID] {
		conns[conn] = info
	}
	h.mu.RUnlock()

	delivered := false
	for conn, info := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error user_id=%d conn_id=%s: %v", userID, info.ConnID, err)
			conn.Close()
			h.RemoveClient(userID, conn)
			h.publishWSError(userID, info, err)
			continue
		}
		delivered = true
	}
	return delivered
}

func (h *Hub) publishWSError(userID int64, info ConnInfo, err error) {
	_ = observability.PublishEvent(context.Background(), "ws_events.users", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		UserID:    userID,
		Payload: map[string]any{
			"conn_id":     info.ConnID,
			"device_id":   info.DeviceID,
			"ip":          info.IP,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
	}, observability.TraceHeaders(info.RequestID, info.TraceID))
	observability.IncWSEvent("ws_error")
}

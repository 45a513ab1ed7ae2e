package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/presence"
	"messaging-service/internal/ws"
)

// Dispatcher is the best-effort push contract. A user without an active
// channel is a no-op, not an error; the returned flag reports whether the
// event actually reached a local channel. Callers must never let a dispatch
// failure affect the outcome of the operation that triggered it.
type Dispatcher interface {
	NotifyUser(ctx context.Context, userID int64, eventType string, event models.UserEvent) (bool, error)
}

// ChannelDispatcher pushes events over the per-user websocket channel and
// mirrors them to the AMQP exchange so other service instances (and
// neighboring subsystems consuming the same per-user stream) see them too.
type ChannelDispatcher struct {
	hub      *ws.Hub
	presence presence.Registry
}

// NewChannelDispatcher constructs a ChannelDispatcher.
func NewChannelDispatcher(hub *ws.Hub, registry presence.Registry) *ChannelDispatcher {
	return &ChannelDispatcher{hub: hub, presence: registry}
}

// NotifyUser delivers one event. Local delivery failures and AMQP publish
// failures are logged and counted, never returned as hard errors.
func (d *ChannelDispatcher) NotifyUser(ctx context.Context, userID int64, eventType string, event models.UserEvent) (bool, error) {
	event.Type = eventType
	payload, err := json.Marshal(event)
	if err != nil {
		return false, fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	delivered := d.hub.SendToUser(userID, payload)
	if !delivered {
		online, perr := d.presence.IsOnline(ctx, userID)
		if perr != nil {
			log.Printf("presence lookup failed user_id=%d: %v", userID, perr)
		}
		if !online {
			// No active channel anywhere: a no-op by contract.
			observability.IncNotification(eventType, "no_channel")
			return false, nil
		}
	}

	routingKey := "user_events." + eventType
	if err := observability.PublishEvent(ctx, routingKey, observability.EventEnvelope{
		EventType:      "user_events",
		EventName:      eventType,
		UserID:         userID,
		ConversationID: event.ConversationID,
		MessageID:      event.MessageID,
		Payload:        event,
	}, nil); err != nil {
		log.Printf("event mirror publish failed type=%s user_id=%d: %v", eventType, userID, err)
	}

	result := "pushed"
	if !delivered {
		result = "relayed"
	}
	observability.IncNotification(eventType, result)
	return delivered, nil
}

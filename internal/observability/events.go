package observability

import "context"

// EventEnvelope is the wire form of every event the service mirrors to the
// broker: user pushes, websocket lifecycle, audit backreferences. The id
// fields let consumers route without parsing the payload.
type EventEnvelope struct {
	EventType      string `json:"event_type"`
	EventName      string `json:"event_name"`
	UserID         int64  `json:"user_id,omitempty"`
	ConversationID int64  `json:"conversation_id,omitempty"`
	MessageID      int64  `json:"message_id,omitempty"`
	Payload        any    `json:"payload,omitempty"`
}

// Publisher is the broker seam; internal/rabbitmq provides the real one and
// the noop fallback.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

var defaultPublisher Publisher

// SetPublisher installs the process-wide event mirror.
func SetPublisher(p Publisher) {
	defaultPublisher = p
}

// TraceHeaders builds the correlation headers attached to mirrored events.
func TraceHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

// PublishEvent mirrors one envelope. A nil publisher drops it silently so no
// code path ever depends on the broker being up.
func PublishEvent(ctx context.Context, routingKey string, event EventEnvelope, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}
	return defaultPublisher.Publish(ctx, routingKey, event, headers)
}

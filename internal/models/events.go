package models

// Push event types delivered over the per-user channel. Neighboring
// subsystems (interview, onboarding) reuse the same channel with their own
// event types.
const (
	EventNewMessage          = "new_message"
	EventConversationUpdated = "conversation_updated"
	EventMessageDeleted      = "message_deleted"
	EventConversationRead    = "conversation_read"
)

// UserEvent is the envelope pushed to a user's websocket channel.
type UserEvent struct {
	Type           string   `json:"type"`
	ConversationID int64    `json:"conversation_id,omitempty"`
	Message        *Message `json:"message,omitempty"`
	MessageID      int64    `json:"message_id,omitempty"`
	Payload        any      `json:"payload,omitempty"`
}

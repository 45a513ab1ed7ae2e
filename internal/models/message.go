package models

import (
	"database/sql"
	"time"
)

// Message types.
const (
	MessageText  = "text"
	MessageImage = "image"
	MessageFile  = "file"
)

// Message delivery statuses. Transitions are forward-only:
// sent -> delivered -> read.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Message is one record in the append-only per-conversation log. Rows are
// written once; only status and the soft-delete flags change afterwards.
type Message struct {
	ID             int64         `db:"id" json:"id"`
	ConversationID int64         `db:"conversation_id" json:"conversation_id"`
	SenderID       int64         `db:"sender_id" json:"sender_id"`
	ReceiverID     int64         `db:"receiver_id" json:"receiver_id"`
	Body           string        `db:"body" json:"body"`
	MsgType        string        `db:"msg_type" json:"type"`
	Sequence       int64         `db:"sequence" json:"sequence"`
	Status         string        `db:"status" json:"status"`
	IsDeleted      bool          `db:"is_deleted" json:"is_deleted"`
	DeletedAt      sql.NullTime  `db:"deleted_at" json:"deleted_at"`
	DeletedBy      sql.NullInt64 `db:"deleted_by" json:"deleted_by"`
	SentAt         time.Time     `db:"sent_at" json:"sent_at"`
}

// ValidMessageType reports whether t is one of the supported message types.
func ValidMessageType(t string) bool {
	return t == MessageText || t == MessageImage || t == MessageFile
}

// MessagePage is a page of the conversation history plus the total number of
// non-deleted messages, so clients can render "load older" affordances.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	Total      int64     `json:"total"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

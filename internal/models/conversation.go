package models

import (
	"database/sql"
	"time"
)

// Conversation statuses.
const (
	ConversationActive   = "active"
	ConversationArchived = "archived"
)

// Participant roles within a conversation.
const (
	RoleCandidate = "candidate"
	RoleRecruiter = "recruiter"
)

// Conversation is the single thread between one candidate and one recruiter.
// The aggregate columns (last message, counters) are a denormalized cache over
// the message log; the auditor can rebuild them from messages at any time.
type Conversation struct {
	ID                   int64          `db:"id" json:"id"`
	JobID                int64          `db:"job_id" json:"job_id"`
	CandidateID          int64          `db:"candidate_id" json:"candidate_id"`
	RecruiterID          int64          `db:"recruiter_id" json:"recruiter_id"`
	LastMessageText      string         `db:"last_message_text" json:"last_message_text"`
	LastMessageAt        sql.NullTime   `db:"last_message_at" json:"last_message_at"`
	TotalMessageCount    int64          `db:"total_message_count" json:"total_message_count"`
	CandidateUnreadCount int64          `db:"candidate_unread_count" json:"candidate_unread_count"`
	RecruiterUnreadCount int64          `db:"recruiter_unread_count" json:"recruiter_unread_count"`
	CandidateHiddenAt    sql.NullTime   `db:"candidate_hidden_at" json:"candidate_hidden_at"`
	RecruiterHiddenAt    sql.NullTime   `db:"recruiter_hidden_at" json:"recruiter_hidden_at"`
	LastSequence         int64          `db:"last_sequence" json:"-"`
	Status               string         `db:"status" json:"status"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// RoleOf resolves which side of the conversation the given id occupies.
// Candidate and recruiter ids live in separate registries, so the match is
// unambiguous per conversation (a conversation with itself is rejected at
// creation). Returns "" when the id is not a participant.
func (c Conversation) RoleOf(partyID int64) string {
	switch partyID {
	case c.CandidateID:
		return RoleCandidate
	case c.RecruiterID:
		return RoleRecruiter
	}
	return ""
}

// OtherParty returns the participant opposite to the given role.
func (c Conversation) OtherParty(role string) int64 {
	if role == RoleCandidate {
		return c.RecruiterID
	}
	return c.CandidateID
}

// ConversationSummary is the list projection. Message bodies are excluded on
// purpose so response size stays bounded regardless of history depth.
type ConversationSummary struct {
	ID              int64        `db:"id" json:"conversation_id"`
	JobID           int64        `db:"job_id" json:"job_id"`
	CandidateID     int64        `db:"candidate_id" json:"candidate_id"`
	RecruiterID     int64        `db:"recruiter_id" json:"recruiter_id"`
	LastMessageText string       `db:"last_message_text" json:"last_message_text"`
	LastMessageAt   sql.NullTime `db:"last_message_at" json:"last_message_at"`
	UnreadCount     int64        `db:"unread_count" json:"unread_count"`
	Status          string       `db:"status" json:"status"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

const messageColumns = `id, conversation_id, sender_id, receiver_id, body, msg_type, sequence,
    status, is_deleted, deleted_at, deleted_by, sent_at`

// recomputeAggregatesSQL rebuilds the denormalized columns from the log.
// The counters are a cache, never ground truth; this statement is the single
// source of their definition.
const recomputeAggregatesSQL = `UPDATE conversations SET
        total_message_count = (
            SELECT COUNT(*) FROM messages m
            WHERE m.conversation_id = conversations.id AND m.is_deleted = FALSE),
        candidate_unread_count = (
            SELECT COUNT(*) FROM messages m
            WHERE m.conversation_id = conversations.id AND m.is_deleted = FALSE
              AND m.receiver_id = conversations.candidate_id AND m.status <> 'read'),
        recruiter_unread_count = (
            SELECT COUNT(*) FROM messages m
            WHERE m.conversation_id = conversations.id AND m.is_deleted = FALSE
              AND m.receiver_id = conversations.recruiter_id AND m.status <> 'read'),
        last_message_text = COALESCE((
            SELECT m.body FROM messages m
            WHERE m.conversation_id = conversations.id AND m.is_deleted = FALSE
            ORDER BY m.sent_at DESC, m.sequence DESC LIMIT 1), ''),
        last_message_at = (
            SELECT m.sent_at FROM messages m
            WHERE m.conversation_id = conversations.id AND m.is_deleted = FALSE
            ORDER BY m.sent_at DESC, m.sequence DESC LIMIT 1),
        updated_at = NOW()
    WHERE id = $1
    RETURNING ` + conversationColumns

// appendMessageTx performs the send-side atomic unit inside tx: one UPDATE
// bumps the sequence counter, the total, and the receiver's unread counter
// and refreshes the last-message columns (increment semantics, no
// read-modify-write, so concurrent sends from both parties never lose an
// update), then the message row is inserted with the sequence just assigned.
// A new message also clears both hidden markers so the thread resurfaces for
// a party that had hidden it.
func appendMessageTx(ctx context.Context, tx *sqlx.Tx, conv models.Conversation, senderRole, body, msgType string) (models.Message, models.Conversation, error) {
	senderID := conv.CandidateID
	candidateInc, recruiterInc := 0, 1
	if senderRole == models.RoleRecruiter {
		senderID = conv.RecruiterID
		candidateInc, recruiterInc = 1, 0
	}
	receiverID := conv.OtherParty(senderRole)
	now := time.Now().UTC()

	var updated models.Conversation
	err := tx.QueryRowxContext(ctx, `UPDATE conversations SET
            last_sequence = last_sequence + 1,
            total_message_count = total_message_count + 1,
            last_message_text = $2,
            last_message_at = $3,
            candidate_unread_count = candidate_unread_count + $4,
            recruiter_unread_count = recruiter_unread_count + $5,
            candidate_hidden_at = NULL,
            recruiter_hidden_at = NULL,
            updated_at = $3
        WHERE id = $1
        RETURNING `+conversationColumns,
		conv.ID, body, now, candidateInc, recruiterInc).StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Message{}, models.Conversation{}, fmt.Errorf("apply send aggregates: %w", err)
	}

	var msg models.Message
	err = tx.QueryRowxContext(ctx, `INSERT INTO messages
            (conversation_id, sender_id, receiver_id, body, msg_type, sequence, status, sent_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+messageColumns,
		updated.ID, senderID, receiverID, body, msgType, updated.LastSequence, models.StatusSent, now).StructScan(&msg)
	if err != nil {
		return models.Message{}, models.Conversation{}, fmt.Errorf("insert message: %w", err)
	}

	return msg, updated, nil
}

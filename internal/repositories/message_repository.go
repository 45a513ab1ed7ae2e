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

var ErrMessageNotFound = errors.New("message not found")

// Sort orders accepted by List.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// MessageRepository defines interactions with the append-only message log.
type MessageRepository interface {
	Append(ctx context.Context, conv models.Conversation, senderRole, body, msgType string) (models.Message, models.Conversation, error)
	GetMessage(ctx context.Context, messageID int64) (models.Message, error)
	List(ctx context.Context, conversationID int64, limit int, cursor *PageCursor, order string) ([]models.Message, error)
	CountVisible(ctx context.Context, conversationID int64) (int64, error)
	MarkDelivered(ctx context.Context, messageID int64) error
	SoftDeleteAndRecompute(ctx context.Context, messageID, deletedBy int64) (models.Conversation, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append inserts a message and applies the aggregate update as one
// transaction; both commit or neither does.
func (r *MessageRepo) Append(ctx context.Context, conv models.Conversation, senderRole, body, msgType string) (models.Message, models.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, models.Conversation{}, err
	}
	defer tx.Rollback()

	msg, updated, err := appendMessageTx(ctx, tx, conv, senderRole, body, msgType)
	if err != nil {
		return models.Message{}, models.Conversation{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, models.Conversation{}, err
	}
	return msg, updated, nil
}

// GetMessage retrieves a single message, deleted or not.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// List returns one page of non-deleted messages ordered by the compound
// (sent_at, sequence) key. The compound key keeps the order stable when both
// parties send within the same instant. A cursor anchors "load older"
// pagination at the message it was issued from.
func (r *MessageRepo) List(ctx context.Context, conversationID int64, limit int, cursor *PageCursor, order string) ([]models.Message, error) {
	dir, cmp := "DESC", "<"
	if order == OrderAsc {
		dir, cmp = "ASC", ">"
	}

	query := `SELECT ` + messageColumns + ` FROM messages
        WHERE conversation_id=$1 AND is_deleted=FALSE`
	args := []any{conversationID}
	if cursor != nil {
		query += fmt.Sprintf(` AND (sent_at, sequence) %s ($2, $3)`, cmp)
		args = append(args, cursor.SentAt, cursor.Sequence)
	}
	query += fmt.Sprintf(` ORDER BY sent_at %s, sequence %s LIMIT %d`, dir, dir, limit)

	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, args...)
	return msgs, err
}

// CountVisible counts the non-deleted messages of a conversation.
func (r *MessageRepo) CountVisible(ctx context.Context, conversationID int64) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE conversation_id=$1 AND is_deleted=FALSE`, conversationID)
	return count, err
}

// MarkDelivered upgrades a message from sent to delivered. The guard keeps
// the transition forward-only: a message already read stays read.
func (r *MessageRepo) MarkDelivered(ctx context.Context, messageID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET status=$2 WHERE id=$1 AND status=$3`,
		messageID, models.StatusDelivered, models.StatusSent)
	return err
}

// SoftDeleteAndRecompute flags the message deleted and rebuilds the
// conversation aggregates from the remaining log rows in the same
// transaction, so the last-message columns never point at a deleted body.
func (r *MessageRepo) SoftDeleteAndRecompute(ctx context.Context, messageID, deletedBy int64) (models.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer tx.Rollback()

	var conversationID int64
	err = tx.QueryRowxContext(ctx, `UPDATE messages
        SET is_deleted=TRUE, deleted_at=$2, deleted_by=$3
        WHERE id=$1 AND is_deleted=FALSE
        RETURNING conversation_id`, messageID, time.Now().UTC(), deletedBy).Scan(&conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Conversation{}, err
	}

	var conv models.Conversation
	if err := tx.QueryRowxContext(ctx, recomputeAggregatesSQL, conversationID).StructScan(&conv); err != nil {
		return models.Conversation{}, fmt.Errorf("recompute aggregates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

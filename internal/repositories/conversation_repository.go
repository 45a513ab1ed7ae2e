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

var ErrConversationNotFound = errors.New("conversation not found")

const conversationColumns = `id, job_id, candidate_id, recruiter_id, last_message_text, last_message_at,
    total_message_count, candidate_unread_count, recruiter_unread_count,
    candidate_hidden_at, recruiter_hidden_at, last_sequence, status, created_at, updated_at`

// ConversationRepository abstracts the conversation store. Aggregate columns
// are only ever written through the atomic statements in this package.
type ConversationRepository interface {
	CreateOrGetWithMessage(ctx context.Context, jobID, candidateID, recruiterID int64, senderRole, body, msgType string) (models.Conversation, models.Message, bool, error)
	GetConversation(ctx context.Context, conversationID int64) (models.Conversation, error)
	ListForUser(ctx context.Context, userID int64, role string, limit, offset int) ([]models.ConversationSummary, error)
	HideForParty(ctx context.Context, conversationID int64, role string, hiddenAt time.Time) error
	ResetUnread(ctx context.Context, conversationID int64, readerRole string, readerID int64) (int64, error)
	RecomputeAggregates(ctx context.Context, conversationID int64) (models.Conversation, error)
	ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// CreateOrGetWithMessage finds the conversation for the unordered
// (candidate, recruiter) pair or creates it, then appends the message, all in
// one transaction. Creation is idempotent under concurrent calls: the unique
// pair index makes the losing insert a no-op and the reselect picks up the
// winner's row. jobID is recorded on first contact only and never
// participates in identity.
func (r *ConversationRepo) CreateOrGetWithMessage(ctx context.Context, jobID, candidateID, recruiterID int64, senderRole, body, msgType string) (models.Conversation, models.Message, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, models.Message{}, false, err
	}
	defer tx.Rollback()

	created := true
	var conv models.Conversation
	err = tx.QueryRowxContext(ctx, `INSERT INTO conversations (job_id, candidate_id, recruiter_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (candidate_id, recruiter_id) DO NOTHING
        RETURNING `+conversationColumns, jobID, candidateID, recruiterID).StructScan(&conv)
	if errors.Is(err, sql.ErrNoRows) {
		created = false
		err = tx.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations
            WHERE candidate_id=$1 AND recruiter_id=$2`, candidateID, recruiterID)
	}
	if err != nil {
		return models.Conversation{}, models.Message{}, false, fmt.Errorf("create or get conversation: %w", err)
	}

	msg, conv, err := appendMessageTx(ctx, tx, conv, senderRole, body, msgType)
	if err != nil {
		return models.Conversation{}, models.Message{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return models.Conversation{}, models.Message{}, false, err
	}
	return conv, msg, created, nil
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID int64) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListForUser returns the conversations visible to the user, newest activity
// first. The union covers both sides: rows where the user is the candidate
// and has not hidden the thread, and rows where the user is the recruiter
// likewise. role narrows the union when the same id exists in both
// registries; unread_count is the caller-side counter.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64, role string, limit, offset int) ([]models.ConversationSummary, error) {
	wantCandidate := role == "" || role == models.RoleCandidate
	wantRecruiter := role == "" || role == models.RoleRecruiter

	query := `SELECT id, job_id, candidate_id, recruiter_id, last_message_text, last_message_at,
            CASE WHEN candidate_id=$1 AND $2 THEN candidate_unread_count ELSE recruiter_unread_count END AS unread_count,
            status, updated_at
        FROM conversations
        WHERE (candidate_id=$1 AND $2 AND candidate_hidden_at IS NULL)
           OR (recruiter_id=$1 AND $3 AND recruiter_hidden_at IS NULL)
        ORDER BY updated_at DESC
        LIMIT $4 OFFSET $5`

	var result []models.ConversationSummary
	err := r.db.SelectContext(ctx, &result, query, userID, wantCandidate, wantRecruiter, limit, offset)
	return result, err
}

// HideForParty stamps the caller's own hidden marker. The row and the other
// party's visibility are untouched.
func (r *ConversationRepo) HideForParty(ctx context.Context, conversationID int64, role string, hiddenAt time.Time) error {
	column := "candidate_hidden_at"
	if role == models.RoleRecruiter {
		column = "recruiter_hidden_at"
	}
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET `+column+`=$2 WHERE id=$1`, conversationID, hiddenAt)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// ResetUnread zeroes the reader's unread counter and flips the reader's
// incoming messages to read in one transaction. Repeat calls affect nothing.
// Returns the number of messages transitioned.
func (r *ConversationRepo) ResetUnread(ctx context.Context, conversationID int64, readerRole string, readerID int64) (int64, error) {
	column := "candidate_unread_count"
	if readerRole == models.RoleRecruiter {
		column = "recruiter_unread_count"
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET `+column+`=0 WHERE id=$1`, conversationID); err != nil {
		return 0, err
	}

	// Forward-only transition: already-read rows stay read.
	res, err := tx.ExecContext(ctx, `UPDATE messages SET status=$3
        WHERE conversation_id=$1 AND receiver_id=$2 AND status<>$3 AND is_deleted=FALSE`,
		conversationID, readerID, models.StatusRead)
	if err != nil {
		return 0, err
	}
	transitioned, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return transitioned, nil
}

// RecomputeAggregates rebuilds every aggregate column from the message log in
// a single statement: total and unread counters from the non-deleted rows,
// last message from the newest remaining one (empty-string sentinel when the
// log is empty). Shared by message deletion and the auditor.
func (r *ConversationRepo) RecomputeAggregates(ctx context.Context, conversationID int64) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.QueryRowxContext(ctx, recomputeAggregatesSQL, conversationID).StructScan(&conv)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListIDs pages through conversation ids for the auditor.
func (r *ConversationRepo) ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM conversations WHERE id > $1 ORDER BY id LIMIT $2`, afterID, limit)
	return ids, err
}

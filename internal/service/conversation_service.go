package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/notify"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

const (
	maxStoreAttempts = 3
	retryBackoff     = 50 * time.Millisecond

	defaultPageSize = 20
	maxPageSize     = 100
	defaultMsgLimit = 50
	maxMsgLimit     = 200
)

// CreateConversationInput carries the create-or-reuse parameters. SenderRole
// names which side the authenticated caller occupies; the first message is
// attributed to that side.
type CreateConversationInput struct {
	JobID       int64
	CandidateID int64
	RecruiterID int64
	SenderRole  string
	FirstBody   string
}

// SendMessageInput carries a send request. Any caller-supplied receiver hint
// is ignored; the receiver is always recomputed as the other participant.
type SendMessageInput struct {
	ConversationID int64
	SenderID       int64
	Body           string
	MsgType        string
}

// ListMessagesInput parameterizes history pagination.
type ListMessagesInput struct {
	ConversationID int64
	RequesterID    int64
	Limit          int
	Cursor         string
	Order          string
}

// API is the conversation service surface the transport layer depends on.
type API interface {
	CreateOrGetConversation(ctx context.Context, in CreateConversationInput) (models.Conversation, models.Message, bool, error)
	SendMessage(ctx context.Context, in SendMessageInput) (models.Message, models.Conversation, error)
	MarkRead(ctx context.Context, conversationID, readerID int64) error
	DeleteMessage(ctx context.Context, messageID, deletedBy int64) (models.Conversation, error)
	DeleteConversation(ctx context.Context, conversationID, deletedBy int64) error
	ListConversations(ctx context.Context, userID int64, role string, page, pageSize int) ([]models.ConversationSummary, error)
	ListMessages(ctx context.Context, in ListMessagesInput) (models.MessagePage, error)
	VerifyParticipant(ctx context.Context, conversationID, partyID int64) error
}

// ConversationService orchestrates the message log and the conversation
// store. It is the sole writer of conversation aggregate fields; every write
// path commits the log row and the aggregate update as one unit.
type ConversationService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	identities    repositories.IdentityRepository
	dispatcher    notify.Dispatcher
	storeTimeout  time.Duration
}

// NewConversationService builds the service.
func NewConversationService(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	identities repositories.IdentityRepository,
	dispatcher notify.Dispatcher,
	storeTimeout time.Duration,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		identities:    identities,
		dispatcher:    dispatcher,
		storeTimeout:  storeTimeout,
	}
}

var _ API = (*ConversationService)(nil)

// CreateOrGetConversation resolves both identities through their role-typed
// registries, then creates or reuses the single thread for the pair and
// appends the message atomically. jobID is informational: a differing job
// never forks a second thread for the same two people.
func (s *ConversationService) CreateOrGetConversation(ctx context.Context, in CreateConversationInput) (models.Conversation, models.Message, bool, error) {
	if in.FirstBody == "" {
		return models.Conversation{}, models.Message{}, false, fmt.Errorf("%w: first message body is required", ErrValidation)
	}
	if in.CandidateID == in.RecruiterID {
		return models.Conversation{}, models.Message{}, false, fmt.Errorf("%w: candidate and recruiter must differ", ErrValidation)
	}
	senderRole := in.SenderRole
	if senderRole == "" {
		senderRole = models.RoleCandidate
	}
	if senderRole != models.RoleCandidate && senderRole != models.RoleRecruiter {
		return models.Conversation{}, models.Message{}, false, fmt.Errorf("%w: unknown sender role %q", ErrValidation, senderRole)
	}

	if err := s.resolvePair(ctx, in.CandidateID, in.RecruiterID); err != nil {
		return models.Conversation{}, models.Message{}, false, err
	}

	var (
		conv    models.Conversation
		msg     models.Message
		created bool
	)
	err := s.withStore(ctx, func(opCtx context.Context) error {
		var err error
		conv, msg, created, err = s.conversations.CreateOrGetWithMessage(opCtx, in.JobID, in.CandidateID, in.RecruiterID, senderRole, in.FirstBody, models.MessageText)
		return err
	})
	if err != nil {
		return models.Conversation{}, models.Message{}, false, err
	}

	observability.IncMessageSent(senderRole)
	s.afterSend(conv, msg)
	return conv, msg, created, nil
}

// SendMessage appends a message to an existing thread. The receiver is the
// other participant, full stop.
func (s *ConversationService) SendMessage(ctx context.Context, in SendMessageInput) (models.Message, models.Conversation, error) {
	if in.Body == "" {
		return models.Message{}, models.Conversation{}, fmt.Errorf("%w: message body is required", ErrValidation)
	}
	msgType := in.MsgType
	if msgType == "" {
		msgType = models.MessageText
	}
	if !models.ValidMessageType(msgType) {
		return models.Message{}, models.Conversation{}, fmt.Errorf("%w: unknown message type %q", ErrValidation, msgType)
	}

	conv, senderRole, err := s.participantRole(ctx, in.ConversationID, in.SenderID)
	if err != nil {
		return models.Message{}, models.Conversation{}, err
	}

	var (
		msg     models.Message
		updated models.Conversation
	)
	err = s.withStore(ctx, func(opCtx context.Context) error {
		var err error
		msg, updated, err = s.messages.Append(opCtx, conv, senderRole, in.Body, msgType)
		return err
	})
	if err != nil {
		return models.Message{}, models.Conversation{}, err
	}

	observability.IncMessageSent(senderRole)
	s.afterSend(updated, msg)
	return msg, updated, nil
}

// MarkRead zeroes the reader's unread counter and flips their incoming
// messages to read. Calling it again with nothing unread changes nothing.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID, readerID int64) error {
	conv, readerRole, err := s.participantRole(ctx, conversationID, readerID)
	if err != nil {
		return err
	}

	var transitioned int64
	err = s.withStore(ctx, func(opCtx context.Context) error {
		var err error
		transitioned, err = s.conversations.ResetUnread(opCtx, conversationID, readerRole, readerID)
		return err
	})
	if err != nil {
		return err
	}

	if transitioned > 0 {
		s.dispatch(conv.OtherParty(readerRole), models.EventConversationRead, models.UserEvent{
			ConversationID: conv.ID,
		})
	}
	return nil
}

// DeleteMessage soft-deletes one message and synchronously recomputes the
// conversation aggregates from the remaining log, so the thread never shows
// a deleted body as its last message.
func (s *ConversationService) DeleteMessage(ctx context.Context, messageID, deletedBy int64) (models.Conversation, error) {
	var msg models.Message
	err := s.withStore(ctx, func(opCtx context.Context) error {
		var err error
		msg, err = s.messages.GetMessage(opCtx, messageID)
		return err
	})
	if err != nil {
		return models.Conversation{}, err
	}

	conv, _, err := s.participantRole(ctx, msg.ConversationID, deletedBy)
	if err != nil {
		return models.Conversation{}, err
	}

	var updated models.Conversation
	err = s.withStore(ctx, func(opCtx context.Context) error {
		var err error
		updated, err = s.messages.SoftDeleteAndRecompute(opCtx, messageID, deletedBy)
		return err
	})
	if errors.Is(err, ErrNotFound) && msg.IsDeleted {
		// Already deleted: idempotent success.
		return conv, nil
	}
	if err != nil {
		return models.Conversation{}, err
	}

	event := models.UserEvent{ConversationID: updated.ID, MessageID: messageID}
	s.dispatch(updated.CandidateID, models.EventMessageDeleted, event)
	s.dispatch(updated.RecruiterID, models.EventMessageDeleted, event)
	return updated, nil
}

// DeleteConversation hides the thread for the caller only. The row stays,
// the other party keeps their view, and a later message resurfaces it.
func (s *ConversationService) DeleteConversation(ctx context.Context, conversationID, deletedBy int64) error {
	_, role, err := s.participantRole(ctx, conversationID, deletedBy)
	if err != nil {
		return err
	}

	return s.withStore(ctx, func(opCtx context.Context) error {
		return s.conversations.HideForParty(opCtx, conversationID, role, time.Now().UTC())
	})
}

// ListConversations returns the caller's visible threads, newest activity
// first. role disambiguates ids registered as both candidate and recruiter.
func (s *ConversationService) ListConversations(ctx context.Context, userID int64, role string, page, pageSize int) ([]models.ConversationSummary, error) {
	if role != "" && role != models.RoleCandidate && role != models.RoleRecruiter {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var result []models.ConversationSummary
	err := s.withStore(ctx, func(opCtx context.Context) error {
		var err error
		result, err = s.conversations.ListForUser(opCtx, userID, role, pageSize, (page-1)*pageSize)
		return err
	})
	return result, err
}

// ListMessages returns one page of non-deleted history plus the total count,
// anchored at the newest message by default.
func (s *ConversationService) ListMessages(ctx context.Context, in ListMessagesInput) (models.MessagePage, error) {
	order := in.Order
	if order == "" {
		order = repositories.OrderDesc
	}
	if order != repositories.OrderAsc && order != repositories.OrderDesc {
		return models.MessagePage{}, fmt.Errorf("%w: unknown order %q", ErrValidation, in.Order)
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultMsgLimit
	}
	if limit > maxMsgLimit {
		limit = maxMsgLimit
	}

	var cursor *repositories.PageCursor
	if in.Cursor != "" {
		decoded, err := repositories.DecodeCursor(in.Cursor)
		if err != nil {
			return models.MessagePage{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		cursor = &decoded
	}

	if _, _, err := s.participantRole(ctx, in.ConversationID, in.RequesterID); err != nil {
		return models.MessagePage{}, err
	}

	var (
		msgs  []models.Message
		total int64
	)
	err := s.withStore(ctx, func(opCtx context.Context) error {
		var err error
		// Fetch one row past the page: its presence is the only reliable
		// signal that more history exists beyond this page.
		msgs, err = s.messages.List(opCtx, in.ConversationID, limit+1, cursor, order)
		if err != nil {
			return err
		}
		total, err = s.messages.CountVisible(opCtx, in.ConversationID)
		return err
	})
	if err != nil {
		return models.MessagePage{}, err
	}

	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	page := models.MessagePage{Messages: msgs, Total: total}
	if hasMore {
		page.NextCursor = repositories.CursorFor(msgs[len(msgs)-1]).Encode()
	}
	return page, nil
}

// VerifyParticipant reports whether partyID belongs to the conversation,
// without exposing anything about it. Callers use it to gate side effects
// (like blob writes) that must not happen for outsiders.
func (s *ConversationService) VerifyParticipant(ctx context.Context, conversationID, partyID int64) error {
	_, _, err := s.participantRole(ctx, conversationID, partyID)
	return err
}

// resolvePair checks both identities against their role-typed registries.
func (s *ConversationService) resolvePair(ctx context.Context, candidateID, recruiterID int64) error {
	return s.withStore(ctx, func(opCtx context.Context) error {
		if _, err := s.identities.ResolveCandidate(opCtx, candidateID); err != nil {
			return fmt.Errorf("candidate %d: %w", candidateID, err)
		}
		if _, err := s.identities.ResolveRecruiter(opCtx, recruiterID); err != nil {
			return fmt.Errorf("recruiter %d: %w", recruiterID, err)
		}
		return nil
	})
}

// participantRole loads the conversation and locates the caller within it.
// Non-participants get Forbidden, never information about the thread.
func (s *ConversationService) participantRole(ctx context.Context, conversationID, partyID int64) (models.Conversation, string, error) {
	var conv models.Conversation
	err := s.withStore(ctx, func(opCtx context.Context) error {
		var err error
		conv, err = s.conversations.GetConversation(opCtx, conversationID)
		return err
	})
	if err != nil {
		return models.Conversation{}, "", err
	}

	role := conv.RoleOf(partyID)
	if role == "" {
		return models.Conversation{}, "", fmt.Errorf("%w: user %d is not a participant of conversation %d", ErrForbidden, partyID, conversationID)
	}
	return conv, role, nil
}

// afterSend fires the post-commit notifications, detached from the request:
// the receiver learns about the new message, both parties get the refreshed
// aggregates. A successful push upgrades the message to delivered.
func (s *ConversationService) afterSend(conv models.Conversation, msg models.Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
		defer cancel()

		delivered, err := s.dispatcher.NotifyUser(ctx, msg.ReceiverID, models.EventNewMessage, models.UserEvent{
			ConversationID: conv.ID,
			Message:        &msg,
		})
		if err != nil {
			log.Printf("notify new_message failed conversation_id=%d message_id=%d: %v", conv.ID, msg.ID, err)
		}
		if delivered {
			if err := s.messages.MarkDelivered(ctx, msg.ID); err != nil {
				log.Printf("mark delivered failed message_id=%d: %v", msg.ID, err)
			}
		}

		update := models.UserEvent{ConversationID: conv.ID}
		for _, userID := range []int64{conv.CandidateID, conv.RecruiterID} {
			if _, err := s.dispatcher.NotifyUser(ctx, userID, models.EventConversationUpdated, update); err != nil {
				log.Printf("notify conversation_updated failed conversation_id=%d user_id=%d: %v", conv.ID, userID, err)
			}
		}
	}()
}

// dispatch is the detached fire-and-forget path for non-send events.
func (s *ConversationService) dispatch(userID int64, eventType string, event models.UserEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
		defer cancel()
		if _, err := s.dispatcher.NotifyUser(ctx, userID, eventType, event); err != nil {
			log.Printf("notify %s failed user_id=%d: %v", eventType, userID, err)
		}
	}()
}

// withStore runs one store operation under a bounded timeout, retrying
// transient infrastructure errors a fixed number of times. The operation
// itself is transactional, so a retry never observes partial state.
func (s *ConversationService) withStore(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxStoreAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		err = classify(op(opCtx))
		cancel()

		if err == nil || !errors.Is(err, ErrTransientStore) {
			return err
		}
		if attempt < maxStoreAttempts {
			observability.IncStoreRetry()
			select {
			case <-time.After(retryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return classify(ctx.Err())
			}
		}
	}
	return err
}

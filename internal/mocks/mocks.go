package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/service"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)

func (m *ConversationRepositoryMock) CreateOrGetWithMessage(ctx context.Context, jobID, candidateID, recruiterID int64, senderRole, body, msgType string) (models.Conversation, models.Message, bool, error) {
	args := m.Called(ctx, jobID, candidateID, recruiterID, senderRole, body, msgType)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	var msg models.Message
	if val := args.Get(1); val != nil {
		msg = val.(models.Message)
	}
	return conv, msg, args.Bool(2), args.Error(3)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, conversationID int64) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID int64, role string, limit, offset int) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID, role, limit, offset)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) HideForParty(ctx context.Context, conversationID int64, role string, hiddenAt time.Time) error {
	args := m.Called(ctx, conversationID, role, hiddenAt)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) ResetUnread(ctx context.Context, conversationID int64, readerRole string, readerID int64) (int64, error) {
	args := m.Called(ctx, conversationID, readerRole, readerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ConversationRepositoryMock) RecomputeAggregates(ctx context.Context, conversationID int64) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	args := m.Called(ctx, afterID, limit)
	var ids []int64
	if val := args.Get(0); val != nil {
		ids = val.([]int64)
	}
	return ids, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)

func (m *MessageRepositoryMock) Append(ctx context.Context, conv models.Conversation, senderRole, body, msgType string) (models.Message, models.Conversation, error) {
	args := m.Called(ctx, conv, senderRole, body, msgType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	var updated models.Conversation
	if val := args.Get(1); val != nil {
		updated = val.(models.Conversation)
	}
	return msg, updated, args.Error(2)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) List(ctx context.Context, conversationID int64, limit int, cursor *repositories.PageCursor, order string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, limit, cursor, order)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) CountVisible(ctx context.Context, conversationID int64) (int64, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) MarkDelivered(ctx context.Context, messageID int64) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) SoftDeleteAndRecompute(ctx context.Context, messageID, deletedBy int64) (models.Conversation, error) {
	args := m.Called(ctx, messageID, deletedBy)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

type IdentityRepositoryMock struct {
	mock.Mock
}

var _ repositories.IdentityRepository = (*IdentityRepositoryMock)(nil)

func (m *IdentityRepositoryMock) ResolveCandidate(ctx context.Context, userID int64) (models.CandidateProfile, error) {
	args := m.Called(ctx, userID)
	var profile models.CandidateProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.CandidateProfile)
	}
	return profile, args.Error(1)
}

func (m *IdentityRepositoryMock) ResolveRecruiter(ctx context.Context, userID int64) (models.RecruiterProfile, error) {
	args := m.Called(ctx, userID)
	var profile models.RecruiterProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.RecruiterProfile)
	}
	return profile, args.Error(1)
}

type ServiceMock struct {
	mock.Mock
}

var _ service.API = (*ServiceMock)(nil)

func (m *ServiceMock) CreateOrGetConversation(ctx context.Context, in service.CreateConversationInput) (models.Conversation, models.Message, bool, error) {
	args := m.Called(ctx, in)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	var msg models.Message
	if val := args.Get(1); val != nil {
		msg = val.(models.Message)
	}
	return conv, msg, args.Bool(2), args.Error(3)
}

func (m *ServiceMock) SendMessage(ctx context.Context, in service.SendMessageInput) (models.Message, models.Conversation, error) {
	args := m.Called(ctx, in)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	var conv models.Conversation
	if val := args.Get(1); val != nil {
		conv = val.(models.Conversation)
	}
	return msg, conv, args.Error(2)
}

func (m *ServiceMock) MarkRead(ctx context.Context, conversationID, readerID int64) error {
	args := m.Called(ctx, conversationID, readerID)
	return args.Error(0)
}

func (m *ServiceMock) DeleteMessage(ctx context.Context, messageID, deletedBy int64) (models.Conversation, error) {
	args := m.Called(ctx, messageID, deletedBy)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ServiceMock) DeleteConversation(ctx context.Context, conversationID, deletedBy int64) error {
	args := m.Called(ctx, conversationID, deletedBy)
	return args.Error(0)
}

func (m *ServiceMock) ListConversations(ctx context.Context, userID int64, role string, page, pageSize int) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID, role, page, pageSize)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

func (m *ServiceMock) VerifyParticipant(ctx context.Context, conversationID, partyID int64) error {
	args := m.Called(ctx, conversationID, partyID)
	return args.Error(0)
}

func (m *ServiceMock) ListMessages(ctx context.Context, in service.ListMessagesInput) (models.MessagePage, error) {
	args := m.Called(ctx, in)
	var page models.MessagePage
	if val := args.Get(0); val != nil {
		page = val.(models.MessagePage)
	}
	return page, args.Error(1)
}

type DispatcherMock struct {
	mock.Mock
}

func (m *DispatcherMock) NotifyUser(ctx context.Context, userID int64, eventType string, event models.UserEvent) (bool, error) {
	args := m.Called(ctx, userID, eventType, event)
	return args.Bool(0), args.Error(1)
}

package auditor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
)

func TestReconcileAllCountsCorrections(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	a := New(conversations, 2)

	conversations.On("ListIDs", mock.Anything, int64(0), 2).Return([]int64{10, 11}, nil).Once()
	conversations.On("ListIDs", mock.Anything, int64(11), 2).Return([]int64{}, nil).Once()

	// Conversation 10 agrees with its log.
	clean := models.Conversation{ID: 10, TotalMessageCount: 5, CandidateUnreadCount: 1, LastMessageText: "ok"}
	conversations.On("GetConversation", mock.Anything, int64(10)).Return(clean, nil).Once()
	conversations.On("RecomputeAggregates", mock.Anything, int64(10)).Return(clean, nil).Once()

	// Conversation 11 drifted: its counter overstates the log.
	drifted := models.Conversation{ID: 11, TotalMessageCount: 9, RecruiterUnreadCount: 4, LastMessageText: "stale"}
	healed := models.Conversation{ID: 11, TotalMessageCount: 7, RecruiterUnreadCount: 2, LastMessageText: "fresh"}
	conversations.On("GetConversation", mock.Anything, int64(11)).Return(drifted, nil).Once()
	conversations.On("RecomputeAggregates", mock.Anything, int64(11)).Return(healed, nil).Once()

	corrected, err := a.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, corrected)
	conversations.AssertExpectations(t)
}

func TestReconcileAllSkipsFailedConversations(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	a := New(conversations, 10)

	conversations.On("ListIDs", mock.Anything, int64(0), 10).Return([]int64{10}, nil).Once()
	conversations.On("ListIDs", mock.Anything, int64(10), 10).Return(nil, nil).Once()
	conversations.On("GetConversation", mock.Anything, int64(10)).Return(nil, assert.AnError).Once()

	corrected, err := a.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, corrected)
	conversations.AssertExpectations(t)
}

func TestNewClampsBatchSize(t *testing.T) {
	a := New(nil, -5)
	assert.Equal(t, 200, a.batch)
}

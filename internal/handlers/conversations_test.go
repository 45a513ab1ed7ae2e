package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/service"
)

func setupRouter(conversations *ConversationHandler, messages *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", int64(1))
		c.Next()
	})
	r.GET("/conversations", conversations.ListConversations)
	r.POST("/conversations", conversations.StartConversation)
	r.POST("/conversations/:conversation_id/read", conversations.MarkRead)
	r.DELETE("/conversations/:conversation_id/me", conversations.DeleteConversationForMe)
	if messages != nil {
		r.GET("/conversations/:conversation_id/messages", messages.ListMessages)
		r.POST("/conversations/:conversation_id/messages", messages.PostMessage)
		r.DELETE("/messages/:message_id", messages.DeleteMessage)
	}
	return r
}

func TestListConversationsSuccess(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), nil)

	svc.On("ListConversations", mock.Anything, int64(1), "candidate", 2, 10).
		Return([]models.ConversationSummary{{ID: 10, UnreadCount: 3}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations?role=candidate&page=2&page_size=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Conversations, 1)
	require.Equal(t, int64(3), resp.Conversations[0].UnreadCount)
	svc.AssertExpectations(t)
}

func TestListConversationsEmptyIsArrayNotNull(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), nil)

	svc.On("ListConversations", mock.Anything, int64(1), "", 1, 0).
		Return(nil, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"conversations":[]`)
	svc.AssertExpectations(t)
}

func TestStartConversationCreated(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), nil)

	svc.On("CreateOrGetConversation", mock.Anything, service.CreateConversationInput{
		JobID: 7, CandidateID: 1, RecruiterID: 2, SenderRole: models.RoleCandidate, FirstBody: "hello",
	}).Return(models.Conversation{ID: 10}, models.Message{ID: 100}, true, nil).Once()

	body := bytes.NewBufferString(`{"job_id":7,"candidate_id":1,"recruiter_id":2,"first_message":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestStartConversationReused(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), nil)

	svc.On("CreateOrGetConversation", mock.Anything, mock.Anything).
		Return(models.Conversation{ID: 10}, models.Message{ID: 101}, false, nil).Once()

	body := bytes.NewBufferString(`{"candidate_id":1,"recruiter_id":2,"first_message":"again"}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"created":false`)
	svc.AssertExpectations(t)
}

func TestStartConversationCallerNotParticipant(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), nil)

	body := bytes.NewBufferString(`{"candidate_id":5,"recruiter_id":6,"first_message":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	svc.AssertNotCalled(t, "CreateOrGetConversation", mock.Anything, mock.Anything)
}

func TestStartConversationMissingBody(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), nil)

	body := bytes.NewBufferString(`{"candidate_id":1,"recruiter_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkReadSuccess(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), nil)

	svc.On("MarkRead", mock.Anything, int64(10), int64(1)).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/10/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestMarkReadNotFound(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), nil)

	svc.On("MarkRead", mock.Anything, int64(10), int64(1)).Return(service.ErrNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/10/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"not_found"`)
	svc.AssertExpectations(t)
}

func TestDeleteConversationForMe(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), nil)

	svc.On("DeleteConversation", mock.Anything, int64(10), int64(1)).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/10/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestDeleteConversationForbidden(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), nil)

	svc.On("DeleteConversation", mock.Anything, int64(10), int64(1)).Return(service.ErrForbidden).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/10/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	svc.AssertExpectations(t)
}

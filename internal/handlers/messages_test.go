package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/service"
)

func TestListMessagesSuccess(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), NewMessageHandler(svc, nil))

	svc.On("ListMessages", mock.Anything, service.ListMessagesInput{
		ConversationID: 10, RequesterID: 1, Limit: 2, Cursor: "abc", Order: "asc",
	}).Return(models.MessagePage{
		Messages:   []models.Message{{ID: 200, Body: "hi"}},
		Total:      5,
		NextCursor: "def",
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/10/messages?limit=2&cursor=abc&order=asc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages   []models.Message `json:"messages"`
		Total      int64            `json:"total"`
		NextCursor string           `json:"next_cursor"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 1)
	require.Equal(t, int64(5), resp.Total)
	require.Equal(t, "def", resp.NextCursor)
	svc.AssertExpectations(t)
}

func TestListMessagesInvalidID(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), NewMessageHandler(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/conversations/abc/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageSuccess(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), NewMessageHandler(svc, nil))

	svc.On("SendMessage", mock.Anything, service.SendMessageInput{
		ConversationID: 10, SenderID: 1, Body: "hello", MsgType: "text",
	}).Return(models.Message{ID: 200, Body: "hello"}, models.Conversation{ID: 10}, nil).Once()

	// receiver_id in the body is ignored: routing follows the thread.
	body := bytes.NewBufferString(`{"body":"hello","msg_type":"text","receiver_id":999}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations/10/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestPostMessageTransientStoreError(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), NewMessageHandler(svc, nil))

	svc.On("SendMessage", mock.Anything, mock.Anything).
		Return(nil, nil, service.ErrTransientStore).Once()

	body := bytes.NewBufferString(`{"body":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations/10/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"transient_store_error"`)
	svc.AssertExpectations(t)
}

func TestPostMessageTimeout(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), NewMessageHandler(svc, nil))

	svc.On("SendMessage", mock.Anything, mock.Anything).
		Return(nil, nil, service.ErrTimeout).Once()

	body := bytes.NewBufferString(`{"body":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations/10/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	svc.AssertExpectations(t)
}

func TestDeleteMessageSuccess(t *testing.T) {
	svc := new(mocks.ServiceMock)
	router := setupRouter(NewConversationHandler(svc, nil), NewMessageHandler(svc, nil))

	svc.On("DeleteMessage", mock.Anything, int64(200), int64(1)).
		Return(models.Conversation{ID: 10, LastMessageText: "previous"}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/200", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"last_message_text":"previous"`)
	svc.AssertExpectations(t)
}

type fakeAttachmentStore struct {
	url    string
	err    error
	called bool
}

func (f *fakeAttachmentStore) Save(ctx context.Context, conversationID int64, filename, contentType string, r io.Reader) (string, error) {
	f.called = true
	if f.err != nil {
		return "", f.err
	}
	io.Copy(io.Discard, r)
	return f.url, nil
}

func (f *fakeAttachmentStore) Close() error { return nil }

func attachmentRequest(t *testing.T, contentType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="cv.png"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	part.Write([]byte("payload"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/conversations/10/attachments", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func setupAttachmentRouter(handler *AttachmentHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", int64(1))
		c.Next()
	})
	r.POST("/conversations/:conversation_id/attachments", handler.Upload)
	return r
}

func TestUploadImageBecomesImageMessage(t *testing.T) {
	svc := new(mocks.ServiceMock)
	store := &fakeAttachmentStore{url: "https://files.example/conversations/10/abc.png"}
	router := setupAttachmentRouter(NewAttachmentHandler(svc, store))

	svc.On("VerifyParticipant", mock.Anything, int64(10), int64(1)).Return(nil).Once()
	svc.On("SendMessage", mock.Anything, service.SendMessageInput{
		ConversationID: 10, SenderID: 1, Body: store.url, MsgType: models.MessageImage,
	}).Return(models.Message{ID: 300, Body: store.url, MsgType: models.MessageImage}, models.Conversation{ID: 10}, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, attachmentRequest(t, "image/png"))

	require.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestUploadDocumentBecomesFileMessage(t *testing.T) {
	svc := new(mocks.ServiceMock)
	store := &fakeAttachmentStore{url: "https://files.example/conversations/10/abc.pdf"}
	router := setupAttachmentRouter(NewAttachmentHandler(svc, store))

	svc.On("VerifyParticipant", mock.Anything, int64(10), int64(1)).Return(nil).Once()
	svc.On("SendMessage", mock.Anything, service.SendMessageInput{
		ConversationID: 10, SenderID: 1, Body: store.url, MsgType: models.MessageFile,
	}).Return(models.Message{ID: 301}, models.Conversation{ID: 10}, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, attachmentRequest(t, "application/pdf"))

	require.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestUploadStoreFailure(t *testing.T) {
	svc := new(mocks.ServiceMock)
	store := &fakeAttachmentStore{err: errors.New("bucket down")}
	router := setupAttachmentRouter(NewAttachmentHandler(svc, store))

	svc.On("VerifyParticipant", mock.Anything, int64(10), int64(1)).Return(nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, attachmentRequest(t, "image/png"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	svc.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestUploadForbiddenForOutsiderWritesNothing(t *testing.T) {
	svc := new(mocks.ServiceMock)
	store := &fakeAttachmentStore{url: "https://files.example/conversations/10/abc.png"}
	router := setupAttachmentRouter(NewAttachmentHandler(svc, store))

	svc.On("VerifyParticipant", mock.Anything, int64(10), int64(1)).
		Return(service.ErrForbidden).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, attachmentRequest(t, "image/png"))

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"forbidden"`)
	require.False(t, store.called, "blob store must not be touched for a non-participant")
	svc.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
	svc.AssertExpectations(t)
}

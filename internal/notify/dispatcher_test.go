package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/presence"
	"messaging-service/internal/ws"
)

type onlineRegistry struct{}

func (onlineRegistry) MarkOnline(ctx context.Context, userID int64) error  { return nil }
func (onlineRegistry) MarkOffline(ctx context.Context, userID int64) error { return nil }
func (onlineRegistry) IsOnline(ctx context.Context, userID int64) (bool, error) {
	return true, nil
}
func (onlineRegistry) Close() error { return nil }

type captureMirror struct {
	routingKey string
	envelope   observability.EventEnvelope
}

func (p *captureMirror) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	p.routingKey = routingKey
	p.envelope, _ = event.(observability.EventEnvelope)
	return nil
}

func TestNotifyUserWithoutChannelIsNoop(t *testing.T) {
	dispatcher := NewChannelDispatcher(ws.NewHub(), presence.NewRegistry("", ""))

	delivered, err := dispatcher.NotifyUser(context.Background(), 42, models.EventNewMessage, models.UserEvent{
		ConversationID: 10,
		Message:        &models.Message{ID: 200, Body: "hi"},
	})
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestNotifyUserMirrorCarriesRoutingIDs(t *testing.T) {
	mirror := &captureMirror{}
	observability.SetPublisher(mirror)
	defer observability.SetPublisher(nil)

	// User is online on another instance: no local channel, so the event
	// travels through the broker mirror only.
	dispatcher := NewChannelDispatcher(ws.NewHub(), onlineRegistry{})

	delivered, err := dispatcher.NotifyUser(context.Background(), 42, models.EventNewMessage, models.UserEvent{
		ConversationID: 10,
		MessageID:      200,
		Message:        &models.Message{ID: 200, Body: "hi"},
	})
	require.NoError(t, err)
	assert.False(t, delivered)

	assert.Equal(t, "user_events.new_message", mirror.routingKey)
	assert.Equal(t, "user_events", mirror.envelope.EventType)
	assert.Equal(t, models.EventNewMessage, mirror.envelope.EventName)
	assert.Equal(t, int64(42), mirror.envelope.UserID)
	assert.Equal(t, int64(10), mirror.envelope.ConversationID)
	assert.Equal(t, int64(200), mirror.envelope.MessageID)
}

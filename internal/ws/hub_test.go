package ws

import (
	"testing"

	"github.com/gorilla/websocket"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient(1, nil, ConnInfo{ConnID: "c1", UserID: 1})
	if !hub.HasUser(1) {
		t.Fatalf("expected user channel to exist")
	}
	if len(hub.userConns) != 1 {
		t.Fatalf("expected one user channel")
	}

	hub.RemoveClient(1, nil)
	if hub.HasUser(1) {
		t.Fatalf("expected user channel to be removed")
	}
	if len(hub.userConns) != 0 {
		t.Fatalf("expected empty hub")
	}
}

func TestHubSecondConnectionKeepsChannelOpen(t *testing.T) {
	hub := NewHub()
	first := new(websocket.Conn)
	second := new(websocket.Conn)

	hub.AddClient(1, first, ConnInfo{ConnID: "c1", UserID: 1})
	hub.AddClient(1, second, ConnInfo{ConnID: "c2", UserID: 1})
	if len(hub.userConns[1]) != 2 {
		t.Fatalf("expected two connections on the channel")
	}

	hub.RemoveClient(1, first)
	if !hub.HasUser(1) {
		t.Fatalf("expected channel to survive while a connection remains")
	}

	hub.RemoveClient(1, second)
	if hub.HasUser(1) {
		t.Fatalf("expected channel gone after the last connection left")
	}
}

func TestSendToUserWithoutChannel(t *testing.T) {
	hub := NewHub()

	if hub.SendToUser(42, []byte(`{"type":"new_message"}`)) {
		t.Fatalf("expected no delivery for a user without connections")
	}
}

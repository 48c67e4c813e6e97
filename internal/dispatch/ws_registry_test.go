package dispatch

import (
	"testing"

	"github.com/gorilla/websocket"

	"github.com/example/trainer-marketplace/internal/logging"
	"github.com/example/trainer-marketplace/internal/models"
)

func registered(r *WSRegistry, trainerID string) *websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[trainerID]
	if !ok {
		return nil
	}
	return s.conn
}

func TestRemoveConnIgnoresStaleConnection(t *testing.T) {
	reg := NewWSRegistry(logging.NewLogger("error"))
	old := &websocket.Conn{}
	fresh := &websocket.Conn{}

	reg.Add("t1", old)
	reg.Add("t1", fresh) // reconnect replaces the session

	reg.RemoveConn("t1", old)
	if got := registered(reg, "t1"); got != fresh {
		t.Fatal("stale connection's removal tore down the new session")
	}

	reg.RemoveConn("t1", fresh)
	if registered(reg, "t1") != nil {
		t.Fatal("current connection's removal should drop the session")
	}
}

func TestNotifyWithoutSession(t *testing.T) {
	reg := NewWSRegistry(logging.NewLogger("error"))
	if err := reg.Notify("t1", models.Notification{Kind: models.NotifySystem}); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

package dispatch

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/trainer-marketplace/internal/models"
)

// WSSession represents a connected trainer app session.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(n)
}

// WSRegistry holds live trainer sessions. New booking requests and
// response receipts are pushed through it.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
	log      *slog.Logger
}

func NewWSRegistry(log *slog.Logger) *WSRegistry {
	return &WSRegistry{sessions: make(map[string]*WSSession), log: log}
}

func (r *WSRegistry) Add(trainerID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[trainerID] = &WSSession{conn: conn}
}

// RemoveConn drops the trainer's session only while it still wraps
// the given connection. A reconnect replaces the session, and the old
// read pump noticing its own close must not tear the new one down.
func (r *WSRegistry) RemoveConn(trainerID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[trainerID]; ok && s.conn == conn {
		delete(r.sessions, trainerID)
	}
}

// Notify pushes a notification to the trainer's session, if any.
func (r *WSRegistry) Notify(trainerID string, n models.Notification) error {
	r.mu.RLock()
	s, ok := r.sessions[trainerID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.Send(n); err != nil {
		r.log.Warn("ws send failed", "trainer", trainerID, "error", err)
		return err
	}
	return nil
}

var ErrNoSession = &NoSessionError{}

type NoSessionError struct{}

func (n *NoSessionError) Error() string { return "no ws session" }

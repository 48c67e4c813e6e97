// Package booking holds the authoritative in-session state of all
// booking requests visible to a trainer, and is the only component
// allowed to mutate a request's status.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/trainer-marketplace/internal/models"
	"github.com/example/trainer-marketplace/internal/observability"
)

var (
	// ErrInvalidTransition is returned for a response against a
	// missing or non-pending request. The store is left untouched.
	ErrInvalidTransition = errors.New("invalid booking transition")
	// ErrTransportFailed means the response could not be delivered.
	// The optimistic status flip is rolled back to pending so stored
	// status keeps reflecting what the client side actually saw.
	ErrTransportFailed = errors.New("booking response transport failed")
)

// Responder delivers the trainer's accept/decline outcome to the
// client-facing side of the marketplace.
type Responder interface {
	Deliver(ctx context.Context, resp models.BookingResponse) error
}

// Archive persists request snapshots outside the session. Best
// effort: archive errors are logged, never surfaced to callers.
type Archive interface {
	SaveRequest(req models.BookingRequest) error
	UpdateRequestStatus(id string, status models.RequestStatus) error
}

type Store struct {
	trainerID string
	responder Responder
	archive   Archive // optional
	log       *slog.Logger

	mu       sync.Mutex
	requests map[string]*models.BookingRequest
	order    []string // ingest order, disambiguates equal createdAt
}

func NewStore(trainerID string, responder Responder, log *slog.Logger) *Store {
	return &Store{
		trainerID: trainerID,
		responder: responder,
		log:       log,
		requests:  make(map[string]*models.BookingRequest),
	}
}

// WithArchive attaches write-through persistence.
func (s *Store) WithArchive(a Archive) *Store {
	s.archive = a
	return s
}

// Ingest appends an externally-created request as pending. A second
// ingest with the same ID is a no-op: the first write wins, so a
// re-delivered notification cannot duplicate or reset a request.
func (s *Store) Ingest(req models.BookingRequest) {
	s.mu.Lock()
	if _, dup := s.requests[req.ID]; dup {
		s.mu.Unlock()
		s.log.Debug("duplicate ingest ignored", "request", req.ID)
		return
	}
	req.Status = models.StatusPending
	if req.TrainerID == "" {
		req.TrainerID = s.trainerID
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	cp := req
	s.requests[req.ID] = &cp
	s.order = append(s.order, req.ID)
	s.mu.Unlock()

	observability.RequestsIngested.Inc()
	if s.archive != nil {
		if err := s.archive.SaveRequest(req); err != nil {
			s.log.Warn("request archive failed", "request", req.ID, "error", err)
		}
	}
}

// Respond resolves a pending request. Validation and the optimistic
// flip happen under one lock, so of two concurrent responses to the
// same request only the first passes validation; the second observes
// a terminal status and fails with ErrInvalidTransition.
func (s *Store) Respond(ctx context.Context, requestID string, action models.ResponseAction, message string) error {
	if action != models.ActionAccept && action != models.ActionDecline {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	next := models.StatusAccepted
	if action == models.ActionDecline {
		next = models.StatusDeclined
	}

	s.mu.Lock()
	req, ok := s.requests[requestID]
	if !ok {
		s.mu.Unlock()
		observability.BookingResponses.WithLabelValues(string(action), "invalid").Inc()
		return fmt.Errorf("%w: request %s not found", ErrInvalidTransition, requestID)
	}
	if req.Status != models.StatusPending {
		s.mu.Unlock()
		observability.BookingResponses.WithLabelValues(string(action), "invalid").Inc()
		return fmt.Errorf("%w: request %s is %s", ErrInvalidTransition, requestID, req.Status)
	}
	req.Status = next
	resp := models.BookingResponse{
		RequestID: req.ID,
		ClientID:  req.ClientID,
		TrainerID: s.trainerID,
		Action:    action,
		Message:   message,
		Rate:      req.Rate,
		SentAt:    time.Now(),
	}
	s.mu.Unlock()

	if err := s.responder.Deliver(ctx, resp); err != nil {
		// Roll back so status only ever claims what was delivered.
		s.mu.Lock()
		if cur, ok := s.requests[requestID]; ok && cur.Status == next {
			cur.Status = models.StatusPending
		}
		s.mu.Unlock()
		observability.BookingResponses.WithLabelValues(string(action), "rolled_back").Inc()
		s.log.Error("response delivery failed, rolled back", "request", requestID, "action", action, "error", err)
		return fmt.Errorf("%w: %v", ErrTransportFailed, err)
	}

	observability.BookingResponses.WithLabelValues(string(action), "committed").Inc()
	s.log.Info("booking response delivered", "request", requestID, "action", action)
	if s.archive != nil {
		if err := s.archive.UpdateRequestStatus(requestID, next); err != nil {
			s.log.Warn("status archive failed", "request", requestID, "error", err)
		}
	}
	return nil
}

// Get returns a copy of one request.
func (s *Store) Get(id string) (models.BookingRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return models.BookingRequest{}, false
	}
	return *req, true
}

// ListPending returns pending requests oldest-first, so the client
// who has waited longest is shown first.
func (s *Store) ListPending() []models.BookingRequest {
	return s.list(func(r *models.BookingRequest) bool { return r.Status == models.StatusPending }, false)
}

// ListResolved returns non-pending requests newest-first, for the
// activity history view.
func (s *Store) ListResolved() []models.BookingRequest {
	return s.list(func(r *models.BookingRequest) bool { return r.Status != models.StatusPending }, true)
}

func (s *Store) list(keep func(*models.BookingRequest) bool, newestFirst bool) []models.BookingRequest {
	s.mu.Lock()
	out := make([]models.BookingRequest, 0, len(s.order))
	for _, id := range s.order {
		if r := s.requests[id]; keep(r) {
			out = append(out, *r)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

package storage

import (
	"context"
	"sync"

	"github.com/example/trainer-marketplace/internal/availability"
	"github.com/example/trainer-marketplace/internal/models"
)

// Store is the persistence surface behind the session: booking
// request snapshots, the trainer profile's online mirror field and
// the weekly schedule.
type Store interface {
	SaveRequest(req models.BookingRequest) error
	UpdateRequestStatus(id string, status models.RequestStatus) error
	SetOnline(ctx context.Context, trainerID string, online bool) error
	ResolvedRequests(trainerID string) ([]models.BookingRequest, error)
	Schedule(trainerID string) (*availability.Weekly, error)
	SaveSchedule(trainerID string, w *availability.Weekly) error
}

// MemoryStore backs local runs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	requests  map[string]models.BookingRequest
	online    map[string]bool
	schedules map[string]*availability.Weekly

	// FailSync forces SetOnline to fail, for exercising rollback.
	FailSync error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:  make(map[string]models.BookingRequest),
		online:    make(map[string]bool),
		schedules: make(map[string]*availability.Weekly),
	}
}

// SaveRequest archives a request snapshot. First write wins, matching
// the ON CONFLICT DO NOTHING insert of the Postgres backend.
func (m *MemoryStore) SaveRequest(req models.BookingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.requests[req.ID]; exists {
		return nil
	}
	m.requests[req.ID] = req
	return nil
}

func (m *MemoryStore) UpdateRequestStatus(id string, status models.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req, ok := m.requests[id]; ok {
		req.Status = status
		m.requests[id] = req
	}
	return nil
}

func (m *MemoryStore) SetOnline(ctx context.Context, trainerID string, online bool) error {
	if m.FailSync != nil {
		return m.FailSync
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[trainerID] = online
	return nil
}

func (m *MemoryStore) Online(trainerID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online[trainerID]
}

// Schedule returns the stored weekly schedule, or nil when the
// trainer has never edited theirs.
func (m *MemoryStore) Schedule(trainerID string) (*availability.Weekly, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.schedules[trainerID], nil
}

func (m *MemoryStore) SaveSchedule(trainerID string, w *availability.Weekly) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[trainerID] = w
	return nil
}

func (m *MemoryStore) ResolvedRequests(trainerID string) ([]models.BookingRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.BookingRequest, 0, len(m.requests))
	for _, req := range m.requests {
		if req.TrainerID == trainerID && req.Status.Terminal() {
			out = append(out, req)
		}
	}
	return out, nil
}

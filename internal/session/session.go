// Package session composes the presence controller, booking store and
// availability schedule for one signed-in trainer, and decides which
// screen the UI layer should be on. Pure composition: it owns no
// domain state of its own.
package session

import (
	"sync"

	"github.com/example/trainer-marketplace/internal/availability"
	"github.com/example/trainer-marketplace/internal/booking"
	"github.com/example/trainer-marketplace/internal/models"
	"github.com/example/trainer-marketplace/internal/presence"
)

// Screen is the top-level routing decision.
type Screen int

const (
	ScreenLoading Screen = iota
	ScreenAuth
	ScreenProfileSetup
	ScreenMain
)

func (s Screen) String() string {
	switch s {
	case ScreenLoading:
		return "loading"
	case ScreenAuth:
		return "auth"
	case ScreenProfileSetup:
		return "profile_setup"
	default:
		return "main"
	}
}

// AuthState is the explicit context object the orchestrator consumes.
// Presence and booking never see it.
type AuthState struct {
	Loading         bool
	Authenticated   bool
	ProfileComplete bool
}

// Orchestrator wires the trainer-scoped components together.
type Orchestrator struct {
	Profile  models.TrainerProfile
	Presence *presence.Controller
	Bookings *booking.Store

	mu       sync.RWMutex
	schedule *availability.Weekly
}

func New(profile models.TrainerProfile, p *presence.Controller, b *booking.Store, sched *availability.Weekly) *Orchestrator {
	if sched == nil {
		sched = availability.Default()
	}
	return &Orchestrator{Profile: profile, Presence: p, Bookings: b, schedule: sched}
}

// Schedule returns the current weekly availability.
func (o *Orchestrator) Schedule() *availability.Weekly {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.schedule
}

// SetSchedule replaces the schedule, the one mutation path profile
// edits go through.
func (o *Orchestrator) SetSchedule(w *availability.Weekly) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.schedule = w
}

// Route maps auth/profile state to a screen.
func (o *Orchestrator) Route(a AuthState) Screen {
	switch {
	case a.Loading:
		return ScreenLoading
	case !a.Authenticated:
		return ScreenAuth
	case !a.ProfileComplete:
		return ScreenProfileSetup
	default:
		return ScreenMain
	}
}

// Soliciting reports whether the trainer is actively accepting new
// work. Ingestion is NOT gated on this: requests arriving while
// offline still queue, the UI just shows the trainer as not
// soliciting them.
func (o *Orchestrator) Soliciting() bool {
	return o.Presence.State().Online
}

// Snapshot is what the UI layer reads each render.
type Snapshot struct {
	Screen     Screen                  `json:"screen"`
	Soliciting bool                    `json:"soliciting"`
	Presence   presence.State          `json:"-"`
	Online     bool                    `json:"online"`
	Location   *models.Coord           `json:"location,omitempty"`
	Pending    []models.BookingRequest `json:"pending"`
	Resolved   []models.BookingRequest `json:"resolved"`
}

// Snapshot assembles the reactive view: presence state plus the two
// request lists.
func (o *Orchestrator) Snapshot(a AuthState) Snapshot {
	ps := o.Presence.State()
	return Snapshot{
		Screen:     o.Route(a),
		Soliciting: ps.Online,
		Presence:   ps,
		Online:     ps.Online,
		Location:   ps.Location,
		Pending:    o.Bookings.ListPending(),
		Resolved:   o.Bookings.ListResolved(),
	}
}

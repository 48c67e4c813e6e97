package session

import (
	"context"
	"testing"
	"time"

	"github.com/example/trainer-marketplace/internal/availability"
	"github.com/example/trainer-marketplace/internal/booking"
	"github.com/example/trainer-marketplace/internal/geoloc"
	"github.com/example/trainer-marketplace/internal/locfeed"
	"github.com/example/trainer-marketplace/internal/logging"
	"github.com/example/trainer-marketplace/internal/models"
	"github.com/example/trainer-marketplace/internal/presence"
)

type noopSync struct{}

func (noopSync) SetOnline(ctx context.Context, trainerID string, online bool) error { return nil }

type noopFeed struct{}

func (noopFeed) Start(sink locfeed.Sink) {}
func (noopFeed) Stop()                   {}

type noopResponder struct{}

func (noopResponder) Deliver(ctx context.Context, resp models.BookingResponse) error { return nil }

func newOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	log := logging.NewLogger("error")
	device := geoloc.NewDeviceGateway(0)
	device.SetPermission(true)
	ctrl := presence.NewController("t1", noopSync{}, device, noopFeed{}, log)
	store := booking.NewStore("t1", noopResponder{}, log)
	return New(models.TrainerProfile{ID: "t1"}, ctrl, store, nil)
}

func TestRoute(t *testing.T) {
	o := newOrchestrator(t)
	cases := []struct {
		name string
		auth AuthState
		want Screen
	}{
		{"loading wins", AuthState{Loading: true, Authenticated: true, ProfileComplete: true}, ScreenLoading},
		{"unauthenticated", AuthState{}, ScreenAuth},
		{"profile incomplete", AuthState{Authenticated: true}, ScreenProfileSetup},
		{"main", AuthState{Authenticated: true, ProfileComplete: true}, ScreenMain},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := o.Route(tc.auth); got != tc.want {
				t.Fatalf("want %s, got %s", tc.want, got)
			}
		})
	}
}

func TestIngestionNotGatedOnPresence(t *testing.T) {
	o := newOrchestrator(t)
	if o.Soliciting() {
		t.Fatal("fresh session should start offline")
	}

	o.Bookings.Ingest(models.BookingRequest{ID: "r1", ClientID: "c1", CreatedAt: time.Now()})

	snap := o.Snapshot(AuthState{Authenticated: true, ProfileComplete: true})
	if snap.Soliciting {
		t.Fatal("snapshot says soliciting while offline")
	}
	if len(snap.Pending) != 1 {
		t.Fatalf("request ingested while offline must still queue, got %d pending", len(snap.Pending))
	}
}

func TestSnapshotReflectsPresence(t *testing.T) {
	o := newOrchestrator(t)
	if err := o.Presence.SetOnline(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := o.Snapshot(AuthState{Authenticated: true, ProfileComplete: true})
	if !snap.Online || !snap.Soliciting {
		t.Fatalf("snapshot should reflect online presence: %+v", snap)
	}
	if snap.Screen != ScreenMain {
		t.Fatalf("want main screen, got %s", snap.Screen)
	}
}

func TestDefaultScheduleApplied(t *testing.T) {
	o := newOrchestrator(t)
	sched := o.Schedule()
	if sched == nil {
		t.Fatal("nil schedule should fall back to the default")
	}
	monday := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	if !sched.IsAvailableAt(monday) {
		t.Fatal("default schedule covers Monday mornings")
	}

	win := availability.DayWindow{Start: 9 * 60, End: 17 * 60, Available: true}
	custom, err := availability.NewWeekly(map[time.Weekday]availability.DayWindow{
		time.Sunday: win, time.Monday: win, time.Tuesday: win, time.Wednesday: win,
		time.Thursday: win, time.Friday: win, time.Saturday: win,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.SetSchedule(custom)
	if o.Schedule() != custom {
		t.Fatal("SetSchedule did not replace the schedule")
	}
}

package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/trainer-marketplace/internal/logging"
	"github.com/example/trainer-marketplace/internal/models"
)

// fakeResponder records deliveries and can fail on demand.
type fakeResponder struct {
	mu        sync.Mutex
	delivered []models.BookingResponse
	err       error
}

func (f *fakeResponder) Deliver(ctx context.Context, resp models.BookingResponse) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.delivered = append(f.delivered, resp)
	f.mu.Unlock()
	return nil
}

type fakeArchive struct {
	mu       sync.Mutex
	saved    []models.BookingRequest
	statuses map[string]models.RequestStatus
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{statuses: make(map[string]models.RequestStatus)}
}

func (f *fakeArchive) SaveRequest(req models.BookingRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, req)
	return nil
}

func (f *fakeArchive) UpdateRequestStatus(id string, status models.RequestStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	return nil
}

func request(id string, createdAt time.Time) models.BookingRequest {
	return models.BookingRequest{
		ID:            id,
		ClientID:      "c-" + id,
		ClientName:    "Client " + id,
		SessionType:   "strength",
		PreferredDate: "2026-09-15",
		PreferredTime: "10:00",
		Rate:          75,
		CreatedAt:     createdAt,
	}
}

func newTestStore(r Responder) *Store {
	return NewStore("t1", r, logging.NewLogger("error"))
}

func TestAcceptMovesPendingToResolved(t *testing.T) {
	responder := &fakeResponder{}
	archive := newFakeArchive()
	s := newTestStore(responder).WithArchive(archive)

	s.Ingest(request("r1", time.Now()))
	if err := s.Respond(context.Background(), "r1", models.ActionAccept, "see you then"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := s.ListPending(); len(got) != 0 {
		t.Fatalf("expected no pending requests, got %d", len(got))
	}
	resolved := s.ListResolved()
	if len(resolved) != 1 || resolved[0].Status != models.StatusAccepted {
		t.Fatalf("expected one accepted request, got %+v", resolved)
	}
	if len(responder.delivered) != 1 {
		t.Fatalf("expected one delivery, got %d", len(responder.delivered))
	}
	resp := responder.delivered[0]
	if resp.RequestID != "r1" || resp.TrainerID != "t1" || resp.Action != models.ActionAccept || resp.Message != "see you then" {
		t.Fatalf("malformed response: %+v", resp)
	}
	if archive.statuses["r1"] != models.StatusAccepted {
		t.Fatal("archive should mirror the committed status")
	}
}

func TestRespondOnResolvedRequestFails(t *testing.T) {
	responder := &fakeResponder{}
	s := newTestStore(responder)

	s.Ingest(request("r1", time.Now()))
	if err := s.Respond(context.Background(), "r1", models.ActionDecline, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Respond(context.Background(), "r1", models.ActionAccept, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	got, _ := s.Get("r1")
	if got.Status != models.StatusDeclined {
		t.Fatalf("rejected response must not touch status, got %s", got.Status)
	}
	if len(responder.delivered) != 1 {
		t.Fatal("no delivery should be attempted for an invalid transition")
	}
}

func TestRespondUnknownRequest(t *testing.T) {
	s := newTestStore(&fakeResponder{})
	err := s.Respond(context.Background(), "missing", models.ActionAccept, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransportFailureRollsBackToPending(t *testing.T) {
	responder := &fakeResponder{err: errors.New("push gateway 503")}
	s := newTestStore(responder)

	s.Ingest(request("r1", time.Now()))
	err := s.Respond(context.Background(), "r1", models.ActionAccept, "")
	if !errors.Is(err, ErrTransportFailed) {
		t.Fatalf("expected ErrTransportFailed, got %v", err)
	}
	got, _ := s.Get("r1")
	if got.Status != models.StatusPending {
		t.Fatalf("failed delivery must roll back to pending, got %s", got.Status)
	}

	// The request is actionable again once transport recovers.
	responder.err = nil
	if err := s.Respond(context.Background(), "r1", models.ActionAccept, ""); err != nil {
		t.Fatalf("retry after rollback should succeed: %v", err)
	}
}

func TestDuplicateIngestIsNoop(t *testing.T) {
	s := newTestStore(&fakeResponder{})

	first := request("r1", time.Now())
	s.Ingest(first)
	if err := s.Respond(context.Background(), "r1", models.ActionAccept, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	redelivered := first
	redelivered.ClientName = "Someone Else"
	s.Ingest(redelivered)

	got, _ := s.Get("r1")
	if got.Status != models.StatusAccepted {
		t.Fatal("re-delivery must not reset a resolved request")
	}
	if got.ClientName != first.ClientName {
		t.Fatal("first write wins on duplicate ingest")
	}
	if len(s.ListResolved())+len(s.ListPending()) != 1 {
		t.Fatal("duplicate ingest must not create a second entry")
	}
}

func TestListOrdering(t *testing.T) {
	s := newTestStore(&fakeResponder{})
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	s.Ingest(request("old", base))
	s.Ingest(request("mid", base.Add(time.Minute)))
	s.Ingest(request("new", base.Add(2*time.Minute)))

	pending := s.ListPending()
	if pending[0].ID != "old" || pending[2].ID != "new" {
		t.Fatalf("pending should be oldest-first, got %s,%s,%s", pending[0].ID, pending[1].ID, pending[2].ID)
	}

	for _, id := range []string{"old", "mid", "new"} {
		if err := s.Respond(context.Background(), id, models.ActionDecline, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	resolved := s.ListResolved()
	if resolved[0].ID != "new" || resolved[2].ID != "old" {
		t.Fatalf("resolved should be newest-first, got %s,%s,%s", resolved[0].ID, resolved[1].ID, resolved[2].ID)
	}
}

func TestConcurrentRespondsOnlyOneWins(t *testing.T) {
	responder := &fakeResponder{}
	s := newTestStore(responder)
	s.Ingest(request("r1", time.Now()))

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		action := models.ActionAccept
		if i%2 == 1 {
			action = models.ActionDecline
		}
		wg.Add(1)
		go func(a models.ResponseAction) {
			defer wg.Done()
			errs <- s.Respond(context.Background(), "r1", a, "")
		}(action)
	}
	wg.Wait()
	close(errs)

	var wins, invalid int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrInvalidTransition):
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || invalid != attempts-1 {
		t.Fatalf("expected exactly one winner, got %d wins, %d invalid", wins, invalid)
	}
	if len(responder.delivered) != 1 {
		t.Fatalf("expected one delivery, got %d", len(responder.delivered))
	}
	got, _ := s.Get("r1")
	if got.Status == models.StatusPending {
		t.Fatal("winning response should have resolved the request")
	}
}

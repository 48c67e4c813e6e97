package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/trainer-marketplace/internal/availability"
	"github.com/example/trainer-marketplace/internal/booking"
	"github.com/example/trainer-marketplace/internal/models"
	"github.com/example/trainer-marketplace/internal/presence"
	"github.com/example/trainer-marketplace/internal/session"
	"github.com/example/trainer-marketplace/internal/stats"
)

func (s *Server) routes() {
	// literal route first so it is not shadowed by {trainer_id}
	s.mux.HandleFunc("/api/v1/trainers/nearby", s.handleNearby).Methods("GET")

	s.mux.HandleFunc("/api/v1/trainers/{trainer_id}/presence", s.handleSetPresence).Methods("POST")
	s.mux.HandleFunc("/api/v1/trainers/{trainer_id}/presence", s.handleGetPresence).Methods("GET")
	s.mux.HandleFunc("/api/v1/trainers/{trainer_id}/session", s.handleSession).Methods("GET")
	s.mux.HandleFunc("/api/v1/trainers/{trainer_id}/requests/pending", s.handlePending).Methods("GET")
	s.mux.HandleFunc("/api/v1/trainers/{trainer_id}/requests/resolved", s.handleResolved).Methods("GET")
	s.mux.HandleFunc("/api/v1/trainers/{trainer_id}/requests/{request_id}/respond", s.handleRespond).Methods("POST")
	s.mux.HandleFunc("/api/v1/trainers/{trainer_id}/availability", s.handleGetAvailability).Methods("GET")
	s.mux.HandleFunc("/api/v1/trainers/{trainer_id}/availability", s.handlePutAvailability).Methods("PUT")
	s.mux.HandleFunc("/api/v1/trainers/{trainer_id}/stats", s.handleStats).Methods("GET")

	// collaborator-facing surface: request ingest and the device bridge
	s.mux.HandleFunc("/internal/trainers/{trainer_id}/requests", s.handleIngest).Methods("POST")
	s.mux.HandleFunc("/internal/trainers/{trainer_id}/device/location", s.handleDeviceLocation).Methods("POST")
	s.mux.HandleFunc("/internal/trainers/{trainer_id}/device/permission", s.handleDevicePermission).Methods("POST")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{trainer_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func trainerID(r *http.Request) string { return mux.Vars(r)["trainer_id"] }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type presenceView struct {
	Online          bool          `json:"online"`
	Location        *models.Coord `json:"location,omitempty"`
	LocationPending bool          `json:"location_pending"`
}

func viewOf(st presence.State) presenceView {
	return presenceView{Online: st.Online, Location: st.Location, LocationPending: st.LocationPending}
}

func (s *Server) handleSetPresence(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ts := s.sessionFor(trainerID(r))
	if err := ts.orch.Presence.SetOnline(r.Context(), body.Online); err != nil {
		// rollback has already completed; the reported state is what
		// was actually persisted
		status := http.StatusBadGateway
		if !errors.Is(err, presence.ErrSyncFailed) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, map[string]any{
			"error": err.Error(),
			"state": viewOf(ts.orch.Presence.State()),
		})
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ts.orch.Presence.State()))
}

func (s *Server) handleGetPresence(w http.ResponseWriter, r *http.Request) {
	ts := s.sessionFor(trainerID(r))
	writeJSON(w, http.StatusOK, viewOf(ts.orch.Presence.State()))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ts := s.sessionFor(trainerID(r))
	snap := ts.orch.Snapshot(session.AuthState{Authenticated: true, ProfileComplete: true})
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.TrainerID = trainerID(r)
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	if err := s.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	id := trainerID(r)
	ts := s.sessionFor(id)
	ts.orch.Bookings.Ingest(req)

	// best effort: the trainer session sees the request immediately
	// if connected, and on next fetch otherwise
	_ = s.wsreg.Notify(id, models.Notification{
		ID:        uuid.NewString(),
		Kind:      models.NotifyBookingRequest,
		Title:     "New booking request",
		Body:      req.ClientName + " requested " + req.SessionType,
		RelatedID: req.ID,
		SentAt:    time.Now(),
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"id": req.ID})
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action  models.ResponseAction `json:"action"`
		Message string                `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ts := s.sessionFor(trainerID(r))
	reqID := mux.Vars(r)["request_id"]
	if err := ts.orch.Bookings.Respond(r.Context(), reqID, body.Action, body.Message); err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, booking.ErrTransportFailed):
			http.Error(w, err.Error(), http.StatusBadGateway)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	ts := s.sessionFor(trainerID(r))
	writeJSON(w, http.StatusOK, ts.orch.Bookings.ListPending())
}

func (s *Server) handleResolved(w http.ResponseWriter, r *http.Request) {
	ts := s.sessionFor(trainerID(r))
	writeJSON(w, http.StatusOK, ts.orch.Bookings.ListResolved())
}

func (s *Server) handleGetAvailability(w http.ResponseWriter, r *http.Request) {
	ts := s.sessionFor(trainerID(r))
	sched := ts.orch.Schedule()
	out := make(map[string]availability.DayWindow, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		out[wd.String()] = sched.WindowFor(wd)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePutAvailability(w http.ResponseWriter, r *http.Request) {
	var payload availability.WirePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	weekly, err := availability.FromWire(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	id := trainerID(r)
	ts := s.sessionFor(id)
	ts.orch.SetSchedule(weekly)
	if err := s.store.SaveSchedule(id, weekly); err != nil {
		s.logger.Warn("schedule persist failed", "trainer", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStats aggregates over the durable history, so numbers survive
// session restarts. In-session resolutions whose archive write failed
// are merged in on top.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	id := trainerID(r)
	ts := s.sessionFor(id)

	resolved := ts.orch.Bookings.ListResolved()
	seen := make(map[string]struct{}, len(resolved))
	for _, req := range resolved {
		seen[req.ID] = struct{}{}
	}
	archived, err := s.store.ResolvedRequests(id)
	if err != nil {
		s.logger.Warn("resolved history unavailable", "trainer", id, "error", err)
	}
	for _, req := range archived {
		if _, dup := seen[req.ID]; !dup {
			resolved = append(resolved, req)
		}
	}

	agg := stats.Aggregate(ts.orch.Profile, resolved, time.Now())
	writeJSON(w, http.StatusOK, agg)
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		http.Error(w, "lat and lon query params required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.geo.Nearby(lat, lon, s.cfg.NearbyLimit))
}

func (s *Server) handleDeviceLocation(w http.ResponseWriter, r *http.Request) {
	var c models.Coord
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ts := s.sessionFor(trainerID(r))
	ts.device.Report(c)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDevicePermission(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Granted bool `json:"granted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ts := s.sessionFor(trainerID(r))
	ts.device.SetPermission(body.Granted)
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := trainerID(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.wsreg.Add(id, conn)

	// inbound frames are ignored; the read pump exists to detect the
	// close and drop the session
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.wsreg.RemoveConn(id, conn)
				_ = conn.Close()
				return
			}
		}
	}()
}

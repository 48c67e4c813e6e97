package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RequestStatus is the lifecycle state of a booking request.
// pending -> accepted|declined is the only transition this service
// performs; completed and cancelled belong to session execution.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusAccepted  RequestStatus = "accepted"
	StatusDeclined  RequestStatus = "declined"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether a status can no longer be changed here.
func (s RequestStatus) Terminal() bool { return s != StatusPending }

// BookingRequest is a client-initiated ask for a training session.
type BookingRequest struct {
	ID            string        `json:"id" validate:"required"`
	TrainerID     string        `json:"trainer_id"`
	ClientID      string        `json:"client_id" validate:"required"`
	ClientName    string        `json:"client_name" validate:"required"`
	SessionType   string        `json:"session_type" validate:"required"`
	PreferredDate string        `json:"preferred_date" validate:"required,datetime=2006-01-02"`
	PreferredTime string        `json:"preferred_time" validate:"required"`
	Duration      int           `json:"duration_minutes" validate:"gt=0"`
	Location      string        `json:"location"`
	Address       string        `json:"address"`
	Rate          float64       `json:"rate" validate:"gte=0"`
	Message       string        `json:"message"`
	Status        RequestStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ResponseAction is what a trainer does with a pending request.
type ResponseAction string

const (
	ActionAccept  ResponseAction = "accept"
	ActionDecline ResponseAction = "decline"
)

// BookingResponse is the outcome delivered back to the client side.
type BookingResponse struct {
	RequestID string         `json:"request_id"`
	ClientID  string         `json:"client_id"`
	TrainerID string         `json:"trainer_id"`
	Action    ResponseAction `json:"action"`
	Message   string         `json:"message,omitempty"`
	Rate      float64        `json:"rate"`
	SentAt    time.Time      `json:"sent_at"`
}

// TrainerProfile mirrors the marketplace-facing trainer record. The
// Online field here is a downstream projection of presence state,
// never the source of truth read by presence logic.
type TrainerProfile struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Specialties   []string `json:"specialties,omitempty"`
	HourlyRate    float64  `json:"hourly_rate"`
	Rating        float64  `json:"rating"` // 0..5
	TotalReviews  int      `json:"total_reviews"`
	Verified      bool     `json:"verified"`
	Online        bool     `json:"online"`
	ServiceRadius float64  `json:"service_radius_m"`
}

// TrainerPresence is the geo-index entry for an online trainer.
type TrainerPresence struct {
	ID            string    `json:"id"`
	Loc           Coord     `json:"loc"`
	Rating        float64   `json:"rating"`
	Online        bool      `json:"online"`
	ServiceRadius float64   `json:"service_radius_m"`
	Updated       time.Time `json:"updated"`
}

// LocationSample is one emission from the location feed, published to
// the ingest pipeline and applied to the geo index.
type LocationSample struct {
	TrainerID string    `json:"trainer_id"`
	Loc       Coord     `json:"loc"`
	TakenAt   time.Time `json:"taken_at"`
}

// TrainerStats aggregates resolved bookings into dashboard numbers.
type TrainerStats struct {
	TodayEarnings   float64 `json:"today_earnings"`
	WeeklyEarnings  float64 `json:"weekly_earnings"`
	MonthlyEarnings float64 `json:"monthly_earnings"`
	TotalSessions   int     `json:"total_sessions"`
	ActiveClients   int     `json:"active_clients"`
	Rating          float64 `json:"rating"`
	TotalReviews    int     `json:"total_reviews"`
}

// NotificationKind tags payloads pushed to a connected trainer session.
type NotificationKind string

const (
	NotifyBookingRequest   NotificationKind = "booking_request"
	NotifyBookingConfirmed NotificationKind = "booking_confirmed"
	NotifyBookingCancelled NotificationKind = "booking_cancelled"
	NotifySystem           NotificationKind = "system"
)

type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	RelatedID string           `json:"related_id,omitempty"`
	SentAt    time.Time        `json:"sent_at"`
}

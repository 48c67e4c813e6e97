package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/trainer-marketplace/internal/availability"
	"github.com/example/trainer-marketplace/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) SaveRequest(r models.BookingRequest) error {
	_, err := p.db.Exec(`INSERT INTO booking_requests(id, trainer_id, client_id, client_name, session_type, preferred_date, preferred_time, duration_minutes, location, address, rate, message, status, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.TrainerID, r.ClientID, r.ClientName, r.SessionType, r.PreferredDate, r.PreferredTime, r.Duration, r.Location, r.Address, r.Rate, r.Message, string(r.Status), r.CreatedAt)
	return err
}

func (p *PostgresStore) UpdateRequestStatus(id string, status models.RequestStatus) error {
	_, err := p.db.Exec(`UPDATE booking_requests SET status=$1, updated_at=$2 WHERE id=$3`, string(status), time.Now(), id)
	return err
}

func (p *PostgresStore) SetOnline(ctx context.Context, trainerID string, online bool) error {
	_, err := p.db.ExecContext(ctx, `UPDATE trainers SET online=$1, updated_at=$2 WHERE id=$3`, online, time.Now(), trainerID)
	return err
}

// Schedule loads the stored weekly schedule, nil when none was saved.
func (p *PostgresStore) Schedule(trainerID string) (*availability.Weekly, error) {
	var raw []byte
	err := p.db.QueryRow(`SELECT schedule FROM trainer_schedules WHERE trainer_id=$1`, trainerID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var payload availability.WirePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return availability.FromWire(payload)
}

func (p *PostgresStore) SaveSchedule(trainerID string, w *availability.Weekly) error {
	raw, err := json.Marshal(w.Wire())
	if err != nil {
		return err
	}
	_, err = p.db.Exec(`INSERT INTO trainer_schedules(trainer_id, schedule, updated_at) VALUES($1,$2,$3)
		ON CONFLICT (trainer_id) DO UPDATE SET schedule=EXCLUDED.schedule, updated_at=EXCLUDED.updated_at`,
		trainerID, raw, time.Now())
	return err
}

func (p *PostgresStore) ResolvedRequests(trainerID string) ([]models.BookingRequest, error) {
	rows, err := p.db.Query(`SELECT id, trainer_id, client_id, client_name, session_type, preferred_date, preferred_time, duration_minutes, location, address, rate, message, status, created_at
		FROM booking_requests WHERE trainer_id=$1 AND status <> 'pending' ORDER BY created_at DESC`, trainerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.BookingRequest
	for rows.Next() {
		var r models.BookingRequest
		var status string
		if err := rows.Scan(&r.ID, &r.TrainerID, &r.ClientID, &r.ClientName, &r.SessionType, &r.PreferredDate, &r.PreferredTime, &r.Duration, &r.Location, &r.Address, &r.Rate, &r.Message, &status, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Status = models.RequestStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Package stats turns resolved booking requests into the dashboard
// numbers a trainer sees: earnings buckets, session counts and the
// size of their active client base.
package stats

import (
	"time"

	"github.com/example/trainer-marketplace/internal/models"
)

const activeClientWindow = 30 * 24 * time.Hour

// Aggregate computes TrainerStats at the given instant. Only
// accepted requests count as sessions and earnings; declined ones are
// activity, not revenue.
func Aggregate(profile models.TrainerProfile, resolved []models.BookingRequest, now time.Time) models.TrainerStats {
	out := models.TrainerStats{
		Rating:       profile.Rating,
		TotalReviews: profile.TotalReviews,
	}

	today := now.Format("2006-01-02")
	weekAgo := now.AddDate(0, 0, -7)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	clients := make(map[string]struct{})

	for _, req := range resolved {
		if req.Status != models.StatusAccepted && req.Status != models.StatusCompleted {
			continue
		}
		out.TotalSessions++
		if now.Sub(req.CreatedAt) <= activeClientWindow {
			clients[req.ClientID] = struct{}{}
		}

		day, err := time.ParseInLocation("2006-01-02", req.PreferredDate, now.Location())
		if err != nil {
			continue
		}
		if req.PreferredDate == today {
			out.TodayEarnings += req.Rate
		}
		if !day.Before(weekAgo) && !day.After(now) {
			out.WeeklyEarnings += req.Rate
		}
		if !day.Before(monthStart) && !day.After(now) {
			out.MonthlyEarnings += req.Rate
		}
	}
	out.ActiveClients = len(clients)
	return out
}

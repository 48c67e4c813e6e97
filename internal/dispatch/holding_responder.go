package dispatch

import (
	"context"
	"fmt"

	"github.com/example/trainer-marketplace/internal/models"
)

// PaymentHolder places a manual-capture hold for an accepted session.
type PaymentHolder interface {
	Hold(ctx context.Context, amount int64, currency, customerID string) (string, error)
}

// HoldingResponder decorates a Responder with the payment step: an
// accept first places a hold on the session rate, then delivers. A
// failed hold fails the whole response, which the booking store
// treats like any transport failure and rolls back.
type HoldingResponder struct {
	Next     Responder
	Payments PaymentHolder
	Currency string
}

// Responder matches booking.Responder; declared here so the package
// stays import-light.
type Responder interface {
	Deliver(ctx context.Context, resp models.BookingResponse) error
}

func (h *HoldingResponder) Deliver(ctx context.Context, resp models.BookingResponse) error {
	if resp.Action == models.ActionAccept && h.Payments != nil {
		amount := int64(resp.Rate * 100) // cents
		if _, err := h.Payments.Hold(ctx, amount, h.Currency, resp.ClientID); err != nil {
			return fmt.Errorf("session hold: %w", err)
		}
	}
	return h.Next.Deliver(ctx, resp)
}

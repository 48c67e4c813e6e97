package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/trainer-marketplace/internal/models"
)

// PushResponder delivers booking responses to the client-facing side
// of the marketplace over its notification endpoint. Unlike the
// trainer-side WS push this MUST report failure: the booking store
// rolls its optimistic flip back on a delivery error.
type PushResponder struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewPushResponder(endpoint, key string) *PushResponder {
	return &PushResponder{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (p *PushResponder) Deliver(ctx context.Context, resp models.BookingResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.Key != "" {
		req.Header.Set("Authorization", "Bearer "+p.Key)
	}
	res, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("push endpoint returned %d", res.StatusCode)
	}
	return nil
}

// LogResponder stands in when no push endpoint is configured (local
// runs): delivery always succeeds.
type LogResponder struct{}

func (LogResponder) Deliver(ctx context.Context, resp models.BookingResponse) error { return nil }

package geoloc

import (
	"context"
	"sync"
	"time"

	"github.com/example/trainer-marketplace/internal/models"
)

// DeviceGateway adapts the trainer device's reported position to the
// Locator surface. The device bridge posts fixes and permission
// grants; CurrentFix serves the freshest one and fails once it goes
// stale, which the feed treats as a transient positioning error.
type DeviceGateway struct {
	mu      sync.Mutex
	fix     *models.Coord
	fixAt   time.Time
	granted bool
	maxAge  time.Duration
}

func NewDeviceGateway(maxAge time.Duration) *DeviceGateway {
	if maxAge <= 0 {
		maxAge = 2 * time.Minute
	}
	return &DeviceGateway{maxAge: maxAge}
}

// Report records a position update from the device bridge.
func (g *DeviceGateway) Report(c models.Coord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fix = &c
	g.fixAt = time.Now()
}

// SetPermission records the device-side grant state.
func (g *DeviceGateway) SetPermission(granted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted = granted
}

func (g *DeviceGateway) RequestPermission(ctx context.Context) (PermissionResult, error) {
	select {
	case <-ctx.Done():
		return PermissionDenied, ctx.Err()
	default:
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.granted {
		return PermissionGranted, nil
	}
	return PermissionDenied, nil
}

func (g *DeviceGateway) CurrentFix(ctx context.Context) (models.Coord, error) {
	select {
	case <-ctx.Done():
		return models.Coord{}, ctx.Err()
	default:
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.granted {
		return models.Coord{}, ErrPermissionDenied
	}
	if g.fix == nil || time.Since(g.fixAt) > g.maxAge {
		return models.Coord{}, ErrUnavailable
	}
	return *g.fix, nil
}

// Package geoloc abstracts the host platform's positioning service.
// The core treats it as fallible and possibly slow: every call takes a
// context and callers are expected to bound it with a timeout.
package geoloc

import (
	"context"
	"errors"

	"github.com/example/trainer-marketplace/internal/models"
)

type PermissionResult int

const (
	PermissionDenied PermissionResult = iota
	PermissionGranted
)

var (
	// ErrPermissionDenied means foreground location access was refused.
	// Terminal for the attempt; the user must re-grant.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrUnavailable is a transient positioning failure. Feeds absorb
	// it and retry on the next scheduled trigger.
	ErrUnavailable = errors.New("location unavailable")
)

// Locator is the platform service surface the presence subsystem uses.
type Locator interface {
	// RequestPermission asks for foreground location access. Asking
	// again after a grant is idempotent.
	RequestPermission(ctx context.Context) (PermissionResult, error)
	// CurrentFix returns a high-accuracy position, or ErrUnavailable.
	CurrentFix(ctx context.Context) (models.Coord, error)
}

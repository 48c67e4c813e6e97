// Package presence is the single authority for whether a trainer is
// currently accepting new work, and for the location feed that backs
// that state. Transitions are optimistic-then-confirm: local state
// flips immediately, the backend sync confirms it, and a failed
// confirm reverts the flip exactly once.
package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/trainer-marketplace/internal/geoloc"
	"github.com/example/trainer-marketplace/internal/locfeed"
	"github.com/example/trainer-marketplace/internal/models"
	"github.com/example/trainer-marketplace/internal/observability"
)

// ErrSyncFailed means the backend rejected or never saw the new
// online value. The optimistic flip has already been rolled back by
// the time callers observe this error.
var ErrSyncFailed = errors.New("presence sync failed")

// ProfileSync persists the trainer profile's online mirror field. It
// is a downstream projection, updated after the controller commits,
// never read back as the source of truth.
type ProfileSync interface {
	SetOnline(ctx context.Context, trainerID string, online bool) error
}

// Feed is the slice of the location feed the controller drives.
type Feed interface {
	Start(sink locfeed.Sink)
	Stop()
}

// Broadcast receives committed presence output: accepted location
// samples while online, and the offline signal. Wired to the ingest
// pipeline and geo index by the composition layer.
type Broadcast interface {
	Sample(s models.LocationSample)
	Offline(trainerID string)
}

// Prompter is the UI collaborator told to surface a permission
// remediation prompt (open settings). Side effect only.
type Prompter interface {
	PermissionNeeded(trainerID string)
}

// State is a read-only snapshot of presence.
type State struct {
	Online          bool
	Location        *models.Coord
	LocationPending bool
}

type Controller struct {
	trainerID string
	sync      ProfileSync
	locator   geoloc.Locator
	feed      Feed
	broadcast Broadcast // optional
	prompter  Prompter  // optional
	log       *slog.Logger

	permTimeout time.Duration
	syncTimeout time.Duration

	mu         sync.Mutex
	gen        uint64 // a newer SetOnline invalidates in-flight confirms
	online     bool
	committed  bool // last value the backend sync confirmed
	syncCancel context.CancelFunc
	loc        *models.Coord
	pending    bool
	granted    bool
}

type Option func(*Controller)

func WithBroadcast(b Broadcast) Option { return func(c *Controller) { c.broadcast = b } }
func WithPrompter(p Prompter) Option   { return func(c *Controller) { c.prompter = p } }
func WithSyncTimeout(d time.Duration) Option {
	return func(c *Controller) { c.syncTimeout = d }
}

func NewController(trainerID string, sync ProfileSync, locator geoloc.Locator, feed Feed, log *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		trainerID:   trainerID,
		sync:        sync,
		locator:     locator,
		feed:        feed,
		log:         log,
		permTimeout: 10 * time.Second,
		syncTimeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns a snapshot of the current presence state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	var loc *models.Coord
	if c.loc != nil {
		cp := *c.loc
		loc = &cp
	}
	return State{Online: c.online, Location: loc, LocationPending: c.pending}
}

// Location is a pure read of the cached fix.
func (c *Controller) Location() *models.Coord {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loc == nil {
		return nil
	}
	cp := *c.loc
	return &cp
}

// RequestPermission asks the platform for foreground location access.
// Denial is terminal for the attempt; the remediation prompt is the
// prompter's problem.
func (c *Controller) RequestPermission(ctx context.Context) (geoloc.PermissionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.permTimeout)
	defer cancel()
	res, err := c.locator.RequestPermission(ctx)
	if err != nil {
		return geoloc.PermissionDenied, fmt.Errorf("request permission: %w", err)
	}
	c.mu.Lock()
	c.granted = res == geoloc.PermissionGranted
	c.mu.Unlock()
	if res != geoloc.PermissionGranted {
		if c.prompter != nil {
			c.prompter.PermissionNeeded(c.trainerID)
		}
		return res, geoloc.ErrPermissionDenied
	}
	return res, nil
}

// SetOnline is the sole presence transition entry point.
//
// Going online: optimistic flip, permission check (idempotent if
// already granted), feed start, then backend sync. A sampling problem
// never reverts the flip; a sync failure does, exactly once.
//
// Going offline: optimistic flip and synchronous feed stop, then
// backend sync with the same rollback rule.
//
// A newer call supersedes an older one still in flight: the stale
// confirm, success or failure, never touches local state, its backend
// write is cancelled, and if that write landed anyway the mirror is
// re-synced to the value the newer transition holds.
func (c *Controller) SetOnline(ctx context.Context, next bool) error {
	c.mu.Lock()
	if c.online == next {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	prev := c.online
	c.online = next
	if next {
		c.pending = true
	} else {
		c.pending = false
	}
	if c.syncCancel != nil {
		// a newer command owns the mirror now; the superseded sync
		// must not land its value
		c.syncCancel()
		c.syncCancel = nil
	}
	c.mu.Unlock()

	startedFeed := false
	if next {
		if _, err := c.RequestPermission(ctx); err != nil {
			// Not fatal to presence: online without a fresh fix is a
			// legal state, the profile just stays location-stale.
			c.log.Warn("going online without location", "trainer", c.trainerID, "error", err)
			c.mu.Lock()
			if gen == c.gen {
				c.pending = false
			}
			c.mu.Unlock()
		} else if c.current(gen) {
			c.feed.Start(c.applySample)
			startedFeed = true
		}
	} else {
		// Emissions already in flight are dropped by applySample's
		// online check; Stop guarantees nothing new is produced.
		c.feed.Stop()
	}

	syncCtx, cancel := context.WithTimeout(ctx, c.syncTimeout)
	c.mu.Lock()
	if gen != c.gen {
		// Superseded before the write went out; skip it entirely.
		c.mu.Unlock()
		cancel()
		observability.PresenceToggles.WithLabelValues(target(next), "superseded").Inc()
		return nil
	}
	c.syncCancel = cancel
	c.mu.Unlock()
	err := c.sync.SetOnline(syncCtx, c.trainerID, next)
	cancel()

	c.mu.Lock()
	if gen != c.gen {
		// Superseded: a newer transition owns the state now. If the
		// stale write beat the cancellation it has corrupted the
		// mirror, so re-assert the value the newer transition holds.
		current := c.online
		c.mu.Unlock()
		if err == nil && current != next {
			repairCtx, repairCancel := context.WithTimeout(context.Background(), c.syncTimeout)
			if rerr := c.sync.SetOnline(repairCtx, c.trainerID, current); rerr != nil {
				c.log.Warn("mirror repair after stale sync failed", "trainer", c.trainerID, "error", rerr)
			}
			repairCancel()
		}
		observability.PresenceToggles.WithLabelValues(target(next), "superseded").Inc()
		return nil
	}
	c.syncCancel = nil
	if err != nil {
		c.online = prev
		if next {
			c.pending = false
		}
		c.mu.Unlock()
		if startedFeed {
			c.feed.Stop()
		}
		if !next && prev && c.isGranted() {
			// Reverting a failed offline toggle leaves the trainer
			// online, so sampling resumes.
			c.feed.Start(c.applySample)
		}
		observability.PresenceToggles.WithLabelValues(target(next), "rolled_back").Inc()
		c.log.Error("presence sync failed, rolled back", "trainer", c.trainerID, "target", next, "error", err)
		return fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}
	wasCommitted := c.committed
	c.committed = next
	c.mu.Unlock()

	// gauge follows committed transitions only, so a superseded toggle
	// that never committed cannot unbalance it
	if next != wasCommitted {
		if next {
			observability.TrainersOnline.Inc()
		} else {
			observability.TrainersOnline.Dec()
		}
	}
	if !next && c.broadcast != nil {
		c.broadcast.Offline(c.trainerID)
	}
	observability.PresenceToggles.WithLabelValues(target(next), "committed").Inc()
	c.log.Info("presence committed", "trainer", c.trainerID, "online", next)
	return nil
}

// applySample is the feed sink. Samples racing a transition to
// offline are dropped here; accepted ones flow to the broadcast in
// emission order.
func (c *Controller) applySample(coord models.Coord, at time.Time) {
	c.mu.Lock()
	if !c.online {
		c.mu.Unlock()
		return
	}
	c.loc = &coord
	c.pending = false
	c.mu.Unlock()
	if c.broadcast != nil {
		c.broadcast.Sample(models.LocationSample{TrainerID: c.trainerID, Loc: coord, TakenAt: at})
	}
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

func (c *Controller) isGranted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.granted
}

func target(next bool) string {
	if next {
		return "online"
	}
	return "offline"
}

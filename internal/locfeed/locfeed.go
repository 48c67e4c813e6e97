// Package locfeed runs the periodic location sampler that backs an
// online trainer's presence. A feed is only active between Start and
// Stop; a stopped feed never emits again, even for a fix that was
// already in flight.
package locfeed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/trainer-marketplace/internal/geoindex"
	"github.com/example/trainer-marketplace/internal/geoloc"
	"github.com/example/trainer-marketplace/internal/models"
	"github.com/example/trainer-marketplace/internal/observability"
)

// Sink receives each accepted sample, in the order produced.
// Implementations must not call back into the feed.
type Sink func(c models.Coord, at time.Time)

type Config struct {
	// MinInterval and MinDisplacement form the dual trigger: a sample
	// is emitted when either has been exceeded since the last one.
	MinInterval     time.Duration
	MinDisplacement float64 // meters
	// PollInterval is how often the platform is asked for a fix to
	// evaluate the triggers.
	PollInterval time.Duration
	// FixTimeout bounds a single platform call so a hung positioning
	// service fails instead of blocking the feed.
	FixTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinInterval <= 0 {
		c.MinInterval = 30 * time.Second
	}
	if c.MinDisplacement <= 0 {
		c.MinDisplacement = 10
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.FixTimeout <= 0 {
		c.FixTimeout = 4 * time.Second
	}
	return c
}

type Feed struct {
	locator geoloc.Locator
	cfg     Config
	log     *slog.Logger

	mu     sync.Mutex
	gen    uint64 // current subscription; stale runs compare before emitting
	active bool
	cancel context.CancelFunc
	last   *models.Coord
	lastAt time.Time
}

func New(locator geoloc.Locator, cfg Config, log *slog.Logger) *Feed {
	return &Feed{locator: locator, cfg: cfg.withDefaults(), log: log}
}

// Start begins sampling: one immediate fix, then the dual-trigger
// schedule. Starting an already-running feed supersedes the prior
// subscription entirely.
func (f *Feed) Start(sink Sink) {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	gen := f.gen
	f.active = true
	f.last = nil
	f.lastAt = time.Time{}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.mu.Unlock()

	go f.run(ctx, gen, sink)
}

// Stop cancels the subscription. By the time it returns, no further
// emissions can occur: the generation is invalidated under the same
// lock every emission must take.
func (f *Feed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.active = false
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// Running reports whether a subscription is active.
func (f *Feed) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *Feed) run(ctx context.Context, gen uint64, sink Sink) {
	f.sample(ctx, gen, sink, true)
	t := time.NewTicker(f.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			f.sample(ctx, gen, sink, false)
		}
	}
}

// sample takes one fix and emits it if this run is still current and
// a trigger has tripped. Fix failures are absorbed: the feed stays on
// schedule rather than terminating.
func (f *Feed) sample(ctx context.Context, gen uint64, sink Sink, force bool) {
	fixCtx, cancel := context.WithTimeout(ctx, f.cfg.FixTimeout)
	c, err := f.locator.CurrentFix(fixCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		observability.LocationErrors.Inc()
		f.log.Warn("location fix failed", "error", err)
		return
	}
	now := time.Now()

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return // superseded or stopped while the fix was in flight
	}
	if !force && !f.due(c, now) {
		return
	}
	f.last = &c
	f.lastAt = now
	observability.LocationSamples.Inc()
	sink(c, now)
}

func (f *Feed) due(c models.Coord, now time.Time) bool {
	if f.last == nil {
		return true
	}
	if now.Sub(f.lastAt) >= f.cfg.MinInterval {
		return true
	}
	return geoindex.Haversine(f.last.Lat, f.last.Lon, c.Lat, c.Lon) >= f.cfg.MinDisplacement
}

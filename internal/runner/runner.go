// Package runner drives the session tracker from an FSD event source and
// publishes presence on a fixed cadence.
package runner

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/unklstewy/atc-presence/internal/capture"
	"github.com/unklstewy/atc-presence/pkg/clock"
	"github.com/unklstewy/atc-presence/pkg/config"
	"github.com/unklstewy/atc-presence/pkg/fsd"
	"github.com/unklstewy/atc-presence/pkg/presence"
	"github.com/unklstewy/atc-presence/pkg/tracker"
)

// Opener starts an event source on a capture interface.
type Opener func(iface capture.Interface) (fsd.Source, error)

// Config controls loop cadence and persistence of the interface choice.
type Config struct {
	// TickInterval is the polling interval (default: 50ms)
	TickInterval time.Duration

	// PublishEvery is the number of ticks between publishes (default: 100)
	PublishEvery int

	// InterfaceFile records the last opened interface; empty disables it
	InterfaceFile string
}

// Runner is the single owner of a Tracker. It polls one packet per tick,
// applies it, and every PublishEvery ticks builds and publishes presence.
type Runner struct {
	cfg       Config
	clock     clock.Clock
	tracker   *tracker.Tracker
	selection *capture.Selection
	open      Opener
	publisher presence.Publisher

	source      fsd.Source
	seenVersion uint64
	tick        atomic.Uint64
	sessionID   uuid.UUID

	// outbox is set by Run; Step publishes inline when it is nil.
	outbox chan presence.Activity

	mu     sync.RWMutex
	latest presence.Activity
}

// New creates a Runner. sel may be nil when the source never changes, in
// which case SetSource must be used.
func New(cfg Config, c clock.Clock, t *tracker.Tracker, sel *capture.Selection, open Opener, pub presence.Publisher) *Runner {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 50 * time.Millisecond
	}
	if cfg.PublishEvery <= 0 {
		cfg.PublishEvery = 100
	}
	if pub == nil {
		pub = presence.Multi{}
	}
	return &Runner{
		cfg:       cfg,
		clock:     c,
		tracker:   t,
		selection: sel,
		open:      open,
		publisher: pub,
		sessionID: uuid.New(),
	}
}

// SetSource replaces the current source directly, closing the old one.
func (r *Runner) SetSource(src fsd.Source) {
	r.closeSource()
	r.source = src
}

// Run ticks until ctx is cancelled. Publishing happens on a separate
// goroutine so a slow sink never stalls packet processing; only the
// newest pending activity is kept. The tracker is touched only from the
// Run goroutine.
func (r *Runner) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()
	defer r.closeSource()

	r.outbox = make(chan presence.Activity, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.publishLoop(ctx)
	}()
	defer wg.Wait()

	for {
		r.Step(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Step performs one loop iteration: follow the interface selection, apply
// at most one packet, and publish when the tick count is due.
func (r *Runner) Step(ctx context.Context) {
	r.followSelection()

	if r.source != nil {
		if pkt, ok := r.source.Next(); ok {
			r.Apply(pkt)
		}
	}

	if r.tick.Load()%uint64(r.cfg.PublishEvery) == 0 {
		r.publish(ctx)
	}
	r.tick.Add(1)
}

// Apply routes one packet to the tracker.
func (r *Runner) Apply(pkt fsd.Packet) {
	switch pkt.Origin {
	case fsd.OriginClient:
		r.applyClient(pkt.Event)
	case fsd.OriginServer:
		r.applyServer(pkt.Event)
	}
}

func (r *Runner) applyClient(ev fsd.Event) {
	switch e := ev.(type) {
	case fsd.TrackEvent:
		switch e.Kind {
		case fsd.AcceptHandoff:
			r.tracker.RecordHandoff(e.Aircraft)
		case fsd.InitiateTrack:
			r.tracker.BeginTrack(e.Aircraft)
		case fsd.DropTrack:
			r.tracker.EndTrack(e.Aircraft)
		case fsd.BeaconAssigned:
			r.tracker.AssignSquawk(e.Aircraft)
		}
	case fsd.ControllerPosition:
		// vATIS connections share the controller's client but are not
		// the controller's own position.
		if strings.Contains(e.Callsign, "ATIS") {
			return
		}
		if r.tracker.ObserveControllerPosition(e) {
			r.startSession(e.Callsign)
		}
	case fsd.PilotPosition:
		if r.tracker.ObservePilotSelfPosition(e) {
			r.startSession(e.Callsign)
		}
	case fsd.FlightStrip:
		r.tracker.PushStrip(e.Target)
	}
}

func (r *Runner) applyServer(ev fsd.Event) {
	switch e := ev.(type) {
	case fsd.PilotPosition:
		r.tracker.ObserveOtherPilotPosition(e)
	case fsd.DeleteClient:
		r.tracker.ForgetPilot(e.Callsign)
	}
}

func (r *Runner) startSession(callsign string) {
	r.sessionID = uuid.New()
	log.Printf("Session started as %s (%s)", callsign, r.sessionID)
}

func (r *Runner) publish(ctx context.Context) {
	wasConnected := r.tracker.IsConnected()
	if r.tracker.ResetIfIdle() && wasConnected {
		log.Printf("No reports from %s for %v, session state reset",
			r.tracker.Identity(), r.tracker.SinceLastReport().Truncate(time.Second))
	}

	activity := presence.FromSnapshot(r.tracker.Snapshot(), r.sessionID, r.clock.Now())

	r.mu.Lock()
	r.latest = activity
	r.mu.Unlock()

	if r.outbox == nil {
		r.deliver(ctx, activity)
		return
	}

	// Replace any activity the worker has not picked up yet.
	select {
	case <-r.outbox:
	default:
	}
	select {
	case r.outbox <- activity:
	default:
	}
}

func (r *Runner) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-r.outbox:
			r.deliver(ctx, a)
		}
	}
}

func (r *Runner) deliver(ctx context.Context, a presence.Activity) {
	if err := r.publisher.Publish(ctx, a); err != nil {
		log.Printf("⚠️  Failed to update presence: %v", err)
	}
}

// followSelection reopens the source when the shared interface selection
// has changed since the last tick.
func (r *Runner) followSelection() {
	if r.selection == nil || !r.selection.Changed(r.seenVersion) {
		return
	}

	iface, version, ok := r.selection.Get()
	r.seenVersion = version
	r.closeSource()
	if !ok {
		log.Println("Capture interface cleared")
		return
	}
	if r.open == nil {
		log.Printf("No source opener configured for %s", iface.Name)
		return
	}

	src, err := r.open(iface)
	if err != nil {
		log.Printf("Failed to start capture on %s: %v", iface.Name, err)
		return
	}
	r.source = src
	log.Printf("✓ Capturing on %s", iface.Name)

	if r.cfg.InterfaceFile != "" {
		if err := config.SaveLastInterface(r.cfg.InterfaceFile, iface.Name); err != nil {
			log.Printf("Failed to remember interface: %v", err)
		}
	}
}

func (r *Runner) closeSource() {
	if r.source == nil {
		return
	}
	if err := r.source.Close(); err != nil {
		log.Printf("Failed to close source: %v", err)
	}
	r.source = nil
}

// Latest returns the most recently built activity. Safe to call from any
// goroutine.
func (r *Runner) Latest() presence.Activity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Ticks returns the number of completed steps. Safe to call from any
// goroutine.
func (r *Runner) Ticks() uint64 { return r.tick.Load() }

// SessionID returns the current session identifier.
func (r *Runner) SessionID() uuid.UUID { return r.sessionID }

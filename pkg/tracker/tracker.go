// Package tracker derives a controller's or pilot's live session state from
// decoded FSD events.
//
// A Tracker is owned by a single goroutine. It performs no I/O and is not
// safe for concurrent mutation; callers that share it must serialise access
// themselves.
package tracker

import (
	"time"

	"github.com/unklstewy/atc-presence/pkg/clock"
	"github.com/unklstewy/atc-presence/pkg/coordinates"
	"github.com/unklstewy/atc-presence/pkg/fsd"
)

// DefaultIdleTimeout is how long the tracked identity may go without a
// position report before derived state is considered stale.
const DefaultIdleTimeout = 60 * time.Second

// Config tunes the time-based rules of a Tracker.
type Config struct {
	// Cooldown is the per-callsign debounce window for squawk, strip and
	// handoff counters (default: 60s)
	Cooldown time.Duration

	// IdleTimeout is the report silence after which ResetIfIdle clears
	// derived state (default: 60s)
	IdleTimeout time.Duration
}

// DefaultConfig returns the standard 60 second windows.
func DefaultConfig() Config {
	return Config{
		Cooldown:    DefaultCooldown,
		IdleTimeout: DefaultIdleTimeout,
	}
}

// Tracker is the session state machine.
type Tracker struct {
	clock       clock.Clock
	idleTimeout time.Duration

	identity     string
	sessionStart time.Time
	lastReport   time.Time

	position    coordinates.Position
	hasPosition bool
	station     Station

	visible map[string]struct{}
	// tracked is independent of visible: an aircraft keeps its track after
	// it is acquired until dropped or forgotten.
	tracked   map[string]struct{}
	cooldowns *Cooldowns

	squawks  uint32
	strips   uint32
	handoffs uint32
}

// New creates an empty Tracker.
func New(c clock.Clock, cfg Config) *Tracker {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	now := c.Now()
	return &Tracker{
		clock:        c,
		idleTimeout:  cfg.IdleTimeout,
		sessionStart: now,
		lastReport:   now,
		visible:      make(map[string]struct{}),
		tracked:      make(map[string]struct{}),
		cooldowns:    NewCooldowns(c, cfg.Cooldown),
	}
}

// UpdateIdentity records a report from callsign. It returns true when the
// callsign differs from the current identity, in which case the session
// start time moves to now. Every call refreshes the last-report time used
// by the idle policy.
func (t *Tracker) UpdateIdentity(callsign string) bool {
	now := t.clock.Now()
	changed := callsign != t.identity

	t.identity = callsign
	t.lastReport = now
	if changed {
		t.sessionStart = now
	}
	return changed
}

// ObserveControllerPosition handles a position report of the tracked
// identity as a controller.
func (t *Tracker) ObserveControllerPosition(pos fsd.ControllerPosition) bool {
	changed := t.UpdateIdentity(pos.Callsign)
	t.setPosition(pos.Latitude, pos.Longitude)
	t.station = ControllerStation{Report: pos}
	return changed
}

// ObservePilotSelfPosition handles a position report of the tracked
// identity as a pilot.
func (t *Tracker) ObservePilotSelfPosition(pos fsd.PilotPosition) bool {
	changed := t.UpdateIdentity(pos.Callsign)
	t.setPosition(pos.Latitude, pos.Longitude)
	t.station = PilotStation{Report: pos}
	return changed
}

func (t *Tracker) setPosition(lat, lon float64) {
	t.position = coordinates.NewPosition(lat, lon)
	t.hasPosition = true
}

// BeginTrack marks an aircraft as under radar-track ownership.
func (t *Tracker) BeginTrack(callsign string) {
	t.tracked[callsign] = struct{}{}
}

// EndTrack drops track ownership. Unknown callsigns are ignored.
func (t *Tracker) EndTrack(callsign string) {
	delete(t.tracked, callsign)
}

// AssignSquawk counts a beacon-code assignment unless the aircraft is
// inside its cooldown.
func (t *Tracker) AssignSquawk(callsign string) {
	if !t.debounce(callsign) {
		return
	}
	t.squawks++
}

// PushStrip counts a flight strip push unless the aircraft is inside its
// cooldown.
func (t *Tracker) PushStrip(callsign string) {
	if !t.debounce(callsign) {
		return
	}
	t.strips++
}

// RecordHandoff counts an accepted handoff and acquires the track unless
// the aircraft is inside its cooldown.
func (t *Tracker) RecordHandoff(callsign string) {
	if !t.debounce(callsign) {
		return
	}
	t.BeginTrack(callsign)
	t.handoffs++
}

// debounce reports whether callsign may fire and, if so, marks it.
// Squawks, strips and handoffs share one ledger.
func (t *Tracker) debounce(callsign string) bool {
	if !t.cooldowns.MayFire(callsign) {
		return false
	}
	t.cooldowns.Mark(callsign)
	return true
}

// ObserveOtherPilotPosition updates visibility for another pilot. Without
// a reference position nothing happens. As a controller, pilots outside
// the visibility range are forgotten; otherwise visibility is unconditional.
func (t *Tracker) ObserveOtherPilotPosition(pos fsd.PilotPosition) {
	if !t.hasPosition {
		return
	}

	if ctrl, ok := t.station.(ControllerStation); ok {
		other := coordinates.NewPosition(pos.Latitude, pos.Longitude)
		if !t.position.Within(other, float64(ctrl.Report.VisibilityRange)) {
			t.ForgetPilot(pos.Callsign)
			return
		}
	}
	t.visible[pos.Callsign] = struct{}{}
}

// ForgetPilot removes an aircraft from both the visible and tracked sets.
// Used on disconnect and when an aircraft leaves visibility range.
func (t *Tracker) ForgetPilot(callsign string) {
	delete(t.visible, callsign)
	delete(t.tracked, callsign)
}

// Reset clears the station, the visible and tracked sets, the squawk and
// strip counters and the cooldown ledger. Identity, session start, the last
// reference position and the handoff counter are kept.
func (t *Tracker) Reset() {
	t.station = nil
	t.squawks = 0
	t.strips = 0
	clear(t.tracked)
	clear(t.visible)
	t.cooldowns.Clear()
}

// ResetIfIdle applies the idle-timeout policy: if the identity has not
// reported for longer than the idle timeout, Reset is called. It returns
// true when a reset happened.
func (t *Tracker) ResetIfIdle() bool {
	if t.SinceLastReport() <= t.idleTimeout {
		return false
	}
	t.Reset()
	return true
}

// Identity returns the current callsign.
func (t *Tracker) Identity() string { return t.identity }

// SessionStart returns when the identity last changed.
func (t *Tracker) SessionStart() time.Time { return t.sessionStart }

// SinceLastReport returns the time elapsed since the last identity report.
func (t *Tracker) SinceLastReport() time.Duration {
	return t.clock.Now().Sub(t.lastReport)
}

// Station returns the current station, or nil.
func (t *Tracker) Station() Station { return t.station }

// Controller returns the controller report when connected as ATC.
func (t *Tracker) Controller() (fsd.ControllerPosition, bool) {
	ctrl, ok := t.station.(ControllerStation)
	return ctrl.Report, ok
}

// Pilot returns the pilot report when connected as a pilot.
func (t *Tracker) Pilot() (fsd.PilotPosition, bool) {
	pilot, ok := t.station.(PilotStation)
	return pilot.Report, ok
}

// Position returns the last known position of the tracked identity.
func (t *Tracker) Position() (coordinates.Position, bool) {
	return t.position, t.hasPosition
}

// IsATC reports whether the identity is connected as a controller.
func (t *Tracker) IsATC() bool {
	_, ok := t.station.(ControllerStation)
	return ok
}

// IsConnected reports whether the identity is connected as anything.
func (t *Tracker) IsConnected() bool { return t.station != nil }

func (t *Tracker) VisibleCount() int { return len(t.visible) }
func (t *Tracker) TrackedCount() int { return len(t.tracked) }

// IsVisible reports whether callsign is in the visible set.
func (t *Tracker) IsVisible(callsign string) bool {
	_, ok := t.visible[callsign]
	return ok
}

// IsTracked reports whether callsign is in the tracked set.
func (t *Tracker) IsTracked(callsign string) bool {
	_, ok := t.tracked[callsign]
	return ok
}

func (t *Tracker) SquawkCount() uint32  { return t.squawks }
func (t *Tracker) StripCount() uint32   { return t.strips }
func (t *Tracker) HandoffCount() uint32 { return t.handoffs }

// Snapshot is a read-only copy of the values a presence summary needs.
type Snapshot struct {
	Identity     string
	Station      Station
	SessionStart time.Time
	Visible      int
	Tracked      int
	Squawks      uint32
	Strips       uint32
	Handoffs     uint32
}

// Controller returns the controller report when the snapshot was taken as ATC.
func (s Snapshot) Controller() (fsd.ControllerPosition, bool) {
	ctrl, ok := s.Station.(ControllerStation)
	return ctrl.Report, ok
}

// Snapshot copies the current state.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Identity:     t.identity,
		Station:      t.station,
		SessionStart: t.sessionStart,
		Visible:      len(t.visible),
		Tracked:      len(t.tracked),
		Squawks:      t.squawks,
		Strips:       t.strips,
		Handoffs:     t.handoffs,
	}
}

// Package presence projects tracker state into the short status strings
// shown by a rich-presence client and fans them out to publishers.
package presence

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unklstewy/atc-presence/pkg/tracker"
)

// IdleDetails is shown when the identity is not connected as a controller.
const IdleDetails = "Idling"

// Image keys understood by the presence client.
const (
	LargeImageKey = "radar"
	SmallImageKey = "vatsim1"
)

// Summary is the four display strings derived from a tracker snapshot.
type Summary struct {
	Title        string `json:"title"`
	Details      string `json:"details"`
	LargeTooltip string `json:"large_tooltip"`
	SmallTooltip string `json:"small_tooltip"`
}

// Build derives a Summary from a snapshot. It has no side effects.
//
// Observer, delivery and ground positions report what they see plus
// squawk and strip counts; positions that own radar tracks report
// tracked/visible and handoffs. Anything other than a controller idles.
func Build(snap tracker.Snapshot) Summary {
	ctrl, ok := snap.Controller()
	if !ok {
		return Summary{Details: IdleDetails}
	}

	var s Summary
	if ctrl.Facility.ObservesOnly() {
		s.Details = fmt.Sprintf("Seeing %d aircraft", snap.Visible)
		s.SmallTooltip = fmt.Sprintf("%d Squawks %d Strips", snap.Squawks, snap.Strips)
	} else {
		s.Details = fmt.Sprintf("Tracking %d/%d aircraft", snap.Tracked, snap.Visible)
		s.SmallTooltip = fmt.Sprintf("%d Handoffs", snap.Handoffs)
	}
	s.LargeTooltip = fmt.Sprintf("%s %s", ctrl.Rating, ctrl.Frequency)
	s.Title = snap.Identity
	return s
}

// IsIdle reports whether the summary is the idle placeholder.
func (s Summary) IsIdle() bool {
	return s.Title == "" && s.Details == IdleDetails
}

// Activity is a Summary plus the session metadata handed to publishers.
type Activity struct {
	Summary

	// Identity is the tracked callsign, set for pilots and idle sessions too
	Identity string `json:"identity,omitempty"`

	// SessionID identifies the current identity session
	SessionID uuid.UUID `json:"session_id"`

	// StartTime is when the current identity first reported
	StartTime time.Time `json:"start_time"`

	// LargeImage and SmallImage are presence client asset keys
	LargeImage string `json:"large_image"`
	SmallImage string `json:"small_image"`

	// UpdatedAt is when this activity was built
	UpdatedAt time.Time `json:"updated_at"`

	// Counters are the raw values behind the summary
	Counters Counters `json:"counters"`
}

// Counters are the tracker values a summary is built from.
type Counters struct {
	Connected bool   `json:"connected"`
	Facility  string `json:"facility,omitempty"`
	Visible   int    `json:"visible"`
	Tracked   int    `json:"tracked"`
	Squawks   uint32 `json:"squawks"`
	Strips    uint32 `json:"strips"`
	Handoffs  uint32 `json:"handoffs"`
}

// CountersFrom copies the counters out of a snapshot.
func CountersFrom(snap tracker.Snapshot) Counters {
	c := Counters{
		Connected: snap.Station != nil,
		Visible:   snap.Visible,
		Tracked:   snap.Tracked,
		Squawks:   snap.Squawks,
		Strips:    snap.Strips,
		Handoffs:  snap.Handoffs,
	}
	if ctrl, ok := snap.Controller(); ok {
		c.Facility = ctrl.Facility.String()
	}
	return c
}

// NewActivity wraps a summary for publishing.
func NewActivity(s Summary, sessionID uuid.UUID, start, now time.Time) Activity {
	return Activity{
		Summary:    s,
		SessionID:  sessionID,
		StartTime:  start,
		LargeImage: LargeImageKey,
		SmallImage: SmallImageKey,
		UpdatedAt:  now,
	}
}

// FromSnapshot builds the summary and activity for snap in one step.
func FromSnapshot(snap tracker.Snapshot, sessionID uuid.UUID, now time.Time) Activity {
	a := NewActivity(Build(snap), sessionID, snap.SessionStart, now)
	a.Identity = snap.Identity
	a.Counters = CountersFrom(snap)
	return a
}

// StartUnix returns the start time as Unix seconds, the form presence
// clients take.
func (a Activity) StartUnix() int64 {
	return a.StartTime.Unix()
}

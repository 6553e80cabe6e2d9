package fsd

// Event is a decoded FSD packet relevant to session tracking.
// The concrete types below are the only implementations.
type Event interface {
	eventType() string
}

// Origin identifies which side of the connection produced a packet.
type Origin int

const (
	// OriginClient is traffic sent by the locally running client.
	OriginClient Origin = iota

	// OriginServer is traffic relayed by the network server.
	OriginServer
)

// String returns the lowercase name used in replay files.
func (o Origin) String() string {
	switch o {
	case OriginClient:
		return "client"
	case OriginServer:
		return "server"
	default:
		return "unknown"
	}
}

// Packet pairs a decoded event with the side it came from.
type Packet struct {
	Origin Origin
	Event  Event
}

// ControllerPosition is an ATC position update.
type ControllerPosition struct {
	// Callsign of the controller position (e.g., "KORD_TWR")
	Callsign string

	// Latitude of the visibility centre in decimal degrees
	Latitude float64

	// Longitude of the visibility centre in decimal degrees
	Longitude float64

	// Facility is the controller position category
	Facility Facility

	// VisibilityRange is the radar visibility radius in miles
	VisibilityRange int

	// Rating is the controller's network rating
	Rating Rating

	// Frequency is the primary frequency as displayed (e.g., "120.750")
	Frequency string
}

// PilotPosition is a pilot position update.
type PilotPosition struct {
	// Callsign of the aircraft (e.g., "UAL123")
	Callsign string

	// Latitude in decimal degrees
	Latitude float64

	// Longitude in decimal degrees
	Longitude float64

	// Altitude in feet MSL
	Altitude int

	// Squawk is the transponder code currently set
	Squawk string
}

// TrackKind enumerates radar-track related client queries.
type TrackKind int

const (
	AcceptHandoff TrackKind = iota
	InitiateTrack
	DropTrack
	BeaconAssigned
)

// String returns the replay name of the track kind.
func (k TrackKind) String() string {
	switch k {
	case AcceptHandoff:
		return "accept_handoff"
	case InitiateTrack:
		return "initiate_track"
	case DropTrack:
		return "drop_track"
	case BeaconAssigned:
		return "beacon_assigned"
	default:
		return "unknown"
	}
}

// TrackEvent is a track ownership or beacon-code query about an aircraft.
type TrackEvent struct {
	Kind     TrackKind
	Aircraft string
}

// FlightStrip is a strip pushed to another controller.
type FlightStrip struct {
	Target string
}

// DeleteClient announces that a client left the network.
type DeleteClient struct {
	Callsign string
}

func (ControllerPosition) eventType() string { return "atc_position" }
func (PilotPosition) eventType() string      { return "pilot_position" }
func (TrackEvent) eventType() string         { return "track" }
func (FlightStrip) eventType() string        { return "flight_strip" }
func (DeleteClient) eventType() string       { return "delete_client" }

// TypeName returns the replay type tag for an event.
func TypeName(e Event) string {
	if e == nil {
		return ""
	}
	return e.eventType()
}

// Source is the interface that all event providers must implement.
// A live packet sniffer and the offline ReplaySource both satisfy it.
type Source interface {
	// Next returns the next decoded packet. The boolean is false when no
	// packet is currently available; callers poll again on the next tick.
	Next() (Packet, bool)

	// Close cleanly shuts down the source.
	Close() error
}

package tracker

import (
	"github.com/unklstewy/atc-presence/pkg/coordinates"
	"github.com/unklstewy/atc-presence/pkg/fsd"
)

// Station is what the tracked identity is currently connected as. A nil
// Station means neither; ControllerStation and PilotStation are the only
// implementations, so a session can never be both at once.
type Station interface {
	Callsign() string
	Position() coordinates.Position
	isStation()
}

// ControllerStation holds the last ATC position report of the tracked
// identity.
type ControllerStation struct {
	Report fsd.ControllerPosition
}

// PilotStation holds the last position report of the tracked identity when
// it is flying.
type PilotStation struct {
	Report fsd.PilotPosition
}

func (s ControllerStation) Callsign() string { return s.Report.Callsign }

func (s ControllerStation) Position() coordinates.Position {
	return coordinates.NewPosition(s.Report.Latitude, s.Report.Longitude)
}

func (s PilotStation) Callsign() string { return s.Report.Callsign }

func (s PilotStation) Position() coordinates.Position {
	return coordinates.NewPosition(s.Report.Latitude, s.Report.Longitude)
}

func (ControllerStation) isStation() {}
func (PilotStation) isStation()      {}

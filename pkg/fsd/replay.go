package fsd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// record is the JSON-lines shape of a replayed packet.
type record struct {
	Origin    string  `json:"origin"`
	Type      string  `json:"type"`
	Callsign  string  `json:"callsign,omitempty"`
	Latitude  float64 `json:"lat,omitempty"`
	Longitude float64 `json:"lon,omitempty"`
	Facility  string  `json:"facility,omitempty"`
	VisRange  int     `json:"vis_range,omitempty"`
	Rating    string  `json:"rating,omitempty"`
	Frequency string  `json:"frequency,omitempty"`
	Altitude  int     `json:"altitude,omitempty"`
	Squawk    string  `json:"squawk,omitempty"`
	Kind      string  `json:"kind,omitempty"`
	Aircraft  string  `json:"aircraft,omitempty"`
	Target    string  `json:"target,omitempty"`
}

// DecodeLine parses one JSON-lines replay record into a Packet.
func DecodeLine(line []byte) (Packet, error) {
	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Packet{}, fmt.Errorf("failed to parse replay record: %w", err)
	}

	var pkt Packet
	switch strings.ToLower(rec.Origin) {
	case "client", "":
		pkt.Origin = OriginClient
	case "server":
		pkt.Origin = OriginServer
	default:
		return Packet{}, fmt.Errorf("unknown origin %q", rec.Origin)
	}

	switch rec.Type {
	case "atc_position":
		pkt.Event = ControllerPosition{
			Callsign:        rec.Callsign,
			Latitude:        rec.Latitude,
			Longitude:       rec.Longitude,
			Facility:        ParseFacility(rec.Facility),
			VisibilityRange: rec.VisRange,
			Rating:          ParseRating(rec.Rating),
			Frequency:       rec.Frequency,
		}
	case "pilot_position":
		pkt.Event = PilotPosition{
			Callsign:  rec.Callsign,
			Latitude:  rec.Latitude,
			Longitude: rec.Longitude,
			Altitude:  rec.Altitude,
			Squawk:    rec.Squawk,
		}
	case "track":
		kind, err := parseTrackKind(rec.Kind)
		if err != nil {
			return Packet{}, err
		}
		pkt.Event = TrackEvent{Kind: kind, Aircraft: rec.Aircraft}
	case "flight_strip":
		pkt.Event = FlightStrip{Target: rec.Target}
	case "delete_client":
		pkt.Event = DeleteClient{Callsign: rec.Callsign}
	default:
		return Packet{}, fmt.Errorf("unknown packet type %q", rec.Type)
	}

	return pkt, nil
}

// EncodeLine renders a Packet as a single JSON-lines record (no newline).
func EncodeLine(pkt Packet) ([]byte, error) {
	rec := record{Origin: pkt.Origin.String(), Type: TypeName(pkt.Event)}

	switch e := pkt.Event.(type) {
	case ControllerPosition:
		rec.Callsign = e.Callsign
		rec.Latitude = e.Latitude
		rec.Longitude = e.Longitude
		rec.Facility = e.Facility.String()
		rec.VisRange = e.VisibilityRange
		rec.Rating = e.Rating.String()
		rec.Frequency = e.Frequency
	case PilotPosition:
		rec.Callsign = e.Callsign
		rec.Latitude = e.Latitude
		rec.Longitude = e.Longitude
		rec.Altitude = e.Altitude
		rec.Squawk = e.Squawk
	case TrackEvent:
		rec.Kind = e.Kind.String()
		rec.Aircraft = e.Aircraft
	case FlightStrip:
		rec.Target = e.Target
	case DeleteClient:
		rec.Callsign = e.Callsign
	default:
		return nil, fmt.Errorf("cannot encode event of type %T", pkt.Event)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal replay record: %w", err)
	}
	return data, nil
}

func parseTrackKind(s string) (TrackKind, error) {
	for _, k := range []TrackKind{AcceptHandoff, InitiateTrack, DropTrack, BeaconAssigned} {
		if s == k.String() {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown track kind %q", s)
}

// ReplaySource yields packets from a recorded JSON-lines stream, one per
// Next call. Blank lines and lines starting with '#' are skipped; malformed
// records are logged and skipped.
type ReplaySource struct {
	reader  io.Reader
	closer  io.Closer
	scanner *bufio.Scanner
	loop    bool
	line    int
	skipped int
	yielded int
}

// NewReplaySource creates a source over r. When loop is true and r is an
// io.Seeker, the stream restarts from the beginning on EOF.
func NewReplaySource(r io.Reader, loop bool) *ReplaySource {
	s := &ReplaySource{reader: r, loop: loop}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	s.scanner = bufio.NewScanner(r)
	return s
}

// OpenReplayFile opens a replay file from disk.
func OpenReplayFile(path string, loop bool) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	return NewReplaySource(f, loop), nil
}

// Next returns the next valid packet, or false at end of stream.
func (s *ReplaySource) Next() (Packet, bool) {
	for {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				log.Printf("Replay read error after line %d: %v", s.line, err)
				return Packet{}, false
			}
			if !s.rewind() {
				return Packet{}, false
			}
			continue
		}
		s.line++

		text := strings.TrimSpace(s.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		pkt, err := DecodeLine([]byte(text))
		if err != nil {
			s.skipped++
			log.Printf("Skipping replay line %d: %v", s.line, err)
			continue
		}
		s.yielded++
		return pkt, true
	}
}

// rewind restarts a looping source. It returns false when the stream
// cannot or should not restart.
func (s *ReplaySource) rewind() bool {
	if !s.loop || s.yielded == 0 {
		return false
	}
	seeker, ok := s.reader.(io.Seeker)
	if !ok {
		return false
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		log.Printf("Failed to rewind replay: %v", err)
		return false
	}
	s.scanner = bufio.NewScanner(s.reader)
	s.line = 0
	s.yielded = 0
	return true
}

// Skipped returns how many malformed records have been dropped.
func (s *ReplaySource) Skipped() int {
	return s.skipped
}

// Close releases the underlying reader if it is closable.
func (s *ReplaySource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

package fsd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFacility(t *testing.T) {
	tests := []struct {
		in           string
		want         Facility
		observesOnly bool
	}{
		{"OBS", FacilityOBS, true},
		{"del", FacilityDEL, true},
		{"GND", FacilityGND, true},
		{"TWR", FacilityTWR, false},
		{"5", FacilityAPP, false},
		{"CTR", FacilityCTR, false},
		{"FSS", FacilityFSS, false},
		{"bogus", FacilityUndefined, true},
		{"", FacilityUndefined, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseFacility(tt.in)
			if got != tt.want {
				t.Errorf("ParseFacility(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if got.ObservesOnly() != tt.observesOnly {
				t.Errorf("%v.ObservesOnly() = %v, want %v", got, got.ObservesOnly(), tt.observesOnly)
			}
		})
	}

	if Facility(42).String() != "Undefined" {
		t.Errorf("Expected out-of-range facility to be Undefined, got %s", Facility(42))
	}
}

func TestRating(t *testing.T) {
	if RatingC1.String() != "C1" {
		t.Errorf("Expected C1, got %s", RatingC1)
	}
	if ParseRating("s3") != RatingS3 {
		t.Errorf("Expected S3, got %v", ParseRating("s3"))
	}
	if Rating(0).String() != "Unknown" {
		t.Errorf("Expected Unknown for zero rating, got %s", Rating(0))
	}
}

func TestDecodeLine(t *testing.T) {
	t.Run("Controller position", func(t *testing.T) {
		pkt, err := DecodeLine([]byte(`{"origin":"client","type":"atc_position","callsign":"KORD_TWR","lat":41.97,"lon":-87.9,"facility":"TWR","vis_range":50,"rating":"C1","frequency":"120.750"}`))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if pkt.Origin != OriginClient {
			t.Errorf("Expected client origin, got %v", pkt.Origin)
		}
		pos, ok := pkt.Event.(ControllerPosition)
		if !ok {
			t.Fatalf("Expected ControllerPosition, got %T", pkt.Event)
		}
		if pos.Callsign != "KORD_TWR" || pos.Facility != FacilityTWR || pos.VisibilityRange != 50 {
			t.Errorf("Unexpected position: %+v", pos)
		}
		if pos.Rating != RatingC1 || pos.Frequency != "120.750" {
			t.Errorf("Unexpected rating/frequency: %v %s", pos.Rating, pos.Frequency)
		}
	})

	t.Run("Server pilot position", func(t *testing.T) {
		pkt, err := DecodeLine([]byte(`{"origin":"server","type":"pilot_position","callsign":"UAL123","lat":42.0,"lon":-88.0,"altitude":5000,"squawk":"2200"}`))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if pkt.Origin != OriginServer {
			t.Errorf("Expected server origin, got %v", pkt.Origin)
		}
		if pos := pkt.Event.(PilotPosition); pos.Callsign != "UAL123" || pos.Altitude != 5000 {
			t.Errorf("Unexpected pilot: %+v", pos)
		}
	})

	t.Run("Track kinds", func(t *testing.T) {
		for _, kind := range []TrackKind{AcceptHandoff, InitiateTrack, DropTrack, BeaconAssigned} {
			line := `{"type":"track","kind":"` + kind.String() + `","aircraft":"DAL9"}`
			pkt, err := DecodeLine([]byte(line))
			if err != nil {
				t.Fatalf("Unexpected error for %s: %v", kind, err)
			}
			ev := pkt.Event.(TrackEvent)
			if ev.Kind != kind || ev.Aircraft != "DAL9" {
				t.Errorf("Unexpected track event: %+v", ev)
			}
		}
	})

	t.Run("Rejects bad input", func(t *testing.T) {
		bad := []string{
			`not json`,
			`{"type":"nope"}`,
			`{"origin":"sideways","type":"flight_strip"}`,
			`{"type":"track","kind":"juggle"}`,
		}
		for _, line := range bad {
			if _, err := DecodeLine([]byte(line)); err == nil {
				t.Errorf("Expected error for %s", line)
			}
		}
	})
}

func TestEncodeDecode(t *testing.T) {
	packets := []Packet{
		{Origin: OriginClient, Event: ControllerPosition{Callsign: "ZAU_CTR", Latitude: 41.5, Longitude: -88.1, Facility: FacilityCTR, VisibilityRange: 300, Rating: RatingC3, Frequency: "133.200"}},
		{Origin: OriginServer, Event: DeleteClient{Callsign: "AAL44"}},
		{Origin: OriginClient, Event: FlightStrip{Target: "SWA12"}},
	}

	for _, pkt := range packets {
		line, err := EncodeLine(pkt)
		if err != nil {
			t.Fatalf("EncodeLine failed: %v", err)
		}
		got, err := DecodeLine(line)
		if err != nil {
			t.Fatalf("DecodeLine failed: %v", err)
		}
		if got != pkt {
			t.Errorf("Round trip mismatch: got %+v, want %+v", got, pkt)
		}
	}
}

func TestReplaySource(t *testing.T) {
	input := strings.Join([]string{
		`# recorded session`,
		`{"origin":"client","type":"flight_strip","target":"UAL1"}`,
		``,
		`garbage`,
		`{"origin":"server","type":"delete_client","callsign":"UAL1"}`,
	}, "\n")

	t.Run("Yields valid packets and skips the rest", func(t *testing.T) {
		src := NewReplaySource(strings.NewReader(input), false)
		defer src.Close()

		var got []Packet
		for {
			pkt, ok := src.Next()
			if !ok {
				break
			}
			got = append(got, pkt)
		}
		if len(got) != 2 {
			t.Fatalf("Expected 2 packets, got %d", len(got))
		}
		if src.Skipped() != 1 {
			t.Errorf("Expected 1 skipped line, got %d", src.Skipped())
		}
		if _, ok := src.Next(); ok {
			t.Error("Expected exhausted source to stay exhausted")
		}
	})

	t.Run("Loops from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.jsonl")
		if err := os.WriteFile(path, []byte(input), 0644); err != nil {
			t.Fatalf("Failed to write replay: %v", err)
		}
		src, err := OpenReplayFile(path, true)
		if err != nil {
			t.Fatalf("OpenReplayFile failed: %v", err)
		}
		defer src.Close()

		for i := 0; i < 5; i++ {
			if _, ok := src.Next(); !ok {
				t.Fatalf("Expected looping source to keep yielding, stopped at %d", i)
			}
		}
	})

	t.Run("Looping stream with no valid packets ends", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.jsonl")
		if err := os.WriteFile(path, []byte("garbage\n"), 0644); err != nil {
			t.Fatalf("Failed to write replay: %v", err)
		}
		src, err := OpenReplayFile(path, true)
		if err != nil {
			t.Fatalf("OpenReplayFile failed: %v", err)
		}
		defer src.Close()

		if _, ok := src.Next(); ok {
			t.Error("Expected no packets")
		}
	})

	t.Run("Missing file", func(t *testing.T) {
		if _, err := OpenReplayFile("/nonexistent/replay.jsonl", false); err == nil {
			t.Error("Expected error for missing file")
		}
	})
}

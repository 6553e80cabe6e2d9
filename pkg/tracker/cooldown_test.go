package tracker

import (
	"testing"
	"time"

	"github.com/unklstewy/atc-presence/pkg/clock"
)

var epoch = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func TestCooldowns(t *testing.T) {
	t.Run("Unmarked key may fire", func(t *testing.T) {
		c := NewCooldowns(clock.Fake(epoch), time.Minute)
		if !c.MayFire("UAL1") {
			t.Error("Expected unmarked key to fire")
		}
	})

	t.Run("Marked key is blocked inside the window", func(t *testing.T) {
		fc := clock.Fake(epoch)
		c := NewCooldowns(fc, time.Minute)
		c.Mark("UAL1")

		fc.Advance(59 * time.Second)
		if c.MayFire("UAL1") {
			t.Error("Expected key to be blocked 59s after mark")
		}

		fc.Advance(time.Second)
		if !c.MayFire("UAL1") {
			t.Error("Expected key to fire exactly at the window")
		}
	})

	t.Run("Keys are independent", func(t *testing.T) {
		c := NewCooldowns(clock.Fake(epoch), time.Minute)
		c.Mark("UAL1")
		if !c.MayFire("DAL2") {
			t.Error("Expected other key to be unaffected")
		}
	})

	t.Run("Mark overwrites", func(t *testing.T) {
		fc := clock.Fake(epoch)
		c := NewCooldowns(fc, time.Minute)
		c.Mark("UAL1")
		fc.Advance(50 * time.Second)
		c.Mark("UAL1")
		fc.Advance(20 * time.Second)
		if c.MayFire("UAL1") {
			t.Error("Expected second mark to restart the window")
		}
	})

	t.Run("Clear removes all entries", func(t *testing.T) {
		c := NewCooldowns(clock.Fake(epoch), time.Minute)
		c.Mark("UAL1")
		c.Mark("DAL2")
		c.Clear()
		if c.Len() != 0 {
			t.Errorf("Expected empty ledger, got %d entries", c.Len())
		}
		if !c.MayFire("UAL1") {
			t.Error("Expected cleared key to fire")
		}
	})

	t.Run("Non-positive window falls back to default", func(t *testing.T) {
		c := NewCooldowns(clock.Fake(epoch), 0)
		if c.Window() != DefaultCooldown {
			t.Errorf("Expected %v, got %v", DefaultCooldown, c.Window())
		}
	})
}

// Package clock provides an injectable time source.
//
// Code that needs the current time or a periodic tick takes a Clock
// instead of calling the time package directly. Production wiring uses
// Real(); tests use Fake() and move time forward with Advance, so
// cooldown and idle-timeout rules can be checked without sleeping.
package clock

import "time"

// Clock abstracts the time operations used by the tracker and runner.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTicker returns a Ticker delivering ticks every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic timer. Read ticks from C and call Stop when done.
// C has capacity 1; ticks are dropped if the consumer falls behind.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stopFunc: ticker.Stop}
}

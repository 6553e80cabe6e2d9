package presence

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/unklstewy/atc-presence/pkg/clock"
)

func fakeClock() *clock.FakeClock {
	return clock.Fake(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
}

type recordingPublisher struct {
	got  []Activity
	errs []error
}

func (r *recordingPublisher) Publish(_ context.Context, a Activity) error {
	r.got = append(r.got, a)
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return err
	}
	return nil
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(log.New(&buf, "", 0))
	ctx := context.Background()

	active := Activity{Summary: Summary{Title: "KORD_TWR", Details: "Tracking 1/2 aircraft"}}
	p.Publish(ctx, active)
	p.Publish(ctx, active)
	p.Publish(ctx, Activity{Summary: Summary{Details: IdleDetails}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines (duplicates suppressed), got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "KORD_TWR") {
		t.Errorf("Expected callsign in first line, got %q", lines[0])
	}
	if lines[1] != "Presence: Idling" {
		t.Errorf("Unexpected idle line %q", lines[1])
	}
}

func TestMulti(t *testing.T) {
	first := &recordingPublisher{errs: []error{errors.New("boom")}}
	second := &recordingPublisher{}

	err := Multi{first, second}.Publish(context.Background(), Activity{})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected joined error, got %v", err)
	}
	if len(second.got) != 1 {
		t.Error("Expected second publisher called despite first failing")
	}
}

func TestRateLimited(t *testing.T) {
	next := &recordingPublisher{}
	rl := NewRateLimited(next, 20*time.Second, 2)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		rl.Publish(ctx, Activity{UpdatedAt: now})
	}
	if len(next.got) != 2 {
		t.Errorf("Expected burst of 2, got %d", len(next.got))
	}
	if rl.Dropped() != 2 {
		t.Errorf("Expected 2 dropped, got %d", rl.Dropped())
	}

	rl.Publish(ctx, Activity{UpdatedAt: now.Add(20 * time.Second)})
	if len(next.got) != 3 {
		t.Errorf("Expected token refilled after interval, got %d", len(next.got))
	}

	t.Run("Zero interval disables limiting", func(t *testing.T) {
		next := &recordingPublisher{}
		rl := NewRateLimited(next, 0, 1)
		for i := 0; i < 10; i++ {
			rl.Publish(ctx, Activity{UpdatedAt: now})
		}
		if len(next.got) != 10 {
			t.Errorf("Expected all publishes through, got %d", len(next.got))
		}
	})
}

func TestRetrying(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}

	t.Run("Succeeds after transient failure", func(t *testing.T) {
		next := &recordingPublisher{errs: []error{errors.New("temporary")}}
		err := NewRetrying("test", next, cfg).Publish(context.Background(), Activity{})
		if err != nil {
			t.Errorf("Expected success, got %v", err)
		}
		if len(next.got) != 2 {
			t.Errorf("Expected 2 attempts, got %d", len(next.got))
		}
	})

	t.Run("Gives up after max retries", func(t *testing.T) {
		fail := errors.New("down")
		next := &recordingPublisher{errs: []error{fail, fail, fail, fail}}
		err := NewRetrying("test", next, cfg).Publish(context.Background(), Activity{})
		if !errors.Is(err, fail) {
			t.Errorf("Expected wrapped error, got %v", err)
		}
		if len(next.got) != 3 {
			t.Errorf("Expected initial + 2 retries, got %d", len(next.got))
		}
	})

	t.Run("Context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		next := &recordingPublisher{errs: []error{errors.New("down")}}
		err := RetryWithBackoff(ctx, cfg, func() error { return next.Publish(ctx, Activity{}) })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}

package presence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Publisher is the interface every presence sink must implement: a chat
// client's rich-presence API, an HTTP/websocket fan-out, a database row.
type Publisher interface {
	Publish(ctx context.Context, a Activity) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, a Activity) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, a Activity) error {
	return f(ctx, a)
}

// LogPublisher writes an activity line to a logger whenever the summary
// changes.
type LogPublisher struct {
	logger *log.Logger
	mu     sync.Mutex
	last   Summary
	seen   bool
}

// NewLogPublisher creates a LogPublisher. A nil logger uses log.Default().
func NewLogPublisher(logger *log.Logger) *LogPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs a if its summary differs from the previous one.
func (p *LogPublisher) Publish(_ context.Context, a Activity) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.seen && p.last == a.Summary {
		return nil
	}
	p.last = a.Summary
	p.seen = true

	if a.IsIdle() {
		p.logger.Printf("Presence: %s", a.Details)
		return nil
	}
	p.logger.Printf("Presence: %s | %s | %s | %s (since %s)",
		a.Title, a.Details, a.LargeTooltip, a.SmallTooltip, a.StartTime.Format(time.Kitchen))
	return nil
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

// Publish calls each publisher in order; one failing does not stop the rest.
func (m Multi) Publish(ctx context.Context, a Activity) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RateLimited guards a publisher with a token bucket. Activities arriving
// when no token is available are dropped; the next tick carries fresh
// state anyway.
type RateLimited struct {
	next    Publisher
	limiter *rate.Limiter

	mu      sync.Mutex
	dropped int
}

// NewRateLimited allows up to burst publishes at once and every more per
// interval after that. A non-positive interval disables limiting.
func NewRateLimited(next Publisher, every time.Duration, burst int) *RateLimited {
	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Publish forwards a when the limiter allows it.
func (r *RateLimited) Publish(ctx context.Context, a Activity) error {
	now := a.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}
	if !r.limiter.AllowN(now, 1) {
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		return nil
	}
	return r.next.Publish(ctx, a)
}

// Dropped returns how many activities were discarded by the limiter.
func (r *RateLimited) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Retrying retries a fallible publisher with exponential backoff.
type Retrying struct {
	next Publisher
	cfg  RetryConfig
	name string
}

// NewRetrying wraps next. name labels errors.
func NewRetrying(name string, next Publisher, cfg RetryConfig) *Retrying {
	return &Retrying{next: next, cfg: cfg, name: name}
}

// Publish retries next until it succeeds or the retry budget is spent.
func (r *Retrying) Publish(ctx context.Context, a Activity) error {
	err := RetryWithBackoff(ctx, r.cfg, func() error {
		return r.next.Publish(ctx, a)
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.name, err)
	}
	return nil
}

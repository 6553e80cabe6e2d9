package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/unklstewy/atc-presence/pkg/config"
	"github.com/unklstewy/atc-presence/pkg/presence"
)

// PresenceRepository writes the current presence of one observer.
// It implements presence.Publisher. A lost connection is re-established on
// the next publish.
type PresenceRepository struct {
	mu       sync.Mutex
	db       *DB
	cfg      config.DatabaseConfig
	observer string
}

// NewPresenceRepository creates a repository that writes rows for observer.
func NewPresenceRepository(db *DB, observer string) *PresenceRepository {
	return &PresenceRepository{db: db, cfg: db.config, observer: observer}
}

// Observer returns the observer name rows are keyed by.
func (r *PresenceRepository) Observer() string { return r.observer }

func (r *PresenceRepository) conn() *DB {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db
}

// Publish upserts a as the observer's current presence. When the write
// fails because the connection is gone, it reconnects once and retries.
func (r *PresenceRepository) Publish(ctx context.Context, a presence.Activity) error {
	err := r.Upsert(ctx, a)
	if err == nil || !IsConnectionError(err) {
		return err
	}

	fresh, connErr := EnsureConnection(ctx, r.conn(), r.cfg)
	if connErr != nil {
		return fmt.Errorf("%w (reconnect failed: %v)", err, connErr)
	}

	r.mu.Lock()
	r.db = fresh
	r.mu.Unlock()

	return r.Upsert(ctx, a)
}

// HealthCheck reports whether the current connection answers queries.
func (r *PresenceRepository) HealthCheck(ctx context.Context) bool {
	return r.conn().HealthCheck(ctx)
}

// Stats returns database statistics from the current connection.
func (r *PresenceRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	return r.conn().GetStats(ctx)
}

// Close releases the current connection.
func (r *PresenceRepository) Close() error {
	return r.conn().Close()
}

// Upsert inserts or replaces the observer's row.
func (r *PresenceRepository) Upsert(ctx context.Context, a presence.Activity) error {
	var sessionStart sql.NullTime
	if !a.StartTime.IsZero() {
		sessionStart = sql.NullTime{Time: a.StartTime.UTC(), Valid: true}
	}
	updatedAt := a.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := r.conn().ExecContext(ctx, upsertPresenceSQL,
		r.observer,
		a.SessionID,
		a.Identity,
		a.Details,
		a.LargeTooltip,
		a.SmallTooltip,
		a.LargeImage,
		a.SmallImage,
		a.Counters.Connected,
		a.Counters.Facility,
		a.Counters.Visible,
		a.Counters.Tracked,
		int64(a.Counters.Squawks),
		int64(a.Counters.Strips),
		int64(a.Counters.Handoffs),
		sessionStart,
		updatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert presence: %w", err)
	}
	return nil
}

const upsertPresenceSQL = `
INSERT INTO presence_status (
    observer, session_id, identity, details, large_tooltip, small_tooltip,
    large_image, small_image, connected, facility, visible_count,
    tracked_count, squawk_count, strip_count, handoff_count,
    session_start, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (observer) DO UPDATE SET
    session_id = EXCLUDED.session_id,
    identity = EXCLUDED.identity,
    details = EXCLUDED.details,
    large_tooltip = EXCLUDED.large_tooltip,
    small_tooltip = EXCLUDED.small_tooltip,
    large_image = EXCLUDED.large_image,
    small_image = EXCLUDED.small_image,
    connected = EXCLUDED.connected,
    facility = EXCLUDED.facility,
    visible_count = EXCLUDED.visible_count,
    tracked_count = EXCLUDED.tracked_count,
    squawk_count = EXCLUDED.squawk_count,
    strip_count = EXCLUDED.strip_count,
    handoff_count = EXCLUDED.handoff_count,
    session_start = EXCLUDED.session_start,
    updated_at = EXCLUDED.updated_at`

// MarkOffline records the observer as disconnected and idle.
func (r *PresenceRepository) MarkOffline(ctx context.Context) error {
	_, err := r.conn().ExecContext(ctx,
		`UPDATE presence_status
		 SET connected = FALSE, identity = '', details = $2,
		     large_tooltip = '', small_tooltip = '', updated_at = NOW()
		 WHERE observer = $1`,
		r.observer, presence.IdleDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to mark presence offline: %w", err)
	}
	return nil
}

// Package app wires configuration, tracker, runner and publishers into a
// running presence service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/unklstewy/atc-presence/internal/capture"
	"github.com/unklstewy/atc-presence/internal/db"
	"github.com/unklstewy/atc-presence/internal/runner"
	"github.com/unklstewy/atc-presence/internal/server"
	"github.com/unklstewy/atc-presence/pkg/clock"
	"github.com/unklstewy/atc-presence/pkg/config"
	"github.com/unklstewy/atc-presence/pkg/fsd"
	"github.com/unklstewy/atc-presence/pkg/presence"
	"github.com/unklstewy/atc-presence/pkg/tracker"
)

// App holds the presence service and its dependencies.
type App struct {
	Config    *config.Config
	Clock     clock.Clock
	Tracker   *tracker.Tracker
	Selection *capture.Selection
	Runner    *runner.Runner
	Hub       *server.Hub
	Server    *server.Server

	repo *db.PresenceRepository
}

// New builds an App from cfg. Extra publishers receive every activity
// alongside the configured ones. A database that cannot be reached is
// logged and skipped.
func New(cfg *config.Config, c clock.Clock, extra ...presence.Publisher) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if c == nil {
		c = clock.Real()
	}

	a := &App{
		Config:    cfg,
		Clock:     c,
		Selection: capture.NewSelection(),
		Hub:       server.NewHub(),
	}

	a.Tracker = tracker.New(c, tracker.Config{
		Cooldown:    cfg.Tracker.Cooldown(),
		IdleTimeout: cfg.Tracker.IdleTimeout(),
	})

	publishers := presence.Multi{a.Hub}
	if cfg.Presence.LogChanges {
		publishers = append(publishers, presence.NewLogPublisher(nil))
	}

	if cfg.Database.Enabled {
		if repo := openRepository(cfg); repo != nil {
			a.repo = repo
			sink := presence.NewRetrying("postgres", repo, presence.DefaultRetryConfig())
			publishers = append(publishers,
				presence.NewRateLimited(sink, cfg.Presence.RateLimit(), cfg.Presence.RateBurst))
		}
	}

	for _, p := range extra {
		if p != nil {
			publishers = append(publishers, p)
		}
	}

	a.Runner = runner.New(runner.Config{
		TickInterval:  cfg.Loop.TickInterval(),
		PublishEvery:  cfg.Loop.PublishEveryTicks,
		InterfaceFile: cfg.Capture.LastInterfaceFile,
	}, c, a.Tracker, a.Selection, ReplayOpener(cfg.Capture.EventsFile, cfg.Capture.LoopReplay), publishers)

	if cfg.Server.Enabled {
		a.Server = server.New(cfg.Server, a.Hub)
		if a.repo != nil {
			a.Server.SetDatabase(a.repo)
		}
	}

	return a, nil
}

// openRepository connects to the presence database, prepares the schema
// and drops stale observer rows. It returns nil when the database cannot
// be used.
func openRepository(cfg *config.Config) *db.PresenceRepository {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.ReconnectWithRetry(ctx, cfg.Database, 3, time.Second)
	if err != nil {
		log.Printf("⚠️  Presence database unavailable: %v", err)
		return nil
	}
	if err := database.InitSchema(ctx); err != nil {
		database.Close()
		log.Printf("⚠️  Failed to initialize presence schema: %v", err)
		return nil
	}
	log.Println("✓ Presence database connected")

	if maxAge := cfg.Database.StaleAfter(); maxAge > 0 {
		n, err := database.CleanupStale(ctx, maxAge)
		if err != nil {
			log.Printf("⚠️  Failed to remove stale observers: %v", err)
		} else if n > 0 {
			log.Printf("Removed %d stale observer(s) older than %v", n, maxAge)
		}
	}

	observer := cfg.Presence.ObserverName
	if observer == "" {
		observer = Hostname()
	}
	return db.NewPresenceRepository(database, observer)
}

// Run starts the loop and, when enabled, the HTTP server. It blocks until
// ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.Runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("runner stopped: %w", err)
		}
		cancel()
	}()

	if a.Server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Server.Run(ctx, a.Config.Server.Addr()); err != nil {
				errCh <- err
			}
			cancel()
		}()
	}

	wg.Wait()
	close(errCh)
	return <-errCh
}

// Close marks the observer offline and releases the database.
func (a *App) Close() {
	if a.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.repo.MarkOffline(ctx); err != nil {
		log.Printf("Failed to mark presence offline: %v", err)
	}
	if err := a.repo.Close(); err != nil {
		log.Printf("Failed to close presence database: %v", err)
	}
	a.repo = nil
}

// ReplayOpener returns an Opener that replays a recorded event file for
// whichever interface is selected. Live packet capture is provided by an
// external decoder that writes the same format.
func ReplayOpener(path string, loop bool) runner.Opener {
	return func(iface capture.Interface) (fsd.Source, error) {
		if path == "" {
			return nil, fmt.Errorf("no event source configured for %s", iface.Name)
		}
		src, err := fsd.OpenReplayFile(path, loop)
		if err != nil {
			return nil, err
		}
		log.Printf("Reading events from %s for %s", path, iface.Name)
		return src, nil
	}
}

// ResolveInterface picks the capture interface to start on. The order is
// the explicit name, the configured name, the last-interface file, then
// the first non-loopback interface that is up. Explicit and configured
// names are used even when they are not present locally, since a replay
// source does not need them. A remembered name that no longer exists is
// skipped.
func ResolveInterface(explicit string, cfg config.CaptureConfig, available []capture.Interface) (capture.Interface, bool) {
	for _, name := range []string{explicit, cfg.Interface} {
		if name == "" {
			continue
		}
		if iface, ok := capture.Find(available, name); ok {
			return iface, true
		}
		log.Printf("⚠️  Interface %s not found locally, using it for replay", name)
		return capture.Interface{Name: name}, true
	}

	last, err := config.LoadLastInterface(cfg.LastInterfaceFile)
	if err != nil {
		log.Printf("⚠️  %v", err)
	} else if last != "" {
		if iface, ok := capture.Find(available, last); ok {
			return iface, true
		}
		log.Printf("⚠️  Remembered interface %s not found, falling back", last)
	}

	for _, iface := range available {
		if iface.Up && !iface.Loopback {
			return iface, true
		}
	}
	return capture.Interface{}, false
}

// Hostname returns the host name, used as the default observer name.
func Hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "default"
	}
	return name
}

// ATC Presence service
// Follows the local FSD session and publishes it as a presence summary.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/unklstewy/atc-presence/internal/app"
	"github.com/unklstewy/atc-presence/internal/capture"
	"github.com/unklstewy/atc-presence/pkg/config"
)

func main() {
	os.Exit(run(os.Args[1:], capture.List))
}

// run starts the service and returns the process exit code. Returning
// instead of exiting lets deferred cleanup mark the observer offline.
func run(args []string, listInterfaces func() ([]capture.Interface, error)) int {
	flags := pflag.NewFlagSet("atc-presence", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "configs/config.json", "Path to configuration file (.json or .yaml)")
	events := flags.StringP("events", "e", "", "Recorded FSD events file (JSON lines)")
	iface := flags.StringP("interface", "i", "", "Capture interface name")
	loop := flags.Bool("loop", false, "Restart the events file when it ends")
	serve := flags.Bool("serve", false, "Enable the HTTP presence API")
	list := flags.Bool("list-interfaces", false, "List capture interfaces and exit")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *list {
		return printInterfaces(listInterfaces)
	}

	log.Println("===========================================")
	log.Println("  ATC Presence")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}
	if *events != "" {
		cfg.Capture.EventsFile = *events
	}
	if flags.Changed("loop") {
		cfg.Capture.LoopReplay = *loop
	}
	if *serve {
		cfg.Server.Enabled = true
	}

	log.Printf("Configuration loaded from: %s", *configPath)
	log.Printf("Loop: %v tick, publish every %d ticks", cfg.Loop.TickInterval(), cfg.Loop.PublishEveryTicks)
	log.Printf("Tracker: %v cooldown, %v idle timeout", cfg.Tracker.Cooldown(), cfg.Tracker.IdleTimeout())
	if cfg.Capture.EventsFile == "" {
		log.Println("⚠️  No events file configured, presence will stay idle")
	}

	service, err := app.New(cfg, nil)
	if err != nil {
		log.Printf("Failed to start: %v", err)
		return 1
	}
	defer service.Close()

	available, err := listInterfaces()
	if err != nil {
		log.Printf("⚠️  Failed to list interfaces: %v", err)
	}
	selected, ok := app.ResolveInterface(*iface, cfg.Capture, available)
	if !ok {
		log.Println("Error: No capture interface available")
		return 1
	}
	service.Selection.Set(selected)
	log.Printf("✓ Interface: %s", selected.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := 0
	if err := service.Run(ctx); err != nil {
		log.Printf("Service stopped with error: %v", err)
		code = 1
	}

	log.Println("\n👋 Shutting down...")
	log.Printf("Session summary: %d handoffs, %d squawks, %d strips",
		service.Tracker.HandoffCount(), service.Tracker.SquawkCount(), service.Tracker.StripCount())
	return code
}

func printInterfaces(listInterfaces func() ([]capture.Interface, error)) int {
	list, err := listInterfaces()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list interfaces: %v\n", err)
		return 1
	}
	for _, iface := range list {
		state := "down"
		if iface.Up {
			state = "up"
		}
		fmt.Printf("%-12s %-5s %s\n", iface.Name, state, iface.Description)
	}
	return 0
}

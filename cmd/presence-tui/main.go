// ATC Presence TUI
// Pick a capture interface and watch the published presence live.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/unklstewy/atc-presence/internal/app"
	"github.com/unklstewy/atc-presence/internal/capture"
	"github.com/unklstewy/atc-presence/pkg/config"
	"github.com/unklstewy/atc-presence/pkg/presence"
)

func main() {
	configPath := pflag.StringP("config", "c", "configs/config.json", "Path to configuration file (.json or .yaml)")
	events := pflag.StringP("events", "e", "", "Recorded FSD events file (JSON lines)")
	logPath := pflag.String("log", "presence-tui.log", "Log file")
	pflag.Parse()

	// The terminal belongs to the UI; log to a file instead.
	logFile, err := tea.LogToFile(*logPath, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *events != "" {
		cfg.Capture.EventsFile = *events
	}
	cfg.Presence.LogChanges = true

	updates := make(chan presence.Activity, 1)
	service, err := app.New(cfg, nil, channelPublisher(updates))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer service.Close()

	list, err := capture.List()
	if err != nil {
		log.Printf("Failed to list interfaces: %v", err)
	}
	if last, err := config.LoadLastInterface(cfg.Capture.LastInterfaceFile); err == nil && last != "" {
		if iface, ok := capture.Find(list, last); ok {
			service.Selection.Set(iface)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()

	p := tea.NewProgram(newModel(list, service.Selection, updates), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	cancel()
	if err := <-done; err != nil {
		log.Printf("Service stopped with error: %v", err)
	}
}

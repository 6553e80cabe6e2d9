package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/atc-presence/internal/server"
	"github.com/unklstewy/atc-presence/pkg/presence"
)

// Dashboard polls the presence API and renders it with tview.
type Dashboard struct {
	client   *Client
	interval time.Duration

	tviewApp *tview.Application
	presence *tview.TextView
	counters *tview.TextView
	logs     *tview.TextView
	root     *tview.Flex

	refresh  chan struct{}
	lastLine string
}

// NewDashboard creates the UI.
func NewDashboard(client *Client, interval time.Duration) *Dashboard {
	d := &Dashboard{
		client:   client,
		interval: interval,
		refresh:  make(chan struct{}, 1),
	}
	d.setupUI()
	return d
}

func (d *Dashboard) setupUI() {
	d.tviewApp = tview.NewApplication()

	d.presence = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	d.presence.SetBorder(true).SetTitle(" Presence ")

	d.counters = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	d.counters.SetBorder(true).SetTitle(" Session ")

	d.logs = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(100)
	d.logs.SetBorder(true).SetTitle(" Logs ")

	controls := tview.NewTextView().
		SetDynamicColors(true).
		SetText("[white]r[-] refresh  [white]q[-] quit")

	top := tview.NewFlex().
		AddItem(d.presence, 0, 2, false).
		AddItem(d.counters, 0, 1, false)

	d.root = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(top, 9, 0, false).
		AddItem(d.logs, 0, 1, false).
		AddItem(controls, 1, 0, false)

	d.tviewApp.SetRoot(d.root, true)
	d.tviewApp.SetInputCapture(d.handleKeyboard)
}

func (d *Dashboard) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	switch {
	case event.Key() == tcell.KeyCtrlC, event.Rune() == 'q':
		d.tviewApp.Stop()
		return nil
	case event.Rune() == 'r':
		select {
		case d.refresh <- struct{}{}:
		default:
		}
		return nil
	}
	return event
}

// Run polls until the UI exits.
func (d *Dashboard) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go d.pollLoop(ctx)
	return d.tviewApp.Run()
}

func (d *Dashboard) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.refresh:
		}
		d.poll(ctx)
	}
}

func (d *Dashboard) poll(ctx context.Context) {
	a, err := d.client.Presence(ctx)
	var s server.SessionResponse
	if err == nil {
		s, err = d.client.Session(ctx)
	}

	d.tviewApp.QueueUpdateDraw(func() {
		if err != nil {
			if errors.Is(err, errNotPublished) {
				d.presence.SetText("[gray]" + err.Error() + "[-]")
			} else {
				d.addLog("ERROR", err.Error())
			}
			return
		}
		if line := presenceLine(a); line != d.lastLine {
			d.addLog("INFO", line)
			d.lastLine = line
		}
		d.presence.SetText(formatPresence(a, time.Now()))
		d.counters.SetText(formatSession(s))
	})
}

func (d *Dashboard) addLog(level, msg string) {
	color := "white"
	switch level {
	case "WARN":
		color = "yellow"
	case "ERROR":
		color = "red"
	}
	fmt.Fprintf(d.logs, "[gray]%s[-] [%s]%-5s[-] %s\n",
		time.Now().Format("15:04:05"), color, level, tview.Escape(msg))
	d.logs.ScrollToEnd()
}

// formatPresence renders the summary lines with tview color tags.
func formatPresence(a presence.Activity, now time.Time) string {
	if a.IsIdle() {
		return "[gray]" + presence.IdleDetails + "[-]"
	}

	var s strings.Builder
	fmt.Fprintf(&s, "[yellow]%s[-]\n", tview.Escape(a.Title))
	fmt.Fprintf(&s, "%s\n", tview.Escape(a.Details))
	if a.LargeTooltip != "" {
		fmt.Fprintf(&s, "[aqua]%s[-]\n", tview.Escape(a.LargeTooltip))
	}
	if a.SmallTooltip != "" {
		fmt.Fprintf(&s, "[aqua]%s[-]\n", tview.Escape(a.SmallTooltip))
	}
	if !a.StartTime.IsZero() {
		fmt.Fprintf(&s, "[gray]online for %v[-]", now.Sub(a.StartTime).Truncate(time.Second))
	}
	return s.String()
}

// formatSession renders the raw counters.
func formatSession(s server.SessionResponse) string {
	c := s.Counters
	connected := "[red]no[-]"
	if c.Connected {
		connected = "[green]yes[-]"
	}
	facility := c.Facility
	if facility == "" {
		facility = "-"
	}
	return fmt.Sprintf(
		"Connected: %s\nFacility:  %s\nVisible:   %d\nTracked:   %d\nSquawks:   %d\nStrips:    %d\nHandoffs:  %d",
		connected, facility, c.Visible, c.Tracked, c.Squawks, c.Strips, c.Handoffs)
}

func presenceLine(a presence.Activity) string {
	if a.IsIdle() {
		return "Presence: " + presence.IdleDetails
	}
	return fmt.Sprintf("Presence: %s | %s", a.Title, a.Details)
}

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/atc-presence/internal/capture"
	"github.com/unklstewy/atc-presence/pkg/presence"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boxStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1).
			Width(48)
)

type activityMsg presence.Activity

type model struct {
	keys       keyMap
	interfaces []capture.Interface
	cursor     int
	selection  *capture.Selection
	updates    <-chan presence.Activity
	latest     presence.Activity
	hasLatest  bool
	now        func() time.Time
}

func newModel(list []capture.Interface, sel *capture.Selection, updates <-chan presence.Activity) model {
	m := model{
		keys:       defaultKeys,
		interfaces: list,
		selection:  sel,
		updates:    updates,
		now:        time.Now,
	}
	if current, _, ok := sel.Get(); ok {
		for i, iface := range list {
			if iface.Name == current.Name {
				m.cursor = i
			}
		}
	}
	return m
}

// waitForActivity blocks until the runner publishes.
func waitForActivity(updates <-chan presence.Activity) tea.Cmd {
	return func() tea.Msg {
		a, ok := <-updates
		if !ok {
			return nil
		}
		return activityMsg(a)
	}
}

func (m model) Init() tea.Cmd {
	return waitForActivity(m.updates)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activityMsg:
		m.latest = presence.Activity(msg)
		m.hasLatest = true
		return m, waitForActivity(m.updates)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.interfaces)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Select):
			if m.cursor < len(m.interfaces) {
				m.selection.Set(m.interfaces[m.cursor])
			}
		case key.Matches(msg, m.keys.Reset):
			m.selection.With(func(current **capture.Interface) {
				*current = nil
			})
		}
	}
	return m, nil
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("ATC PRESENCE"))
	s.WriteString("\n\n")

	current, _, capturing := m.selection.Get()

	s.WriteString(headerStyle.Render("Interfaces"))
	s.WriteString("\n")
	if len(m.interfaces) == 0 {
		s.WriteString(dimStyle.Render("  no interfaces found"))
		s.WriteString("\n")
	}
	for i, iface := range m.interfaces {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		line := cursor + iface.Description
		switch {
		case capturing && iface.Name == current.Name:
			line = activeStyle.Render(line + "  ●")
		case i == m.cursor:
			line = selectedStyle.Render(line)
		case !iface.Up:
			line = dimStyle.Render(line)
		}
		s.WriteString(line)
		s.WriteString("\n")
	}
	s.WriteString("\n")

	s.WriteString(boxStyle.Render(m.renderPresence()))
	s.WriteString("\n\n")

	var help []string
	for _, b := range m.keys.shortHelp() {
		h := b.Help()
		help = append(help, h.Key+": "+h.Desc)
	}
	s.WriteString(dimStyle.Render(strings.Join(help, "  ")))
	s.WriteString("\n")

	return s.String()
}

func (m model) renderPresence() string {
	if !m.hasLatest {
		return dimStyle.Render("Waiting for first update...")
	}

	a := m.latest
	if a.IsIdle() {
		return headerStyle.Render("Presence") + "\n" + presence.IdleDetails
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render("Presence"))
	s.WriteString("\n")
	fmt.Fprintf(&s, "%s\n%s\n", a.Title, a.Details)
	if a.LargeTooltip != "" {
		fmt.Fprintf(&s, "%s\n", a.LargeTooltip)
	}
	if a.SmallTooltip != "" {
		fmt.Fprintf(&s, "%s\n", a.SmallTooltip)
	}
	if !a.StartTime.IsZero() {
		elapsed := m.now().Sub(a.StartTime).Truncate(time.Second)
		s.WriteString(dimStyle.Render(fmt.Sprintf("online for %v", elapsed)))
	}
	return s.String()
}

// channelPublisher forwards activities to the UI, keeping only the newest
// one when the UI falls behind.
func channelPublisher(ch chan presence.Activity) presence.Publisher {
	return presence.PublisherFunc(func(_ context.Context, a presence.Activity) error {
		select {
		case ch <- a:
			return nil
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- a:
		default:
		}
		return nil
	})
}

// Package capture lists the network interfaces a packet sniffer can bind to
// and holds the user's current choice.
package capture

import (
	"fmt"
	"net"
	"strings"
	"sync"
)

// Interface describes a capture interface.
type Interface struct {
	Name         string
	Description  string
	HardwareAddr string
	Up           bool
	Loopback     bool
}

// List returns the host's network interfaces, loopback last.
func List() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list network interfaces: %w", err)
	}

	var list, loopbacks []Interface
	for _, ni := range ifaces {
		iface := fromNet(ni)
		if iface.Loopback {
			loopbacks = append(loopbacks, iface)
			continue
		}
		list = append(list, iface)
	}
	return append(list, loopbacks...), nil
}

func fromNet(ni net.Interface) Interface {
	iface := Interface{
		Name:         ni.Name,
		HardwareAddr: ni.HardwareAddr.String(),
		Up:           ni.Flags&net.FlagUp != 0,
		Loopback:     ni.Flags&net.FlagLoopback != 0,
	}

	var parts []string
	if addrs, err := ni.Addrs(); err == nil {
		for _, a := range addrs {
			parts = append(parts, a.String())
		}
	}
	iface.Description = ni.Name
	if len(parts) > 0 {
		iface.Description += " (" + strings.Join(parts, ", ") + ")"
	}
	return iface
}

// Find returns the interface named name from list.
func Find(list []Interface, name string) (Interface, bool) {
	for _, iface := range list {
		if iface.Name == name {
			return iface, true
		}
	}
	return Interface{}, false
}

// Selection is the currently chosen capture interface, shared between a
// UI goroutine that picks it and the loop that captures on it. Every
// access goes through the mutex.
type Selection struct {
	mu      sync.Mutex
	current *Interface
	version uint64
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{}
}

// Set replaces the selection and bumps its version.
func (s *Selection) Set(iface Interface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &iface
	s.version++
}

// Get returns the selected interface and its version.
func (s *Selection) Get() (Interface, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Interface{}, s.version, false
	}
	return *s.current, s.version, true
}

// With runs fn while holding the lock. fn receives the selection slot and
// may replace or clear it; a changed slot bumps the version. fn must not
// call back into the Selection.
func (s *Selection) With(fn func(current **Interface)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.current
	fn(&s.current)
	if s.current != before {
		s.version++
	}
}

// Changed reports whether the selection moved past version seen.
func (s *Selection) Changed(seen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version != seen
}

// Package connectivity tracks online/offline state for the process.
package connectivity

import (
	"errors"
	"log"
	"sync"
)

// ErrOverrideDisabled is returned by Force outside developer mode.
var ErrOverrideDisabled = errors.New("connectivity override is only available in developer mode")

// Monitor is the single source of truth for online/offline state.
// The initial value is injected at construction from a host-reported probe;
// the monitor never assumes online by default.
type Monitor struct {
	mu            sync.Mutex
	online        bool
	forced        bool
	allowOverride bool
	nextID        int
	subs          map[int]chan bool
}

// NewMonitor creates a monitor with the given initial state.
// allowOverride enables the development-only Force escape hatch.
func NewMonitor(initialOnline, allowOverride bool) *Monitor {
	return &Monitor{
		online:        initialOnline,
		allowOverride: allowOverride,
		subs:          make(map[int]chan bool),
	}
}

// Current returns the current connectivity state.
func (m *Monitor) Current() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a host-reported connectivity signal. Subscribers are
// notified once per transition; an unchanged state delivers nothing.
// Ignored while a developer override is in force.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.forced {
		m.mu.Unlock()
		return
	}
	m.transitionLocked(online)
}

// transitionLocked flips state and notifies; releases m.mu.
func (m *Monitor) transitionLocked(online bool) {
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	targets := make([]chan bool, 0, len(m.subs))
	for _, ch := range m.subs {
		targets = append(targets, ch)
	}
	m.mu.Unlock()

	if online {
		log.Printf("[Connectivity] Became online")
	} else {
		log.Printf("[Connectivity] Became offline")
	}

	// Delivery blocks rather than drops so no subscriber misses an edge.
	for _, ch := range targets {
		ch <- online
	}
}

// Subscribe registers for transition events. The returned channel receives
// each online/offline edge exactly once; the cancel func tears down the
// subscription and must be called when the consumer stops reading.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan bool, 8)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
	return ch, cancel
}

// Force simulates a connectivity transition without a network change and
// pins the state until Release is called. Development-only.
func (m *Monitor) Force(online bool) error {
	m.mu.Lock()
	if !m.allowOverride {
		m.mu.Unlock()
		return ErrOverrideDisabled
	}
	m.forced = true
	m.transitionLocked(online)
	return nil
}

// Release lifts a developer override; subsequent host signals apply again.
func (m *Monitor) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.allowOverride {
		return ErrOverrideDisabled
	}
	m.forced = false
	return nil
}

// Package link implements the peripheral's connection state machine:
// the Idle → Advertising → Connected → Advertising cycle driven by
// link-layer events. It owns the active connection handle and is the
// only component that binds or unbinds the notification channel.
package link

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/chaz8081/buttonlink/internal/leds"
	"github.com/chaz8081/buttonlink/internal/notify"
	"github.com/chaz8081/buttonlink/internal/transport"
)

// State of the connection lifecycle.
type State int

const (
	// Idle is the boot state, before the first advertisement.
	Idle State = iota
	// Advertising means the peripheral is discoverable and connectable.
	Advertising
	// Connected means a central holds the single connection slot.
	Connected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Advertising:
		return "advertising"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Machine cycles the peripheral through its connection lifecycle. It
// implements transport.LinkEvents; events that arrive outside their
// valid state are dropped, since the link layer is trusted to order
// events but the machine must survive an out-of-order duplicate.
//
// Transport calls that fail are logged and counted, never retried: the
// only recurrence of advertising is the disconnect transition itself.
type Machine struct {
	tr    transport.Transport
	ch    *notify.Channel
	panel leds.Panel

	mu     sync.Mutex
	state  State
	handle transport.Handle

	drops atomic.Uint32
}

// NewMachine creates a Machine in Idle with no active connection.
func NewMachine(tr transport.Transport, ch *notify.Channel, panel leds.Panel) *Machine {
	return &Machine{
		tr:     tr,
		ch:     ch,
		panel:  panel,
		state:  Idle,
		handle: transport.InvalidHandle,
	}
}

// Start begins advertising and moves the machine out of Idle. Unlike
// the event handlers, a failure here is returned to the caller: a
// peripheral that never advertises is unreachable, and at boot there is
// still someone around to care.
func (m *Machine) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Idle {
		slog.Debug("[link] start ignored", "state", m.state.String())
		return nil
	}

	if err := m.tr.StartAdvertising(); err != nil {
		return fmt.Errorf("link: start advertising: %w", err)
	}

	m.state = Advertising
	m.panel.Set(leds.Advertising, true)
	slog.Info("[link] advertising")
	return nil
}

// HandleConnect accepts a central. Valid only while Advertising.
func (m *Machine) HandleConnect(h transport.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Advertising {
		slog.Debug("[link] connect ignored", "state", m.state.String(), "handle", uint16(h))
		return
	}

	m.state = Connected
	m.handle = h
	m.panel.Set(leds.Advertising, false)
	m.panel.Set(leds.Connected, true)

	m.ch.Bind(h)
	if err := m.tr.BindNotificationTarget(h); err != nil {
		m.drops.Add(1)
		slog.Warn("[link] bind notification target failed", "handle", uint16(h), "error", err)
	}

	slog.Info("[link] central connected", "handle", uint16(h))
}

// HandleDisconnect releases the connection and resumes advertising.
// Valid only while Connected.
func (m *Machine) HandleDisconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Connected {
		slog.Debug("[link] disconnect ignored", "state", m.state.String())
		return
	}

	slog.Info("[link] central disconnected", "handle", uint16(m.handle))

	m.handle = transport.InvalidHandle
	m.ch.Unbind()
	m.panel.Set(leds.Connected, false)

	m.state = Advertising
	if err := m.tr.StartAdvertising(); err != nil {
		// Non-fatal here: there is no operator channel to escalate on,
		// and the state machine has no retry of its own.
		m.drops.Add(1)
		slog.Error("[link] restart advertising failed", "error", err)
	}
	m.panel.Set(leds.Advertising, true)
	slog.Info("[link] advertising")
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Handle returns the active connection handle, or InvalidHandle.
func (m *Machine) Handle() transport.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// Drops returns the number of transport calls the machine has skipped
// due to link-layer errors.
func (m *Machine) Drops() uint32 {
	return m.drops.Load()
}

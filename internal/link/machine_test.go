package link

import (
	"errors"
	"sync"
	"testing"

	"github.com/chaz8081/buttonlink/internal/leds"
	"github.com/chaz8081/buttonlink/internal/notify"
	"github.com/chaz8081/buttonlink/internal/transport"
)

// stubTransport counts calls and can be told to fail them.
type stubTransport struct {
	mu             sync.Mutex
	advertiseCount int
	bindCount      int
	sentHandles    []transport.Handle
	sentValues     [][]byte
	advertiseErr   error
	bindErr        error
}

func (s *stubTransport) StartAdvertising() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.advertiseErr != nil {
		return s.advertiseErr
	}
	s.advertiseCount++
	return nil
}

func (s *stubTransport) BindNotificationTarget(transport.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bindErr != nil {
		return s.bindErr
	}
	s.bindCount++
	return nil
}

func (s *stubTransport) SendNotification(h transport.Handle, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.sentHandles = append(s.sentHandles, h)
	s.sentValues = append(s.sentValues, cp)
	return nil
}

func (s *stubTransport) advertised() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advertiseCount
}

// recordingPanel remembers the latest on/off state per LED.
type recordingPanel struct {
	mu     sync.Mutex
	states map[leds.LED]bool
	sets   int
}

func newRecordingPanel() *recordingPanel {
	return &recordingPanel{states: make(map[leds.LED]bool)}
}

func (p *recordingPanel) Set(l leds.LED, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[l] = on
	p.sets++
}

func (p *recordingPanel) state(l leds.LED) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[l]
}

func newTestMachine() (*Machine, *stubTransport, *notify.Channel, *recordingPanel) {
	tr := &stubTransport{}
	ch := notify.NewChannel(tr)
	panel := newRecordingPanel()
	return NewMachine(tr, ch, panel), tr, ch, panel
}

func TestMachineImplementsLinkEvents(t *testing.T) {
	var _ transport.LinkEvents = (*Machine)(nil)
}

func TestStartAdvertises(t *testing.T) {
	m, tr, _, panel := newTestMachine()

	if m.State() != Idle {
		t.Fatalf("boot state = %s, want idle", m.State())
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if m.State() != Advertising {
		t.Errorf("state = %s, want advertising", m.State())
	}
	if tr.advertised() != 1 {
		t.Errorf("advertise count = %d, want 1", tr.advertised())
	}
	if !panel.state(leds.Advertising) {
		t.Error("advertising LED should be on")
	}
}

func TestStartOutsideIdleIgnored(t *testing.T) {
	m, tr, _, _ := newTestMachine()

	m.Start()
	if err := m.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	if tr.advertised() != 1 {
		t.Errorf("advertise count = %d, want 1 (second start is a no-op)", tr.advertised())
	}
}

func TestStartFailureIsReturned(t *testing.T) {
	tr := &stubTransport{advertiseErr: errors.New("no adv sets left")}
	m := NewMachine(tr, notify.NewChannel(tr), newRecordingPanel())

	if err := m.Start(); err == nil {
		t.Fatal("Start() error = nil, want advertising failure")
	}
	if m.State() != Idle {
		t.Errorf("state = %s, want idle after failed start", m.State())
	}
}

func TestConnectBindsChannelAndSwitchesLEDs(t *testing.T) {
	m, tr, ch, panel := newTestMachine()
	m.Start()

	m.HandleConnect(7)

	if m.State() != Connected {
		t.Errorf("state = %s, want connected", m.State())
	}
	if m.Handle() != 7 {
		t.Errorf("Handle() = %d, want 7", m.Handle())
	}

	h, bound := ch.Bound()
	if !bound || h != 7 {
		t.Errorf("channel Bound() = (%d, %t), want (7, true)", h, bound)
	}

	tr.mu.Lock()
	binds := tr.bindCount
	tr.mu.Unlock()
	if binds != 1 {
		t.Errorf("transport bind count = %d, want 1", binds)
	}

	if panel.state(leds.Advertising) {
		t.Error("advertising LED should be off after connect")
	}
	if !panel.state(leds.Connected) {
		t.Error("connected LED should be on after connect")
	}
}

func TestDisconnectUnbindsAndRestartsAdvertising(t *testing.T) {
	m, tr, ch, panel := newTestMachine()
	m.Start()
	m.HandleConnect(7)

	m.HandleDisconnect()

	if m.State() != Advertising {
		t.Errorf("state = %s, want advertising", m.State())
	}
	if m.Handle() != transport.InvalidHandle {
		t.Errorf("Handle() = %#04x, want InvalidHandle", uint16(m.Handle()))
	}

	if _, bound := ch.Bound(); bound {
		t.Error("channel should be unbound after disconnect")
	}

	if tr.advertised() != 2 {
		t.Errorf("advertise count = %d, want 2 (boot + restart)", tr.advertised())
	}
	if panel.state(leds.Connected) {
		t.Error("connected LED should be off after disconnect")
	}
	if !panel.state(leds.Advertising) {
		t.Error("advertising LED should be back on after disconnect")
	}
}

func TestEventsOutsideValidStateAreIgnored(t *testing.T) {
	m, tr, ch, _ := newTestMachine()

	// Connect before Start: machine is Idle, not Advertising.
	m.HandleConnect(4)
	if m.State() != Idle {
		t.Errorf("state = %s, want idle (connect before start ignored)", m.State())
	}
	if _, bound := ch.Bound(); bound {
		t.Error("channel must not bind on an ignored connect")
	}

	m.Start()

	// Disconnect while Advertising.
	m.HandleDisconnect()
	if m.State() != Advertising {
		t.Errorf("state = %s, want advertising (spurious disconnect ignored)", m.State())
	}
	if tr.advertised() != 1 {
		t.Errorf("advertise count = %d, want 1 (no restart on ignored event)", tr.advertised())
	}

	// Duplicate connect while Connected keeps the first handle.
	m.HandleConnect(7)
	m.HandleConnect(9)
	if m.Handle() != 7 {
		t.Errorf("Handle() = %d, want 7 (duplicate connect ignored)", m.Handle())
	}
	h, _ := ch.Bound()
	if h != 7 {
		t.Errorf("channel bound to %d, want 7", h)
	}
}

// TestOrderedEventSequences drives the machine through every
// alternating connect/disconnect sequence up to a fixed length and
// checks that the final state is determined by the last event alone.
func TestOrderedEventSequences(t *testing.T) {
	for length := 0; length <= 8; length++ {
		m, _, ch, _ := newTestMachine()
		if err := m.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		var lastConnect bool
		for i := 0; i < length; i++ {
			if i%2 == 0 {
				m.HandleConnect(transport.Handle(i + 1))
				lastConnect = true
			} else {
				m.HandleDisconnect()
				lastConnect = false
			}
		}

		if lastConnect {
			if m.State() != Connected {
				t.Errorf("len=%d: state = %s, want connected after final connect", length, m.State())
			}
			h, bound := ch.Bound()
			if !bound || h != m.Handle() {
				t.Errorf("len=%d: channel bound to (%d, %t), want machine handle %d", length, h, bound, m.Handle())
			}
		} else {
			if m.State() != Advertising {
				t.Errorf("len=%d: state = %s, want advertising", length, m.State())
			}
			if _, bound := ch.Bound(); bound {
				t.Errorf("len=%d: channel should be unbound", length)
			}
		}
	}
}

func TestBindFailureIsCountedNotFatal(t *testing.T) {
	tr := &stubTransport{}
	ch := notify.NewChannel(tr)
	m := NewMachine(tr, ch, newRecordingPanel())
	m.Start()

	tr.mu.Lock()
	tr.bindErr = errors.New("stale handle")
	tr.mu.Unlock()

	m.HandleConnect(7)

	if m.State() != Connected {
		t.Errorf("state = %s, want connected despite bind failure", m.State())
	}
	if m.Drops() != 1 {
		t.Errorf("Drops() = %d, want 1", m.Drops())
	}
	// The channel binding is the machine's own state and still happens.
	if h, bound := ch.Bound(); !bound || h != 7 {
		t.Errorf("channel Bound() = (%d, %t), want (7, true)", h, bound)
	}
}

func TestAdvertisingRestartFailureIsCountedNotFatal(t *testing.T) {
	tr := &stubTransport{}
	ch := notify.NewChannel(tr)
	m := NewMachine(tr, ch, newRecordingPanel())
	m.Start()
	m.HandleConnect(7)

	tr.mu.Lock()
	tr.advertiseErr = errors.New("resource exhausted")
	tr.mu.Unlock()

	m.HandleDisconnect()

	if m.State() != Advertising {
		t.Errorf("state = %s, want advertising (failure does not block the transition)", m.State())
	}
	if m.Drops() != 1 {
		t.Errorf("Drops() = %d, want 1", m.Drops())
	}
}

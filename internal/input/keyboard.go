package input

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// KeyboardSource stands in for the board's physical button on a desktop
// host: a global hook on one key produces press/release edges for a
// fixed line. Key auto-repeat is collapsed so only genuine edges are
// emitted, matching what a debounced GPIO line would deliver.
type KeyboardSource struct {
	key  string
	line int
	ch   chan Edge
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	held bool
}

// NewKeyboardSource creates a source emitting edges for line whenever
// key (a lowercase gohook key name, e.g. "f9") is pressed or released.
func NewKeyboardSource(key string, line int) *KeyboardSource {
	return &KeyboardSource{
		key:  key,
		line: line,
		ch:   make(chan Edge, 16),
		done: make(chan struct{}),
	}
}

// Events returns the edge channel. It is closed when Stop is called.
func (s *KeyboardSource) Events() <-chan Edge {
	return s.ch
}

// Start registers the key hooks and blocks processing events until Stop
// is called. Run it in a goroutine.
func (s *KeyboardSource) Start() {
	hook.Register(hook.KeyDown, []string{s.key}, func(e hook.Event) {
		s.emit(Pressed)
	})

	hook.Register(hook.KeyUp, []string{s.key}, func(e hook.Event) {
		s.emit(Released)
	})

	evChan := hook.Start()
	go func() {
		<-s.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(s.ch)
}

// Stop ends the hook. Safe to call more than once.
func (s *KeyboardSource) Stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

// emit sends an edge unless it repeats the current direction (key
// auto-repeat fires KeyDown continuously while held).
func (s *KeyboardSource) emit(d Direction) {
	s.mu.Lock()
	pressed := d == Pressed
	if s.held == pressed {
		s.mu.Unlock()
		return
	}
	s.held = pressed
	s.mu.Unlock()

	select {
	case s.ch <- Edge{Line: s.line, Direction: d}:
	default: // don't block the hook thread if the channel is full
	}
}

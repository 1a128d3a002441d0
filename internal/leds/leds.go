// Package leds abstracts the board's indicator LEDs. The core only
// knows the three roles it mirrors state onto; the mapping to real
// hardware (sysfs LEDs on Linux, or nothing at all) lives behind the
// Panel interface.
package leds

// LED identifies an indicator by role, not by pin.
type LED int

const (
	// Button mirrors the physical button state.
	Button LED = iota
	// Advertising is lit while the peripheral is discoverable.
	Advertising
	// Connected is lit while a central is connected.
	Connected
)

func (l LED) String() string {
	switch l {
	case Button:
		return "button"
	case Advertising:
		return "advertising"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Panel drives the indicator LEDs. Implementations must tolerate being
// called from event-handler goroutines and must never block.
type Panel interface {
	Set(l LED, on bool)
}

// NullPanel discards all updates. Used when the host has no mapped LEDs.
type NullPanel struct{}

func (NullPanel) Set(LED, bool) {}

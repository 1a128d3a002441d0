// Package input delivers button edges to the rest of the peripheral.
// A Source produces debounced press/release edges for numbered input
// lines; the Relay consumes them, mirrors the recognized line on the
// button LED, and forwards the raw edge code to the notification
// channel.
package input

// Direction is the raw edge code as sent on the wire: the central
// receives exactly the edge the firmware observed, not a derived value.
type Direction byte

const (
	// Released is the code for a release edge.
	Released Direction = 0x00
	// Pressed is the code for a press edge.
	Pressed Direction = 0x01
)

func (d Direction) String() string {
	switch d {
	case Released:
		return "released"
	case Pressed:
		return "pressed"
	default:
		return "unknown"
	}
}

// Edge is one press or release event on an input line. Each edge is
// transient: it is fully consumed by one relay invocation and never
// stored.
type Edge struct {
	Line      int
	Direction Direction
}

// Source produces edges. Start blocks until Stop is called; run it in a
// goroutine. The Events channel is closed when the source stops.
type Source interface {
	Start()
	Stop()
	Events() <-chan Edge
}

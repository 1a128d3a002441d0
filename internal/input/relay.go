package input

import (
	"log/slog"

	"github.com/chaz8081/buttonlink/internal/leds"
	"github.com/chaz8081/buttonlink/internal/notify"
)

// Relay forwards edges for one monitored line: button LED on press, off
// on release, and the raw edge code published either way. Edges for any
// other line are ignored without side effects.
type Relay struct {
	line  int
	ch    *notify.Channel
	panel leds.Panel
}

// NewRelay creates a relay for the given input line.
func NewRelay(line int, ch *notify.Channel, panel leds.Panel) *Relay {
	return &Relay{line: line, ch: ch, panel: panel}
}

// HandleEdge processes one edge. A failed publish is logged and
// dropped; the next edge supersedes a missed notification anyway.
func (r *Relay) HandleEdge(e Edge) {
	if e.Line != r.line {
		return
	}

	r.panel.Set(leds.Button, e.Direction == Pressed)

	if err := r.ch.Publish(byte(e.Direction)); err != nil {
		slog.Warn("[input] publish failed", "direction", e.Direction.String(), "error", err)
	}
}

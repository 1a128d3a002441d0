// Package notify owns the button characteristic's value and its link to
// the active connection. Publishing while unbound still records the
// value (a later central reads the latest state); the transport send
// only happens while a connection is bound.
package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/chaz8081/buttonlink/internal/transport"
)

// Channel is the single notification channel of the peripheral. The
// bind state and the stored value form one coherent resource, so both
// live under the same mutex: Publish must observe bind and handle as
// they were set by the same Bind or Unbind call.
type Channel struct {
	tr transport.Transport

	mu     sync.Mutex
	handle transport.Handle
	bound  bool
	value  byte
}

// NewChannel creates an unbound channel sending through tr.
func NewChannel(tr transport.Transport) *Channel {
	return &Channel{
		tr:     tr,
		handle: transport.InvalidHandle,
	}
}

// Bind associates the channel with h, replacing any prior binding.
func (c *Channel) Bind(h transport.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = h
	c.bound = true
}

// Unbind clears the association. Subsequent publishes store the value
// but send nothing.
func (c *Channel) Unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = transport.InvalidHandle
	c.bound = false
}

// Publish stores v as the current value and, if a connection is bound,
// sends it as a notification. Delivery is at-most-once per call: no
// retry, no queueing of values published while unbound. A returned
// error means the transport refused the send; the value is stored
// regardless.
func (c *Channel) Publish(v byte) error {
	c.mu.Lock()
	c.value = v
	bound := c.bound
	handle := c.handle
	c.mu.Unlock()

	if !bound {
		slog.Debug("[notify] publish while unbound, value stored only", "value", v)
		return nil
	}

	if err := c.tr.SendNotification(handle, []byte{v}); err != nil {
		return fmt.Errorf("notify: send over handle %#04x: %w", uint16(handle), err)
	}
	return nil
}

// Value returns the most recently published value.
func (c *Channel) Value() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Bound returns the bound handle and whether a binding is active.
func (c *Channel) Bound() (transport.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle, c.bound
}

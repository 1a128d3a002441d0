// Package transport defines the boundary between the peripheral's core
// logic and the underlying BLE link layer. The core drives the radio
// exclusively through the Transport interface and receives link events
// through a LinkEvents sink, so everything above this package can be
// exercised against stubs.
package transport

// Handle identifies the single active connection. The zero connection
// state is represented by InvalidHandle, matching the convention of BLE
// stacks that reserve 0xFFFF for "no connection".
type Handle uint16

// InvalidHandle is the Handle value of a disconnected peripheral.
const InvalidHandle Handle = 0xFFFF

// Valid reports whether h refers to a live connection.
func (h Handle) Valid() bool {
	return h != InvalidHandle
}

// Transport is the outbound half of the link-layer boundary. All calls
// are fire-and-forget from the core's point of view: the link layer owns
// any timeout or retry behavior, and a returned error means the action
// was skipped, never that it is pending.
type Transport interface {
	// StartAdvertising begins broadcasting the advertisement configured
	// at transport construction. It is called once at boot and again
	// after every disconnect.
	StartAdvertising() error

	// BindNotificationTarget associates outbound notifications with the
	// given connection. The link layer rejects binds against a stale or
	// absent handle.
	BindNotificationTarget(h Handle) error

	// SendNotification pushes value to the central over h as an
	// unacknowledged notification. Delivery is best-effort; if the
	// central has not subscribed, the link layer drops the send.
	SendNotification(h Handle, value []byte) error
}

// LinkEvents is the inbound half of the boundary. The link layer invokes
// these callbacks asynchronously, in the order events occurred. Handlers
// must not block.
type LinkEvents interface {
	// HandleConnect reports that a central connected and was assigned h.
	HandleConnect(h Handle)

	// HandleDisconnect reports that the active connection dropped.
	HandleDisconnect()
}

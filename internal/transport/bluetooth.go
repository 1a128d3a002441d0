package transport

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// BluetoothConfig is the static link-layer configuration, fixed at
// startup.
type BluetoothConfig struct {
	DeviceName         string
	ServiceUUID        string
	CharacteristicUUID string

	// Preferred connection parameters, requested from the central once
	// after each connect. Best-effort: a central may ignore them.
	MinInterval        time.Duration
	MaxInterval        time.Duration
	SupervisionTimeout time.Duration
}

// Bluetooth is the Transport implementation backed by
// tinygo.org/x/bluetooth. It registers the button service with a single
// 1-byte read+notify characteristic, advertises the service under the
// configured name, and translates the stack's connect callbacks into
// LinkEvents with allocated connection handles.
type Bluetooth struct {
	adapter *bluetooth.Adapter
	cfg     BluetoothConfig
	events  LinkEvents

	adv        *bluetooth.Advertisement
	buttonChar bluetooth.Characteristic

	// mu protects the single connection slot.
	mu          sync.Mutex
	current     Handle
	currentAddr string
	nextHandle  uint16
}

// NewBluetooth creates a transport on the default adapter. Call Enable
// before any other method.
func NewBluetooth(cfg BluetoothConfig) *Bluetooth {
	return &Bluetooth{
		adapter: bluetooth.DefaultAdapter,
		cfg:     cfg,
		current: InvalidHandle,
	}
}

// SetLinkEvents registers the sink receiving connect/disconnect events.
// Must be called before Enable so no event is lost.
func (b *Bluetooth) SetLinkEvents(ev LinkEvents) {
	b.events = ev
}

// Enable powers on the stack, registers the GATT service, and
// configures (but does not start) the advertisement.
func (b *Bluetooth) Enable() error {
	serviceUUID, err := bluetooth.ParseUUID(b.cfg.ServiceUUID)
	if err != nil {
		return fmt.Errorf("transport: parse service UUID: %w", err)
	}
	charUUID, err := bluetooth.ParseUUID(b.cfg.CharacteristicUUID)
	if err != nil {
		return fmt.Errorf("transport: parse characteristic UUID: %w", err)
	}

	if err := b.adapter.Enable(); err != nil {
		return fmt.Errorf("transport: enable adapter: %w", err)
	}

	b.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			b.handleConnect(device)
		} else {
			b.handleDisconnect(device)
		}
	})

	err = b.adapter.AddService(&bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &b.buttonChar,
				UUID:   charUUID,
				Value:  []byte{0x00},
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("transport: add button service: %w", err)
	}

	b.adv = b.adapter.DefaultAdvertisement()
	err = b.adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    b.cfg.DeviceName,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	})
	if err != nil {
		return fmt.Errorf("transport: configure advertisement: %w", err)
	}

	slog.Info("[ble] stack enabled", "name", b.cfg.DeviceName, "service", b.cfg.ServiceUUID)
	return nil
}

// StartAdvertising begins broadcasting the configured advertisement.
func (b *Bluetooth) StartAdvertising() error {
	if b.adv == nil {
		return fmt.Errorf("transport: not enabled")
	}
	if err := b.adv.Start(); err != nil {
		return fmt.Errorf("transport: start advertising: %w", err)
	}
	return nil
}

// BindNotificationTarget checks that h still refers to the live
// connection. The tinygo stack routes notifications to subscribers by
// itself, so accepting the bind is all there is to do; a stale handle
// is rejected the way a real link layer would.
func (b *Bluetooth) BindNotificationTarget(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h != b.current {
		return fmt.Errorf("transport: bind against stale handle %#04x (current %#04x)", uint16(h), uint16(b.current))
	}
	return nil
}

// SendNotification writes value to the button characteristic, which
// notifies any subscribed central. Sends against a handle other than
// the live connection are rejected.
func (b *Bluetooth) SendNotification(h Handle, value []byte) error {
	b.mu.Lock()
	current := b.current
	b.mu.Unlock()

	if h != current {
		return fmt.Errorf("transport: send against stale handle %#04x", uint16(h))
	}

	if _, err := b.buttonChar.Write(value); err != nil {
		return fmt.Errorf("transport: notify: %w", err)
	}
	return nil
}

// handleConnect allocates a handle for the new connection and forwards
// the event. A second central while the slot is occupied is ignored;
// the peripheral is single-connection and stopped advertising anyway.
func (b *Bluetooth) handleConnect(device bluetooth.Device) {
	addr := device.Address.String()

	b.mu.Lock()
	if b.current.Valid() {
		b.mu.Unlock()
		slog.Warn("[ble] connect while slot occupied, ignoring", "address", addr)
		return
	}
	h := b.allocHandleLocked()
	b.current = h
	b.currentAddr = addr
	b.mu.Unlock()

	slog.Debug("[ble] connected", "address", addr, "handle", uint16(h))

	if b.events != nil {
		b.events.HandleConnect(h)
	}

	// Off the callback path: the parameter negotiation can take a
	// connection interval or two to complete.
	go b.requestConnectionParams(device)
}

// handleDisconnect clears the connection slot and forwards the event.
func (b *Bluetooth) handleDisconnect(device bluetooth.Device) {
	addr := device.Address.String()

	b.mu.Lock()
	if !b.current.Valid() || addr != b.currentAddr {
		b.mu.Unlock()
		slog.Debug("[ble] disconnect for unknown device, ignoring", "address", addr)
		return
	}
	h := b.current
	b.current = InvalidHandle
	b.currentAddr = ""
	b.mu.Unlock()

	slog.Debug("[ble] disconnected", "address", addr, "handle", uint16(h))

	if b.events != nil {
		b.events.HandleDisconnect()
	}
}

// allocHandleLocked returns the next connection handle, skipping the
// invalid sentinel. Caller holds mu.
func (b *Bluetooth) allocHandleLocked() Handle {
	if Handle(b.nextHandle) == InvalidHandle {
		b.nextHandle = 0
	}
	h := Handle(b.nextHandle)
	b.nextHandle++
	return h
}

// requestConnectionParams asks the central for the configured interval
// range. Failures are logged and dropped; the connection works fine on
// whatever parameters the central picked.
func (b *Bluetooth) requestConnectionParams(device bluetooth.Device) {
	if b.cfg.MinInterval == 0 && b.cfg.MaxInterval == 0 {
		return
	}

	err := device.RequestConnectionParams(bluetooth.ConnectionParams{
		MinInterval: bluetooth.NewDuration(b.cfg.MinInterval),
		MaxInterval: bluetooth.NewDuration(b.cfg.MaxInterval),
		Timeout:     bluetooth.NewDuration(b.cfg.SupervisionTimeout),
	})
	if err != nil {
		slog.Warn("[ble] connection parameter request failed", "error", err)
	}
}

package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tinygo.org/x/bluetooth"
)

// TinygoAdapter wraps tinygo-org/bluetooth. On macOS, BLE device identities
// are CoreBluetooth UUIDs rather than MAC addresses; the ID fields carry
// whichever string the platform assigns.
type TinygoAdapter struct {
	adapter *bluetooth.Adapter

	// mu protects the connections map.
	mu          sync.Mutex
	connections map[string]*tinygoConnection // keyed by device identity
}

// NewTinygoAdapter creates a BLE adapter backed by the platform stack.
func NewTinygoAdapter() *TinygoAdapter {
	return &TinygoAdapter{
		adapter:     bluetooth.DefaultAdapter,
		connections: make(map[string]*tinygoConnection),
	}
}

func (a *TinygoAdapter) Enable() error {
	if err := a.adapter.Enable(); err != nil {
		return err
	}

	// Adapter-level connect/disconnect handler. The stack fires this with
	// connected=false when a peripheral drops, which is how we learn about
	// disconnects on every platform.
	a.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		id := device.Address.String()
		a.mu.Lock()
		conn, ok := a.connections[id]
		a.mu.Unlock()
		if ok && conn.disconnectCb != nil {
			conn.disconnectCb()
		}
	})

	return nil
}

func (a *TinygoAdapter) Scan(cb func(Advertisement)) error {
	err := a.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		cb(Advertisement{
			ID:        result.Address.String(),
			LocalName: result.LocalName(),
			RSSI:      int(result.RSSI),
		})
	})
	if err != nil {
		return fmt.Errorf("ble: scan: %w", err)
	}
	return nil
}

func (a *TinygoAdapter) StopScan() error {
	return a.adapter.StopScan()
}

func (a *TinygoAdapter) Connect(ctx context.Context, id string) (Connection, error) {
	var addr bluetooth.Address
	addr.Set(id)

	// The stack's Connect blocks internally with its own timeout. Wrap it so
	// we also respect ctx cancellation.
	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		// The underlying Connect will eventually time out or succeed on its
		// own; we can't cancel it from here, but we return immediately.
		return nil, fmt.Errorf("ble: connect to %s: %w", id, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return nil, fmt.Errorf("ble: connect to %s: %w", id, result.err)
		}
		conn := &tinygoConnection{device: result.device}

		// Track the connection so the adapter-level disconnect handler can
		// find it and fire its OnDisconnect callback.
		a.mu.Lock()
		a.connections[id] = conn
		a.mu.Unlock()

		return conn, nil
	}
}

// Compile-time check that TinygoAdapter implements Adapter.
var _ Adapter = (*TinygoAdapter)(nil)

type tinygoConnection struct {
	device       bluetooth.Device
	disconnectCb func()
}

func (c *tinygoConnection) DiscoverCharacteristics(serviceUUID string) ([]Characteristic, error) {
	svcUUID, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: parse service UUID: %w", err)
	}

	svcs, err := c.device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil {
		return nil, fmt.Errorf("ble: discover services: %w", err)
	}
	if len(svcs) == 0 {
		return nil, fmt.Errorf("ble: service %s not found", serviceUUID)
	}

	chars, err := svcs[0].DiscoverCharacteristics(nil)
	if err != nil {
		return nil, fmt.Errorf("ble: discover characteristics: %w", err)
	}

	out := make([]Characteristic, 0, len(chars))
	for i := range chars {
		out = append(out, &tinygoCharacteristic{char: chars[i]})
	}
	return out, nil
}

func (c *tinygoConnection) Disconnect() error {
	return c.device.Disconnect()
}

func (c *tinygoConnection) OnDisconnect(cb func()) {
	c.disconnectCb = cb
}

type tinygoCharacteristic struct {
	char bluetooth.DeviceCharacteristic
}

func (c *tinygoCharacteristic) UUID() string {
	return strings.ToLower(c.char.UUID().String())
}

// Properties reports the full capability mask. The portable tinygo API does
// not surface the GATT property bits, so the platform adapter claims all
// capabilities and relies on the firmware rejecting invalid operations; the
// capability-based selection rules still apply against mock transports in
// tests and against future adapters that do report bits.
func (c *tinygoCharacteristic) Properties() Properties {
	return PropertyNotify | PropertyIndicate | PropertyWrite | PropertyWriteWithoutResponse
}

func (c *tinygoCharacteristic) Write(data []byte, withResponse bool) error {
	// Only unacknowledged writes are exposed portably; every probe family we
	// ship accepts write-without-response on its command characteristic.
	_ = withResponse
	_, err := c.char.WriteWithoutResponse(data)
	return err
}

func (c *tinygoCharacteristic) Subscribe(cb func(data []byte)) error {
	return c.char.EnableNotifications(func(buf []byte) {
		cb(buf)
	})
}

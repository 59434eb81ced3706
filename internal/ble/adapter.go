// Package ble abstracts the Bluetooth Low Energy transport used to talk to
// probe thermometers. The interfaces are deliberately small so the protocol
// engine can be exercised against a mock adapter in tests.
package ble

import "context"

// Properties is the capability bit mask of a GATT characteristic.
type Properties uint8

const (
	PropertyNotify Properties = 1 << iota
	PropertyIndicate
	PropertyWrite
	PropertyWriteWithoutResponse
)

// CanNotify reports whether the peripheral can push data on this
// characteristic without polling.
func (p Properties) CanNotify() bool {
	return p&(PropertyNotify|PropertyIndicate) != 0
}

// CanWrite reports whether the characteristic accepts writes, with or
// without response.
func (p Properties) CanWrite() bool {
	return p&(PropertyWrite|PropertyWriteWithoutResponse) != 0
}

// Advertisement is a single advertisement sighting. ID is the
// transport-assigned identity: a MAC address on Linux, a CoreBluetooth UUID
// on macOS.
type Advertisement struct {
	ID        string
	LocalName string
	RSSI      int
}

// Adapter abstracts the BLE hardware adapter.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan observes advertisements continuously, invoking cb for each
	// sighting, until StopScan is called. Blocks the calling goroutine.
	Scan(cb func(Advertisement)) error
	// StopScan halts a running Scan.
	StopScan() error
	// Connect establishes a connection to the device with the given identity.
	Connect(ctx context.Context, id string) (Connection, error)
}

// Connection is an active link to a peripheral.
type Connection interface {
	// DiscoverCharacteristics discovers the given service and returns all of
	// its characteristics.
	DiscoverCharacteristics(serviceUUID string) ([]Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Characteristic is a single GATT characteristic on a connected peripheral.
type Characteristic interface {
	// UUID returns the characteristic UUID in canonical lowercase form.
	UUID() string
	// Properties returns the capability bits.
	Properties() Properties
	// Write sends data, with or without a link-layer response.
	Write(data []byte, withResponse bool) error
	// Subscribe registers a callback for notifications on this characteristic.
	Subscribe(callback func(data []byte)) error
}

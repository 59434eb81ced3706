package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pitprobe/pitprobe/internal/ble"
)

// mockCharacteristic records writes and allows simulating notifications.
type mockCharacteristic struct {
	mu             sync.Mutex
	uuid           string
	props          ble.Properties
	writes         [][]byte
	callback       func([]byte)
	subscribeCount int
}

func (c *mockCharacteristic) UUID() string               { return c.uuid }
func (c *mockCharacteristic) Properties() ble.Properties { return c.props }

func (c *mockCharacteristic) Write(data []byte, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	return nil
}

func (c *mockCharacteristic) Subscribe(cb func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
	c.subscribeCount++
	return nil
}

// SimulateNotification pushes data to the subscriber.
func (c *mockCharacteristic) SimulateNotification(data []byte) {
	c.mu.Lock()
	cb := c.callback
	c.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

func (c *mockCharacteristic) SubscribeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribeCount
}

// mockConnection simulates a connected peripheral with a fixed
// characteristic set.
type mockConnection struct {
	mu           sync.Mutex
	chars        []*mockCharacteristic
	disconnectCb func()
	disconnected bool
}

func newMockConnection(chars ...*mockCharacteristic) *mockConnection {
	return &mockConnection{chars: chars}
}

func (c *mockConnection) DiscoverCharacteristics(_ string) ([]ble.Characteristic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ble.Characteristic, len(c.chars))
	for i, ch := range c.chars {
		out[i] = ch
	}
	return out, nil
}

func (c *mockConnection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

func (c *mockConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCb = cb
}

// SimulateDisconnect triggers the disconnect callback.
func (c *mockConnection) SimulateDisconnect() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// mockAdapter simulates the BLE adapter: advertisements are injected by the
// test via Advertise, connections come from a prepared connection.
type mockAdapter struct {
	mu           sync.Mutex
	cb           func(ble.Advertisement)
	stop         chan struct{}
	conn         *mockConnection
	connectErr   error
	connectCalls int
}

func newMockAdapter(conn *mockConnection) *mockAdapter {
	return &mockAdapter{conn: conn}
}

func (a *mockAdapter) Enable() error { return nil }

func (a *mockAdapter) Scan(cb func(ble.Advertisement)) error {
	a.mu.Lock()
	a.cb = cb
	stop := make(chan struct{})
	a.stop = stop
	a.mu.Unlock()

	<-stop
	return nil
}

func (a *mockAdapter) StopScan() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil {
		select {
		case <-a.stop:
		default:
			close(a.stop)
		}
		a.cb = nil
	}
	return nil
}

// Advertise injects one advertisement sighting into a running scan.
func (a *mockAdapter) Advertise(adv ble.Advertisement) {
	a.mu.Lock()
	cb := a.cb
	a.mu.Unlock()
	if cb != nil {
		cb(adv)
	}
}

func (a *mockAdapter) Connect(_ context.Context, _ string) (ble.Connection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connectCalls++
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	if a.conn == nil {
		return nil, fmt.Errorf("mock: no connection prepared")
	}
	return a.conn, nil
}

func (a *mockAdapter) ConnectCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connectCalls
}

func TestMockAdapterImplementsInterface(t *testing.T) {
	var _ ble.Adapter = (*mockAdapter)(nil)
}

func TestMockConnectionImplementsInterface(t *testing.T) {
	var _ ble.Connection = (*mockConnection)(nil)
}

func TestMockCharacteristicImplementsInterface(t *testing.T) {
	var _ ble.Characteristic = (*mockCharacteristic)(nil)
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitprobe/pitprobe/internal/ble"
	"github.com/pitprobe/pitprobe/internal/probe"
)

var testProfile = &probe.Profile{
	Key:            "tr45",
	ServiceUUID:    "0000ffe0-0000-1000-8000-00805f9b34fb",
	NotifyCharUUID: "0000ffe4-0000-1000-8000-00805f9b34fb",
	WriteCharUUID:  "0000ffe9-0000-1000-8000-00805f9b34fb",
	AltNotifyUUIDs: []string{"0000ffe3-0000-1000-8000-00805f9b34fb"},
}

func TestResolveLinkPrefersExactMatch(t *testing.T) {
	exact := &mockCharacteristic{uuid: testProfile.NotifyCharUUID, props: ble.PropertyNotify}
	other := &mockCharacteristic{uuid: "0000aaaa-0000-1000-8000-00805f9b34fb", props: ble.PropertyNotify | ble.PropertyWrite}
	wr := &mockCharacteristic{uuid: testProfile.WriteCharUUID, props: ble.PropertyWriteWithoutResponse}
	conn := newMockConnection(other, exact, wr)

	link, err := ResolveLink(conn, testProfile, func([]byte) {})
	require.NoError(t, err)
	assert.Same(t, exact, link.notify.(*mockCharacteristic))
	assert.Same(t, wr, link.write.(*mockCharacteristic))
}

func TestResolveLinkExactUUIDWithoutCapabilityIsSkipped(t *testing.T) {
	// The declared notify UUID exists but cannot notify; selection must fall
	// through rather than subscribe to it.
	broken := &mockCharacteristic{uuid: testProfile.NotifyCharUUID, props: ble.PropertyWrite}
	fallback := &mockCharacteristic{uuid: "0000bbbb-0000-1000-8000-00805f9b34fb", props: ble.PropertyIndicate}
	conn := newMockConnection(broken, fallback)

	link, err := ResolveLink(conn, testProfile, func([]byte) {})
	require.NoError(t, err)
	assert.Same(t, fallback, link.notify.(*mockCharacteristic))
	assert.Same(t, broken, link.write.(*mockCharacteristic), "write falls back to the first writable characteristic")
}

func TestResolveLinkUsesAlternateUUIDBeforeFallback(t *testing.T) {
	alt := &mockCharacteristic{uuid: testProfile.AltNotifyUUIDs[0], props: ble.PropertyNotify}
	other := &mockCharacteristic{uuid: "0000cccc-0000-1000-8000-00805f9b34fb", props: ble.PropertyNotify | ble.PropertyWrite}
	conn := newMockConnection(other, alt)

	link, err := ResolveLink(conn, testProfile, func([]byte) {})
	require.NoError(t, err)
	assert.Same(t, alt, link.notify.(*mockCharacteristic))
}

func TestResolveLinkFailsWithoutCapableCharacteristic(t *testing.T) {
	writeOnly := &mockCharacteristic{uuid: testProfile.WriteCharUUID, props: ble.PropertyWrite}

	_, err := ResolveLink(newMockConnection(writeOnly), testProfile, func([]byte) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify")

	notifyOnly := &mockCharacteristic{uuid: testProfile.NotifyCharUUID, props: ble.PropertyNotify}
	_, err = ResolveLink(newMockConnection(notifyOnly), testProfile, func([]byte) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writable")
}

func TestCharLinkSubscribesExactlyOnce(t *testing.T) {
	notify := &mockCharacteristic{uuid: testProfile.NotifyCharUUID, props: ble.PropertyNotify}
	wr := &mockCharacteristic{uuid: testProfile.WriteCharUUID, props: ble.PropertyWrite}
	conn := newMockConnection(notify, wr)

	var got [][]byte
	link, err := ResolveLink(conn, testProfile, func(b []byte) { got = append(got, b) })
	require.NoError(t, err)

	require.NoError(t, link.SetNotify(true))
	require.NoError(t, link.SetNotify(true))
	assert.Equal(t, 1, notify.SubscribeCount())
	assert.True(t, link.Subscribed())

	// Toggling off and on again must not re-subscribe at transport level.
	require.NoError(t, link.SetNotify(false))
	assert.False(t, link.Subscribed())
	require.NoError(t, link.SetNotify(true))
	assert.Equal(t, 1, notify.SubscribeCount())

	notify.SimulateNotification([]byte{0x01})
	require.Len(t, got, 1)
}

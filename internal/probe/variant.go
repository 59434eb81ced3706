package probe

import (
	"fmt"
	"time"
)

// Link is what a variant needs from the active connection. The engine hands
// each variant a link bound to the resolved notify/write characteristics.
type Link interface {
	// Write sends bytes on the command characteristic.
	Write(data []byte, withResponse bool) error
	// SetNotify enables or disables the notification subscription.
	SetNotify(enabled bool) error
	// Subscribed reports whether notifications are currently enabled.
	Subscribed() bool
}

// Events carries the variant's outbound callbacks. All three are injected at
// construction so a variant can never observe an unset handler.
type Events struct {
	Ready func()
	Frame func(TemperatureFrame)
	Error func(error)
}

// RegistrationLookup resolves a stored registration code by device identity.
// The engine only ever reads through this; writes go through the registry's
// own store interface.
type RegistrationLookup interface {
	RegistrationCode(deviceID string) (string, bool)
}

// Variant is the per-family protocol implementation. Inbound transport bytes
// arrive via HandleNotification; everything outbound goes through the Link.
type Variant interface {
	// Start begins measurement: for polled families this arms the poll
	// timer, and every family reports Ready.
	Start() error
	// HandleNotification consumes one raw inbound chunk.
	HandleNotification(data []byte)
	// Stop cancels timers and outstanding waiters. Idempotent.
	Stop()
}

// pollInterval is the realtime cadence every polled family uses.
const pollInterval = time.Second

// NewVariant constructs the protocol implementation for a profile, selected
// once at connect time by the profile's kind.
func NewVariant(p *Profile, deviceID string, link Link, sched Scheduler, reg RegistrationLookup, ev Events) (Variant, error) {
	if ev.Ready == nil || ev.Frame == nil || ev.Error == nil {
		return nil, fmt.Errorf("probe: all event handlers must be set")
	}
	switch p.Kind {
	case KindNotifyText:
		return newNotifyTextVariant(deviceID, ev), nil
	case KindPolled:
		return newPolledVariant(p, deviceID, link, sched, ev), nil
	case KindWakePolled:
		return newWakePolledVariant(p, deviceID, link, sched, ev), nil
	case KindBlock:
		return newBlockVariant(p, deviceID, link, sched, reg, ev), nil
	default:
		return nil, fmt.Errorf("probe: unknown variant kind %d for profile %q", p.Kind, p.Key)
	}
}

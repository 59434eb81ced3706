package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pitprobe/pitprobe/internal/ble"
	"github.com/pitprobe/pitprobe/internal/probe"
)

// ResolveLink discovers the profile's service and binds its notify and write
// characteristics into a Link for the device variant. Vendor firmware
// revisions expose slightly different characteristic sets, so selection is
// preference-with-fallback:
//
//  1. the profile's declared UUID (primary, then alternates) when it also
//     carries the required capability bit,
//  2. otherwise the first discovered characteristic on the service with the
//     capability bit, regardless of UUID,
//  3. otherwise discovery fails with a descriptive error.
//
// Enabling notifications on a characteristic without the notify/indicate bit
// is a protocol violation the transport rejects, so rule 3 never proceeds
// silently.
func ResolveLink(conn ble.Connection, p *probe.Profile, onData func([]byte)) (*CharLink, error) {
	chars, err := conn.DiscoverCharacteristics(p.ServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("engine: discover %s service %s: %w", p.Key, p.ServiceUUID, err)
	}

	notifyPrefs := append([]string{p.NotifyCharUUID}, p.AltNotifyUUIDs...)
	notify := pickCharacteristic(chars, notifyPrefs, ble.Properties.CanNotify)
	if notify == nil {
		return nil, fmt.Errorf("engine: service %s has no characteristic with notify/indicate capability (wanted %s)", p.ServiceUUID, p.NotifyCharUUID)
	}

	writePrefs := append([]string{p.WriteCharUUID}, p.AltWriteUUIDs...)
	write := pickCharacteristic(chars, writePrefs, ble.Properties.CanWrite)
	if write == nil {
		return nil, fmt.Errorf("engine: service %s has no writable characteristic (wanted %s)", p.ServiceUUID, p.WriteCharUUID)
	}

	return &CharLink{notify: notify, write: write, onData: onData}, nil
}

// pickCharacteristic applies the preference-with-fallback rule.
func pickCharacteristic(chars []ble.Characteristic, preferred []string, capable func(ble.Properties) bool) ble.Characteristic {
	for _, uuid := range preferred {
		for _, c := range chars {
			if strings.EqualFold(c.UUID(), uuid) && capable(c.Properties()) {
				return c
			}
		}
	}
	for _, c := range chars {
		if capable(c.Properties()) {
			return c
		}
	}
	return nil
}

// CharLink implements probe.Link over a resolved pair of characteristics.
// The transport subscription is established at most once per connection; the
// logical subscribed flag can be toggled off and on without re-subscribing.
type CharLink struct {
	notify ble.Characteristic
	write  ble.Characteristic
	onData func([]byte)

	mu             sync.Mutex
	transportSubbd bool
	active         bool
}

func (l *CharLink) Write(data []byte, withResponse bool) error {
	return l.write.Write(data, withResponse)
}

func (l *CharLink) SetNotify(enabled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !enabled {
		l.active = false
		return nil
	}
	if !l.transportSubbd {
		if err := l.notify.Subscribe(l.onData); err != nil {
			return fmt.Errorf("engine: enable notifications on %s: %w", l.notify.UUID(), err)
		}
		l.transportSubbd = true
	}
	l.active = true
	return nil
}

func (l *CharLink) Subscribed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

var _ probe.Link = (*CharLink)(nil)

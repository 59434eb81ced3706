// Package engine drives the scan→match→connect→discover→ready→measure
// lifecycle on top of the ble transport and the probe protocol engine, and
// republishes unified temperature and connection-state streams for external
// consumers.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pitprobe/pitprobe/internal/ble"
	"github.com/pitprobe/pitprobe/internal/probe"
)

// ScannedDevice is one discovered probe. Identity is the transport-assigned
// ID; name, RSSI and last-seen refresh in place on every sighting.
type ScannedDevice struct {
	ID       string
	Name     string
	RSSI     int
	LastSeen time.Time
	Profile  *probe.Profile
}

// Discovery pairs a device snapshot with the raw advertisement that
// produced it.
type Discovery struct {
	Device ScannedDevice
	Raw    ble.Advertisement
}

// Scanner observes advertisements continuously, filters them through the
// profile catalog, and deduplicates by device identity. Advertisements that
// match no profile are ignored entirely.
type Scanner struct {
	adapter ble.Adapter

	mu      sync.Mutex
	devices map[string]*ScannedDevice
	stopped bool
	started bool

	events chan Discovery
}

// NewScanner creates a scanner over the given adapter.
func NewScanner(adapter ble.Adapter) *Scanner {
	return &Scanner{
		adapter: adapter,
		devices: make(map[string]*ScannedDevice),
		events:  make(chan Discovery, 16),
	}
}

// Start begins continuous observation. The events channel is closed once the
// underlying scan loop exits after Stop; events already queued at Stop time
// are still delivered.
func (s *Scanner) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("engine: scanner already started")
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		if err := s.adapter.Scan(s.handleAdvertisement); err != nil {
			slog.Warn("[SCAN] scan loop ended with error", "error", err)
		}
		close(s.events)
	}()
	return nil
}

// Stop halts observation. Safe to call more than once.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if s.stopped || !s.started {
		s.stopped = true
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	if err := s.adapter.StopScan(); err != nil {
		slog.Warn("[SCAN] stop scan", "error", err)
	}
}

// Events returns the discovery stream.
func (s *Scanner) Events() <-chan Discovery {
	return s.events
}

// Devices returns a snapshot of everything seen so far, strongest signal
// first.
func (s *Scanner) Devices() []ScannedDevice {
	s.mu.Lock()
	out := make([]ScannedDevice, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, *d)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RSSI > out[j].RSSI })
	return out
}

func (s *Scanner) handleAdvertisement(adv ble.Advertisement) {
	profile, ok := probe.MatchProfile(adv.LocalName)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	d, known := s.devices[adv.ID]
	if !known {
		d = &ScannedDevice{ID: adv.ID, Profile: profile}
		s.devices[adv.ID] = d
	}
	// Dedup is by identity, not content: repeated sightings refresh the one
	// entry in place.
	d.Name = adv.LocalName
	d.RSSI = adv.RSSI
	d.LastSeen = time.Now()
	snapshot := *d
	s.mu.Unlock()

	select {
	case s.events <- Discovery{Device: snapshot, Raw: adv}:
	default:
		slog.Debug("[SCAN] discovery queue full, dropping event", "device", adv.ID)
	}
}

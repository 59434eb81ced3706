package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pitprobe/pitprobe/internal/ble"
	"github.com/pitprobe/pitprobe/internal/probe"
)

// Options configures orchestrator policy.
type Options struct {
	// AutoConnect connects without explicit selection: to the first
	// discovered match when Preferred is empty, otherwise only to
	// identities in Preferred.
	AutoConnect bool
	Preferred   []string

	ConnectTimeout time.Duration
	Scheduler      probe.Scheduler
}

// Orchestrator owns the transport handle and drives the protocol-engine
// state machine: idle → scanning → connecting → ready → (failed | idle).
// At most one device→connection transition is in flight at any time.
type Orchestrator struct {
	adapter  ble.Adapter
	registry probe.RegistrationLookup
	opts     Options

	mu         sync.Mutex
	phase      probe.Phase
	scanner    *Scanner
	conn       ble.Connection
	link       *CharLink
	variant    probe.Variant
	device     string
	connecting bool
	enabled    bool

	// Consumer-facing streams. Publishing never blocks the transport
	// callback path; overflow drops with a log line.
	frames chan probe.TemperatureFrame
	states chan probe.ConnectionState
}

// New creates an orchestrator. The registry supplies per-device registration
// codes and is only ever read.
func New(adapter ble.Adapter, registry probe.RegistrationLookup, opts Options) *Orchestrator {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.Scheduler == nil {
		opts.Scheduler = probe.TickerScheduler{}
	}
	return &Orchestrator{
		adapter:  adapter,
		registry: registry,
		opts:     opts,
		phase:    probe.PhaseIdle,
		frames:   make(chan probe.TemperatureFrame, 64),
		states:   make(chan probe.ConnectionState, 16),
	}
}

// Frames returns the unified temperature stream.
func (o *Orchestrator) Frames() <-chan probe.TemperatureFrame { return o.frames }

// States returns the connection-state stream.
func (o *Orchestrator) States() <-chan probe.ConnectionState { return o.states }

// Phase returns the current connection phase.
func (o *Orchestrator) Phase() probe.Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Devices returns the current scan results snapshot.
func (o *Orchestrator) Devices() []ScannedDevice {
	o.mu.Lock()
	s := o.scanner
	o.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Devices()
}

// StartScan moves idle or failed to scanning. Discovery events feed the
// auto-connect policy when enabled.
func (o *Orchestrator) StartScan() error {
	o.mu.Lock()
	if o.phase != probe.PhaseIdle && o.phase != probe.PhaseFailed {
		phase := o.phase
		o.mu.Unlock()
		return fmt.Errorf("engine: cannot start scanning from %s", phase)
	}
	if !o.enabled {
		if err := o.adapter.Enable(); err != nil {
			o.mu.Unlock()
			return fmt.Errorf("engine: enable adapter: %w", err)
		}
		o.enabled = true
	}
	scanner := NewScanner(o.adapter)
	o.scanner = scanner
	o.mu.Unlock()

	if err := scanner.Start(); err != nil {
		return err
	}
	o.setPhase(probe.PhaseScanning, "", "")

	go o.watchDiscoveries(scanner)
	return nil
}

func (o *Orchestrator) watchDiscoveries(s *Scanner) {
	for d := range s.Events() {
		if !o.shouldAutoConnect(d.Device) {
			continue
		}
		if err := o.Connect(d.Device); err != nil {
			slog.Warn("[ENGINE] auto-connect failed", "device", d.Device.ID, "error", err)
		}
	}
}

func (o *Orchestrator) shouldAutoConnect(dev ScannedDevice) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.opts.AutoConnect {
		return false
	}
	// Discoveries are ignored while a connection is in flight or active.
	if o.phase != probe.PhaseScanning || o.connecting {
		return false
	}
	if len(o.opts.Preferred) == 0 {
		return true
	}
	for _, id := range o.opts.Preferred {
		if id == dev.ID {
			return true
		}
	}
	return false
}

// Connect drives one scan-result through connect, characteristic discovery,
// subscription and variant start. Exactly one attempt may be in flight; a
// second call fails immediately.
func (o *Orchestrator) Connect(dev ScannedDevice) error {
	o.mu.Lock()
	if o.connecting || o.phase == probe.PhaseConnecting || o.phase == probe.PhaseReady {
		active := o.device
		o.mu.Unlock()
		return fmt.Errorf("engine: a connection to %s is already in flight", active)
	}
	o.connecting = true
	o.device = dev.ID
	scanner := o.scanner
	o.scanner = nil
	o.mu.Unlock()

	// Connecting supersedes scanning; the scan result list is discarded.
	if scanner != nil {
		scanner.Stop()
	}
	o.setPhase(probe.PhaseConnecting, dev.ID, "")

	if err := o.connect(dev); err != nil {
		o.teardown()
		o.setPhase(probe.PhaseFailed, dev.ID, err.Error())
		return err
	}
	return nil
}

func (o *Orchestrator) connect(dev ScannedDevice) error {
	ctx, cancel := context.WithTimeout(context.Background(), o.opts.ConnectTimeout)
	defer cancel()

	conn, err := o.adapter.Connect(ctx, dev.ID)
	if err != nil {
		return fmt.Errorf("engine: connect to %s: %w", dev.ID, err)
	}

	link, err := ResolveLink(conn, dev.Profile, o.handleNotification)
	if err != nil {
		conn.Disconnect()
		return err
	}

	variant, err := probe.NewVariant(dev.Profile, dev.ID, link, o.opts.Scheduler, o.registry, probe.Events{
		Ready: func() { o.setPhase(probe.PhaseReady, dev.ID, "") },
		Frame: o.publishFrame,
		Error: func(err error) {
			// Authentication refusals and the like are reported but never
			// tear down the connection.
			slog.Warn("[ENGINE] variant error", "device", dev.ID, "error", err)
		},
	})
	if err != nil {
		conn.Disconnect()
		return err
	}

	o.mu.Lock()
	o.conn = conn
	o.link = link
	o.variant = variant
	o.mu.Unlock()

	conn.OnDisconnect(func() { o.handleDisconnect(dev.ID) })

	if err := link.SetNotify(true); err != nil {
		conn.Disconnect()
		return err
	}
	if err := variant.Start(); err != nil {
		conn.Disconnect()
		return fmt.Errorf("engine: start measurement on %s: %w", dev.ID, err)
	}

	o.mu.Lock()
	o.connecting = false
	o.mu.Unlock()

	slog.Info("[ENGINE] connected", "device", dev.ID, "profile", dev.Profile.Key)
	return nil
}

// handleNotification forwards raw transport bytes to the active variant.
func (o *Orchestrator) handleNotification(data []byte) {
	o.mu.Lock()
	v := o.variant
	o.mu.Unlock()
	if v != nil {
		v.HandleNotification(data)
	}
}

// handleDisconnect tears down all per-connection state and returns to idle.
func (o *Orchestrator) handleDisconnect(deviceID string) {
	slog.Warn("[ENGINE] disconnected", "device", deviceID)
	o.teardown()
	o.setPhase(probe.PhaseIdle, deviceID, "connection lost")
}

// Stop cancels everything: scan, poll timers, reassembly buffers, pending
// command waiters, and the connection itself.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	scanner := o.scanner
	o.scanner = nil
	o.mu.Unlock()
	if scanner != nil {
		scanner.Stop()
	}

	o.teardown()
	o.setPhase(probe.PhaseIdle, "", "")
}

// teardown releases per-connection state. Variant.Stop cancels the poll
// timer, discards the reassembly buffer and fails outstanding waiters
// immediately rather than letting them time out.
func (o *Orchestrator) teardown() {
	o.mu.Lock()
	variant := o.variant
	conn := o.conn
	o.variant = nil
	o.link = nil
	o.conn = nil
	o.device = ""
	o.connecting = false
	o.mu.Unlock()

	if variant != nil {
		variant.Stop()
	}
	if conn != nil {
		conn.Disconnect()
	}
}

func (o *Orchestrator) setPhase(phase probe.Phase, device, reason string) {
	o.mu.Lock()
	o.phase = phase
	o.mu.Unlock()

	state := probe.ConnectionState{Phase: phase, Device: device, Reason: reason}
	select {
	case o.states <- state:
	default:
		slog.Debug("[ENGINE] state queue full, dropping update", "state", state)
	}
}

func (o *Orchestrator) publishFrame(f probe.TemperatureFrame) {
	select {
	case o.frames <- f:
	default:
		slog.Warn("[ENGINE] frame queue full, dropping sample", "device", f.Device)
	}
}

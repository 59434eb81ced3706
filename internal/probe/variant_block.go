package probe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/pitprobe/pitprobe/internal/probe/protocol"
)

// ErrAuthRefused reports that the probe rejected the stored registration
// code, or that no usable code exists for it.
var ErrAuthRefused = errors.New("probe: device refused authentication")

const (
	// commandTimeout bounds a single request/response exchange.
	commandTimeout = 2 * time.Second
	// authRetryInterval throttles authentication attempts after a refusal.
	authRetryInterval = 2 * time.Second
)

// blockVariant handles the multi-block fragmented family. Every logical
// command is wrapped twice (inner SOH frame, then an enveloped transfer) and
// fragmented into 20-byte packets; inbound packets are reassembled the same
// way in reverse. Settings reads can be refused until the probe is
// authenticated with its registration code.
type blockVariant struct {
	deviceID string
	link     Link
	sched    Scheduler
	crcInit  uint16
	reg      RegistrationLookup
	ev       Events

	router *Router
	reasm  *protocol.Reassembler

	mu          sync.Mutex
	cancelPoll  CancelFunc
	lastAuth    time.Time
	authRefused bool
}

func newBlockVariant(p *Profile, deviceID string, link Link, sched Scheduler, reg RegistrationLookup, ev Events) *blockVariant {
	return &blockVariant{
		deviceID: deviceID,
		link:     link,
		sched:    sched,
		crcInit:  p.CRCInit,
		reg:      reg,
		ev:       ev,
		router:   NewRouter(),
		reasm:    protocol.NewReassembler(),
	}
}

func (v *blockVariant) Start() error {
	v.mu.Lock()
	v.cancelPoll = v.sched.Every(pollInterval, v.poll)
	v.mu.Unlock()

	v.ev.Ready()
	v.requestSettings()
	return nil
}

func (v *blockVariant) poll() {
	inner := protocol.BuildCommand(protocol.CmdReadRealtime, protocol.SubRealtimeAll, nil, v.crcInit)
	v.sendWrapped(inner)
}

// sendWrapped envelopes an inner frame and writes its fragments in order.
func (v *blockVariant) sendWrapped(inner []byte) {
	env := protocol.WrapEnvelope(protocol.EnvCmdRequest, inner, v.crcInit)
	for _, pkt := range protocol.Fragment(env) {
		if err := v.link.Write(pkt, false); err != nil {
			slog.Warn("[PROBE] fragment write failed", "device", v.deviceID, "error", err)
			return
		}
	}
}

// requestSettings issues a settings read through the router. A refusal
// status triggers the authentication sub-flow.
func (v *blockVariant) requestSettings() {
	err := v.router.Await(v.sched, protocol.CmdReadSettings, commandTimeout, func(f protocol.SOHFrame, err error) {
		if err != nil {
			slog.Warn("[PROBE] settings read failed", "device", v.deviceID, "error", err)
			return
		}
		if f.Status == protocol.StatusRefused {
			v.authenticate()
			return
		}
		slog.Info("[PROBE] settings read ok", "device", v.deviceID, "bytes", len(f.Payload))
	})
	if err != nil {
		slog.Debug("[PROBE] settings read already pending", "device", v.deviceID)
		return
	}
	v.sendWrapped(protocol.BuildCommand(protocol.CmdReadSettings, 0x00, nil, v.crcInit))
}

// authenticate looks up the stored registration code and sends it as a
// little-endian 32-bit value. Attempts are throttled so a probe that keeps
// refusing is retried at most once per authRetryInterval.
func (v *blockVariant) authenticate() {
	v.mu.Lock()
	if time.Since(v.lastAuth) < authRetryInterval {
		v.mu.Unlock()
		return
	}
	v.lastAuth = time.Now()
	v.mu.Unlock()

	code, ok := v.reg.RegistrationCode(v.deviceID)
	if !ok || !validRegistrationCode(code) {
		v.setRefused()
		v.ev.Error(fmt.Errorf("%w: no valid registration code stored for %s", ErrAuthRefused, v.deviceID))
		return
	}

	n, _ := strconv.ParseUint(code, 10, 32)
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, uint32(n))

	err := v.router.Await(v.sched, protocol.CmdAuthenticate, commandTimeout, func(f protocol.SOHFrame, err error) {
		if err != nil {
			v.ev.Error(fmt.Errorf("probe: authenticate %s: %w", v.deviceID, err))
			return
		}
		if f.Status != protocol.StatusOK {
			v.setRefused()
			v.ev.Error(fmt.Errorf("%w: status 0x%02X", ErrAuthRefused, f.Status))
			return
		}
		slog.Info("[PROBE] authenticated", "device", v.deviceID)
		v.requestSettings()
	})
	if err != nil {
		return
	}
	v.sendWrapped(protocol.BuildCommand(protocol.CmdAuthenticate, 0x00, payload, v.crcInit))
}

func (v *blockVariant) setRefused() {
	v.mu.Lock()
	v.authRefused = true
	v.mu.Unlock()
}

// Refused reports whether the last authentication attempt was rejected.
func (v *blockVariant) Refused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.authRefused
}

func (v *blockVariant) HandleNotification(data []byte) {
	stream, err := v.reasm.Feed(data)
	if err != nil {
		// Reassembly failures are non-fatal; the next poll starts fresh.
		slog.Debug("[PROBE] dropping transfer", "device", v.deviceID, "error", err)
		return
	}
	if stream == nil {
		return
	}
	slog.Debug("[PROBE] transfer complete", "device", v.deviceID,
		"bytes", len(stream), "notifyRate", v.reasm.Rate().PerSecond(time.Now()))

	_, inner, err := protocol.UnwrapEnvelope(stream, v.crcInit)
	if err != nil {
		slog.Debug("[PROBE] dropping envelope", "device", v.deviceID, "error", err)
		return
	}
	f, err := protocol.ParseFrame(inner, v.crcInit)
	if err != nil {
		slog.Debug("[PROBE] dropping inner frame", "device", v.deviceID, "error", err)
		return
	}

	if v.router.Resolve(f) {
		return
	}
	if f.Cmd == protocol.CmdReadRealtime {
		emitChannelFrames(v.ev, v.deviceID, f)
	}
}

func (v *blockVariant) Stop() {
	v.mu.Lock()
	cancel := v.cancelPoll
	v.cancelPoll = nil
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	v.router.FailAll(fmt.Errorf("probe: connection to %s closed", v.deviceID))
	v.reasm.Reset()
}

// validRegistrationCode accepts exactly eight ASCII digits.
func validRegistrationCode(code string) bool {
	if len(code) != 8 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

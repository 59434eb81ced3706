package probe

import (
	"log/slog"
	"time"

	"github.com/pitprobe/pitprobe/internal/probe/protocol"
)

// wakeDelay is how long the power-saving probes need between the wake byte
// and the command. The firmware tolerates 20-100 ms; 40 ms is what the
// vendor's own app uses.
const wakeDelay = 40 * time.Millisecond

// wakePolledVariant handles probes that sleep their radio between polls:
// each cycle sends a single zero byte to rouse the probe, waits, then sends
// the normal realtime command.
type wakePolledVariant struct {
	polledVariant

	cancelWake CancelFunc
}

func newWakePolledVariant(p *Profile, deviceID string, link Link, sched Scheduler, ev Events) *wakePolledVariant {
	return &wakePolledVariant{
		polledVariant: *newPolledVariant(p, deviceID, link, sched, ev),
	}
}

func (v *wakePolledVariant) Start() error {
	v.cancelPoll = v.sched.Every(pollInterval, v.pollWithWake)
	v.ev.Ready()
	return nil
}

func (v *wakePolledVariant) pollWithWake() {
	// If the notify subscription is not up when the tick fires, the reply
	// would be lost anyway: skip this poll (do not queue it) and re-enable
	// notifications for the next cycle.
	if !v.link.Subscribed() {
		if err := v.link.SetNotify(true); err != nil {
			slog.Warn("[PROBE] re-enabling notifications failed", "device", v.deviceID, "error", err)
		}
		return
	}

	if err := v.link.Write([]byte{0x00}, false); err != nil {
		slog.Warn("[PROBE] wake write failed", "device", v.deviceID, "error", err)
		return
	}
	v.cancelWake = v.sched.After(wakeDelay, func() {
		cmd := protocol.BuildCommand(protocol.CmdReadRealtime, protocol.SubRealtimeAll, nil, v.crcInit)
		if err := v.link.Write(cmd, false); err != nil {
			slog.Warn("[PROBE] poll write failed", "device", v.deviceID, "error", err)
		}
	})
}

func (v *wakePolledVariant) Stop() {
	v.polledVariant.Stop()
	if v.cancelWake != nil {
		v.cancelWake()
		v.cancelWake = nil
	}
}

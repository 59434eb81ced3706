package probe

import (
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/pitprobe/pitprobe/internal/probe/protocol"
)

// polledVariant handles the single-frame polled family: a fixed 9-byte
// realtime command once a second, answered by one framed reply carrying two
// signed 16-bit raw channel values.
type polledVariant struct {
	deviceID string
	link     Link
	sched    Scheduler
	crcInit  uint16
	ev       Events

	cancelPoll CancelFunc
}

func newPolledVariant(p *Profile, deviceID string, link Link, sched Scheduler, ev Events) *polledVariant {
	return &polledVariant{
		deviceID: deviceID,
		link:     link,
		sched:    sched,
		crcInit:  p.CRCInit,
		ev:       ev,
	}
}

func (v *polledVariant) Start() error {
	v.cancelPoll = v.sched.Every(pollInterval, v.poll)
	v.ev.Ready()
	return nil
}

func (v *polledVariant) poll() {
	cmd := protocol.BuildCommand(protocol.CmdReadRealtime, protocol.SubRealtimeAll, nil, v.crcInit)
	if err := v.link.Write(cmd, false); err != nil {
		slog.Warn("[PROBE] poll write failed", "device", v.deviceID, "error", err)
	}
}

func (v *polledVariant) HandleNotification(data []byte) {
	f, err := protocol.ParseFrame(data, v.crcInit)
	if err != nil {
		// Frame-integrity failures are non-fatal; the next poll retries.
		slog.Debug("[PROBE] dropping bad frame", "device", v.deviceID, "error", err)
		return
	}
	if f.Cmd != protocol.CmdReadRealtime {
		return
	}
	emitChannelFrames(v.ev, v.deviceID, f)
}

func (v *polledVariant) Stop() {
	if v.cancelPoll != nil {
		v.cancelPoll()
		v.cancelPoll = nil
	}
}

// emitChannelFrames decodes a realtime reply payload (consecutive int16
// little-endian raw values, one per channel) and emits one frame per
// attached channel. Scaling: celsius = (raw - 1000) / 10. The sentinels
// 0xEEEE and 0xF000 mean no probe on that channel and produce no frame.
func emitChannelFrames(ev Events, deviceID string, f protocol.SOHFrame) {
	now := time.Now()
	for ch := 0; ch*2+1 < len(f.Payload); ch++ {
		raw := binary.LittleEndian.Uint16(f.Payload[ch*2 : ch*2+2])
		if raw == protocol.RawNoProbe || raw == protocol.RawOpenCircuit {
			continue
		}
		ev.Frame(TemperatureFrame{
			Time:    now,
			Device:  deviceID,
			Channel: ch + 1,
			Celsius: float64(int16(raw)-1000) / 10,
			Status:  f.Status,
		})
	}
}

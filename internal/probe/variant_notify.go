package probe

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// notifyTextVariant handles the continuous-notify family: the probe pushes
// its current reading as ASCII-decimal text whenever it changes, no polling
// required.
type notifyTextVariant struct {
	deviceID string
	ev       Events
}

func newNotifyTextVariant(deviceID string, ev Events) *notifyTextVariant {
	return &notifyTextVariant{deviceID: deviceID, ev: ev}
}

func (v *notifyTextVariant) Start() error {
	v.ev.Ready()
	return nil
}

// HandleNotification strips everything that is not part of a decimal number
// and parses the remainder. Malformed text yields no frame; it is dropped
// silently rather than treated as an error, since partial chunks show up
// routinely on this family.
func (v *notifyTextVariant) HandleNotification(data []byte) {
	text := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, string(data))
	if text == "" {
		return
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		slog.Debug("[PROBE] dropping unparseable reading", "device", v.deviceID, "text", text)
		return
	}

	v.ev.Frame(TemperatureFrame{
		Time:    time.Now(),
		Device:  v.deviceID,
		Channel: 1,
		Celsius: value,
	})
}

func (v *notifyTextVariant) Stop() {}

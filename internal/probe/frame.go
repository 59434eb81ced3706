// Package probe implements the vendor protocol engine: the profile catalog,
// the per-family device variants, and the command router that correlates
// request/response exchanges.
package probe

import (
	"fmt"
	"time"
)

// TemperatureFrame is one temperature sample from a connected probe.
// Immutable once emitted.
type TemperatureFrame struct {
	Time    time.Time
	Device  string // transport identity of the probe
	Channel int    // logical channel, counted from 1
	Celsius float64
	Status  byte // protocol status flag for framed families, 0 otherwise
}

// String fulfils the Stringer interface.
func (f TemperatureFrame) String() string {
	return fmt.Sprintf("ch%d: %.1f°C", f.Channel, f.Celsius)
}

// Phase is the orchestrator's connection phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseScanning
	PhaseConnecting
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseScanning:
		return "scanning"
	case PhaseConnecting:
		return "connecting"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ConnectionState is the externally observable engine state. Reason is set
// only for PhaseFailed.
type ConnectionState struct {
	Phase  Phase
	Device string // connected or connecting device identity, if any
	Reason string
}

func (s ConnectionState) String() string {
	if s.Phase == PhaseFailed && s.Reason != "" {
		return fmt.Sprintf("failed: %s", s.Reason)
	}
	return s.Phase.String()
}

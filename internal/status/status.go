// Package status builds point-in-time reports of controller state for the
// HTTP endpoints. Hardware capabilities are probed fresh on every snapshot
// so the report reflects the filesystem as it is now, not as it was at
// boot.
package status

import (
	"time"

	"github.com/herrera/callpanel/internal/hw"
)

// Source is the live controller state a Reporter reads. *service.Service
// satisfies it.
type Source interface {
	Mode() hw.Mode
	Monitoring() bool
	SwitchStates() []bool
}

// Prober re-checks hardware capabilities. *hw.Detector satisfies it.
type Prober interface {
	Probe() hw.Capabilities
}

// SystemInfo is the capability detail block of a snapshot.
type SystemInfo struct {
	HasGpioExport bool `json:"hasGpioExport"`
	HasGpioMem    bool `json:"hasGpioMem"`
	HasDeviceTree bool `json:"hasDeviceTree"`
}

// Snapshot is a point-in-time view of the controller. It is a value type,
// safe to use after the Reporter moves on.
type Snapshot struct {
	GpioAvailable bool       `json:"gpioAvailable"`
	Mode          hw.Mode    `json:"mode"`
	IsMonitoring  bool       `json:"isMonitoring"`
	IsDocker      bool       `json:"isDocker"`
	SwitchStates  []bool     `json:"switchStates"`
	SwitchPins    []int      `json:"switchPins"`
	BulbPins      []int      `json:"bulbPins"`
	SwitchCount   int        `json:"switchCount"`
	BulbCount     int        `json:"bulbCount"`
	Timestamp     string     `json:"timestamp"`
	SystemInfo    SystemInfo `json:"systemInfo"`
}

// Reporter assembles snapshots from the controller and the capability
// prober.
type Reporter struct {
	source Source
	prober Prober
	lines  hw.Lines
}

// NewReporter creates a Reporter over the given controller state.
func NewReporter(source Source, prober Prober, lines hw.Lines) *Reporter {
	return &Reporter{source: source, prober: prober, lines: lines}
}

// Snapshot probes capabilities and reads the controller state. The switch
// state array always has one entry per configured line, ordered 1..N.
func (r *Reporter) Snapshot() Snapshot {
	caps := r.prober.Probe()
	mode := r.source.Mode()

	states := make([]bool, r.lines.Count())
	copy(states, r.source.SwitchStates())

	return Snapshot{
		GpioAvailable: mode == hw.ModeHardware,
		Mode:          mode,
		IsMonitoring:  r.source.Monitoring(),
		IsDocker:      caps.Docker,
		SwitchStates:  states,
		SwitchPins:    r.lines.SwitchPins,
		BulbPins:      r.lines.BulbPins,
		SwitchCount:   r.lines.Count(),
		BulbCount:     len(r.lines.BulbPins),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		SystemInfo: SystemInfo{
			HasGpioExport: caps.HasGpioExport,
			HasGpioMem:    caps.HasGpioMem,
			HasDeviceTree: caps.HasDeviceTree,
		},
	}
}

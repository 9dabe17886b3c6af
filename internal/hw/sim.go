package hw

import (
	"sync"

	"github.com/charmbracelet/log"
)

// SimDriver performs no physical I/O. Switches read as permanently
// released; presses in simulation mode arrive only through the manual
// test trigger. Bulb transitions are logged and the last written state is
// kept so status and tests can observe them.
type SimDriver struct {
	lines  Lines
	logger *log.Logger

	mu         sync.Mutex
	configured bool
	bulbs      []bool
	releases   int
}

// NewSimDriver creates a simulated driver for the given line layout.
func NewSimDriver(lines Lines, logger *log.Logger) *SimDriver {
	return &SimDriver{lines: lines, logger: logger}
}

// Setup records the configuration. It cannot fail.
func (d *SimDriver) Setup() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configured = true
	d.bulbs = make([]bool, d.lines.Count())
	d.logger.Info("simulated lines configured",
		"switches", len(d.lines.SwitchPins), "bulbs", len(d.lines.BulbPins))
	return nil
}

// ReadSwitch always reports released.
func (d *SimDriver) ReadSwitch(index int) (bool, error) {
	if !d.lines.ValidIndex(index) {
		return false, ErrBadIndex
	}
	return false, nil
}

// WriteBulb logs the simulated transition and records it.
func (d *SimDriver) WriteBulb(index int, on bool) error {
	if !d.lines.ValidIndex(index) {
		return ErrBadIndex
	}
	d.mu.Lock()
	if d.bulbs == nil {
		d.bulbs = make([]bool, d.lines.Count())
	}
	d.bulbs[index-1] = on
	d.mu.Unlock()

	state := "OFF"
	if on {
		state = "ON"
	}
	d.logger.Info("simulated bulb", "bulb", index, "state", state)
	return nil
}

// ReleaseAll resets the simulated bulbs. Idempotent in the sense that a
// second call observes the same (all-off, unconfigured) state.
func (d *SimDriver) ReleaseAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.bulbs {
		d.bulbs[i] = false
	}
	d.configured = false
	d.releases++
	return nil
}

// Mode identifies the driver variant.
func (d *SimDriver) Mode() Mode {
	return ModeSimulation
}

// BulbState reports the last written state of bulb index. Used by tests
// and the simulated-transition log checks.
func (d *SimDriver) BulbState(index int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 1 || index > len(d.bulbs) {
		return false
	}
	return d.bulbs[index-1]
}

// Releases reports how many times ReleaseAll was called.
func (d *SimDriver) Releases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.releases
}

// Configured reports whether Setup has run since the last ReleaseAll.
func (d *SimDriver) Configured() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configured
}

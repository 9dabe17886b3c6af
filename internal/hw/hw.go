// Package hw abstracts the panel's GPIO lines behind a Driver interface.
// The real implementation uses the Linux GPIO character device; the
// simulated implementation lets the daemon run anywhere without hardware.
package hw

import "github.com/pkg/errors"

// Mode selects between real and simulated hardware control. It is decided
// once by Detect during startup and never changes afterwards.
type Mode string

const (
	ModeHardware   Mode = "hardware"
	ModeSimulation Mode = "simulation"
)

// Lines is the static pin layout of the panel. Switch i (1-based) pairs
// with bulb i: they are the same logical channel.
type Lines struct {
	SwitchPins []int // pulled-up inputs, pressed = low
	BulbPins   []int // outputs, initialized low (off)
}

// Count returns the number of configured channels.
func (l Lines) Count() int {
	return len(l.SwitchPins)
}

// ValidIndex reports whether index addresses a configured channel.
// Channels are numbered 1..N.
func (l Lines) ValidIndex(index int) bool {
	return index >= 1 && index <= len(l.SwitchPins)
}

// Driver controls the panel's switch and bulb lines. Indices are 1..N.
// ReadSwitch returns the logical state: true = pressed. The electrical
// inversion (pull-up, active-low) is the driver's business.
type Driver interface {
	// Setup configures every line: switches as pulled-up inputs, bulbs as
	// outputs driven low. It fails on the first line that cannot be
	// configured; the caller must then ReleaseAll and fall back to
	// simulation. Partial setups are never used.
	Setup() error

	// ReadSwitch returns whether switch index is currently pressed.
	ReadSwitch(index int) (bool, error)

	// WriteBulb turns bulb index on or off.
	WriteBulb(index int, on bool) error

	// ReleaseAll turns every bulb off and releases all configured lines.
	// It is idempotent and safe to call from any state.
	ReleaseAll() error

	// Mode identifies the driver variant.
	Mode() Mode
}

// ErrBadIndex is returned by drivers for channel indices outside 1..N.
var ErrBadIndex = errors.New("hw: channel index out of range")

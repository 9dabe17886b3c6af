//go:build linux

package hw

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
)

// chipName is the GPIO character device of the Pi's main header.
const chipName = "gpiochip0"

// openChipProbe verifies that the GPIO chip can actually be opened. Used
// by the capability detector as the final, real access test.
func openChipProbe() error {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return errors.Wrap(err, "open gpio chip")
	}
	return chip.Close()
}

// RealDriver drives the panel lines through the Linux GPIO character
// device. Switch lines are requested as pulled-up inputs (pressed = low),
// bulb lines as outputs initialized low.
type RealDriver struct {
	lines  Lines
	logger *log.Logger

	mu       sync.Mutex
	chip     *gpiocdev.Chip
	switches []*gpiocdev.Line
	bulbs    []*gpiocdev.Line
	released bool
}

// NewRealDriver creates a hardware driver for the given line layout.
// No lines are touched until Setup.
func NewRealDriver(lines Lines, logger *log.Logger) *RealDriver {
	return &RealDriver{lines: lines, logger: logger}
}

// Setup requests every configured line. The first failing line aborts the
// whole setup; the caller is expected to ReleaseAll and downgrade.
func (d *RealDriver) Setup() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return errors.Wrap(err, "open gpio chip")
	}
	d.chip = chip
	d.released = false

	for i, pin := range d.lines.SwitchPins {
		line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			return errors.Wrapf(err, "request switch %d (gpio %d)", i+1, pin)
		}
		d.switches = append(d.switches, line)
		d.logger.Info("switch line configured", "switch", i+1, "gpio", pin)
	}

	for i, pin := range d.lines.BulbPins {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			return errors.Wrapf(err, "request bulb %d (gpio %d)", i+1, pin)
		}
		d.bulbs = append(d.bulbs, line)
		d.logger.Info("bulb line configured", "bulb", i+1, "gpio", pin)
	}

	return nil
}

// ReadSwitch returns whether switch index is pressed. Pull-up wiring means
// a low raw value is a press.
func (d *RealDriver) ReadSwitch(index int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 1 || index > len(d.switches) {
		return false, ErrBadIndex
	}
	raw, err := d.switches[index-1].Value()
	if err != nil {
		return false, errors.Wrapf(err, "read switch %d", index)
	}
	return raw == 0, nil
}

// WriteBulb sets bulb index on or off.
func (d *RealDriver) WriteBulb(index int, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 1 || index > len(d.bulbs) {
		return ErrBadIndex
	}
	v := 0
	if on {
		v = 1
	}
	if err := d.bulbs[index-1].SetValue(v); err != nil {
		return errors.Wrapf(err, "write bulb %d", index)
	}
	return nil
}

// ReleaseAll turns every bulb off, releases all requested lines and closes
// the chip. Safe to call repeatedly and after a partial Setup.
func (d *RealDriver) ReleaseAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil
	}
	d.released = true

	var errs []error
	for i, line := range d.bulbs {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, errors.Wrapf(err, "bulb %d off", i+1))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "close bulb %d", i+1))
		}
	}
	for i, line := range d.switches {
		if err := line.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "close switch %d", i+1))
		}
	}
	d.bulbs = nil
	d.switches = nil

	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close chip"))
		}
		d.chip = nil
	}

	if len(errs) > 0 {
		return errors.Errorf("release errors: %v", errs)
	}
	return nil
}

// Mode identifies the driver variant.
func (d *RealDriver) Mode() Mode {
	return ModeHardware
}

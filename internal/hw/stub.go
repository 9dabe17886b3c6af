//go:build !linux

package hw

import (
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// openChipProbe always fails off Linux, so detection lands in simulation.
func openChipProbe() error {
	return errors.New("hw: gpio requires Linux")
}

// RealDriver is not available on non-Linux platforms. The capability
// detector never selects hardware mode here, so these methods are
// unreachable in practice.
type RealDriver struct{}

func NewRealDriver(lines Lines, logger *log.Logger) *RealDriver {
	return &RealDriver{}
}

func (d *RealDriver) Setup() error {
	return errors.New("hw: gpio not supported on this platform")
}

func (d *RealDriver) ReadSwitch(index int) (bool, error) {
	return false, errors.New("hw: gpio not supported on this platform")
}

func (d *RealDriver) WriteBulb(index int, on bool) error {
	return errors.New("hw: gpio not supported on this platform")
}

func (d *RealDriver) ReleaseAll() error {
	return nil
}

func (d *RealDriver) Mode() Mode {
	return ModeHardware
}

package hw

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Capabilities is the result of a fresh environment probe. The status
// endpoint recomputes it on every call, so it always reflects the current
// environment rather than what was seen at startup.
type Capabilities struct {
	HasGpioExport bool   // /sys/class/gpio/export
	HasGpioMem    bool   // /dev/gpiomem
	HasDeviceTree bool   // /proc/device-tree/model
	Model         string // device-tree model string, if readable
	RaspberryPi   bool
	Docker        bool
}

// Detector decides once, at startup, whether real hardware control is
// possible. Any doubt resolves to simulation; Detect never fails.
type Detector struct {
	// Enabled is the operator kill-switch (ENABLE_GPIO). When false the
	// probe is skipped entirely.
	Enabled bool

	// root prefixes every filesystem path probed. Tests point it at a
	// scratch directory; production leaves it empty.
	root string

	// openChip attempts a real hardware initialization. The default is the
	// platform probe in probe_linux.go / probe_stub.go.
	openChip func() error
}

// NewDetector returns a Detector probing the live system.
func NewDetector(enabled bool) *Detector {
	return &Detector{Enabled: enabled, openChip: openChipProbe}
}

// Detect returns the mode the daemon must run in. Hardware mode requires
// every check to pass; the first failure downgrades to simulation with the
// reason logged once.
func (d *Detector) Detect(logger *log.Logger) Mode {
	if !d.Enabled {
		logger.Info("gpio disabled by configuration, using simulation mode")
		return ModeSimulation
	}

	caps := d.Probe()

	if caps.Docker {
		logger.Info("running inside a container")
	}
	logger.Debug("gpio probe",
		"export", caps.HasGpioExport,
		"gpiomem", caps.HasGpioMem,
		"devicetree", caps.HasDeviceTree)

	if !caps.HasGpioExport || !caps.HasGpioMem {
		logger.Warn("gpio interfaces not present, using simulation mode")
		return ModeSimulation
	}

	// Containers commonly lack device-tree visibility, so board identity
	// is waived there.
	if caps.HasDeviceTree {
		logger.Info("device identified", "model", caps.Model, "raspberry_pi", caps.RaspberryPi)
		if !caps.RaspberryPi && !caps.Docker {
			logger.Warn("not a Raspberry Pi, using simulation mode", "model", caps.Model)
			return ModeSimulation
		}
	}

	if err := d.openChip(); err != nil {
		logger.Warn("gpio access test failed, using simulation mode", "err", err)
		return ModeSimulation
	}

	logger.Info("gpio hardware detected")
	return ModeHardware
}

// Probe runs the filesystem checks. Cheap enough to run on every status
// request.
func (d *Detector) Probe() Capabilities {
	caps := Capabilities{
		HasGpioExport: d.exists("/sys/class/gpio/export"),
		HasGpioMem:    d.exists("/dev/gpiomem"),
		HasDeviceTree: d.exists("/proc/device-tree/model"),
		Docker:        d.inContainer(),
	}

	if caps.HasDeviceTree {
		if data, err := os.ReadFile(d.path("/proc/device-tree/model")); err == nil {
			// Device-tree strings are NUL terminated.
			caps.Model = strings.TrimRight(strings.TrimSpace(string(data)), "\x00")
			caps.RaspberryPi = strings.Contains(caps.Model, "Raspberry Pi")
		}
	}

	return caps
}

// inContainer is a best-effort heuristic: the docker marker file, or a
// container-runtime token in the init process's cgroup description.
func (d *Detector) inContainer() bool {
	if d.exists("/.dockerenv") {
		return true
	}
	data, err := os.ReadFile(d.path("/proc/1/cgroup"))
	if err != nil {
		return false
	}
	s := string(data)
	return strings.Contains(s, "docker") || strings.Contains(s, "containerd")
}

func (d *Detector) exists(p string) bool {
	_, err := os.Stat(d.path(p))
	return err == nil
}

func (d *Detector) path(p string) string {
	if d.root == "" {
		return p
	}
	return filepath.Join(d.root, p)
}

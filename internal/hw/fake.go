package hw

import "sync"

// BulbWrite records one WriteBulb call on a FakeDriver.
type BulbWrite struct {
	Index int
	On    bool
}

// FakeDriver is a test double with controllable switch states and
// injectable errors. Safe for concurrent use so monitor goroutines can
// poll it while tests flip switches.
type FakeDriver struct {
	mu sync.Mutex

	lines      Lines
	mode       Mode
	configured bool
	pressed    []bool
	reads      []int
	writes     []BulbWrite
	releases   int

	// SetupError, if set, is returned by Setup.
	SetupError error
	// ReadError, if set, is returned by every ReadSwitch.
	ReadError error
	// WriteError, if set, is returned by every WriteBulb.
	WriteError error
}

// NewFakeDriver creates a FakeDriver reporting the given mode.
func NewFakeDriver(lines Lines, mode Mode) *FakeDriver {
	return &FakeDriver{
		lines:   lines,
		mode:    mode,
		pressed: make([]bool, lines.Count()),
		reads:   make([]int, lines.Count()),
	}
}

func (d *FakeDriver) Setup() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SetupError != nil {
		return d.SetupError
	}
	d.configured = true
	return nil
}

func (d *FakeDriver) ReadSwitch(index int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ReadError != nil {
		return false, d.ReadError
	}
	if !d.lines.ValidIndex(index) {
		return false, ErrBadIndex
	}
	d.reads[index-1]++
	return d.pressed[index-1], nil
}

// ReadCount reports how many successful ReadSwitch calls switch index has
// seen, so tests can wait for a poller's baseline read before flipping the
// switch.
func (d *FakeDriver) ReadCount(index int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.lines.ValidIndex(index) {
		return 0
	}
	return d.reads[index-1]
}

func (d *FakeDriver) WriteBulb(index int, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.WriteError != nil {
		return d.WriteError
	}
	if !d.lines.ValidIndex(index) {
		return ErrBadIndex
	}
	d.writes = append(d.writes, BulbWrite{Index: index, On: on})
	return nil
}

func (d *FakeDriver) ReleaseAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configured = false
	d.releases++
	return nil
}

func (d *FakeDriver) Mode() Mode {
	return d.mode
}

// SetReadError injects or clears a ReadSwitch error while pollers are
// live.
func (d *FakeDriver) SetReadError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ReadError = err
}

// SetPressed flips the simulated physical state of switch index.
func (d *FakeDriver) SetPressed(index int, pressed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lines.ValidIndex(index) {
		d.pressed[index-1] = pressed
	}
}

// Writes returns a copy of all recorded bulb writes.
func (d *FakeDriver) Writes() []BulbWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]BulbWrite, len(d.writes))
	copy(out, d.writes)
	return out
}

// Releases reports how many times ReleaseAll was called.
func (d *FakeDriver) Releases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.releases
}

// Configured reports whether Setup has run since the last ReleaseAll.
func (d *FakeDriver) Configured() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configured
}

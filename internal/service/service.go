// Package service owns the panel's lifecycle: capability detection, driver
// bring-up (with full fallback to simulation), one monitor goroutine per
// switch line, and an orderly, bounded shutdown that always releases the
// GPIO lines exactly once.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/herrera/callpanel/internal/hw"
	"github.com/herrera/callpanel/internal/press"
)

// State is the lifecycle phase of the service.
type State string

const (
	StateCreated      State = "created"
	StateInitializing State = "initializing"
	StateMonitoring   State = "monitoring"
	StateShuttingDown State = "shutting_down"
	StateTerminated   State = "terminated"
)

// PressHandler executes one press dispatch. Satisfied by press.Handler.
type PressHandler interface {
	HandlePress(ctx context.Context, index int) (press.Outcome, error)
}

// Detector decides the hardware mode. Satisfied by hw.Detector.
type Detector interface {
	Detect(logger *log.Logger) hw.Mode
}

// Options wires a Service. The driver constructors and the handler factory
// are indirected so tests can substitute fakes.
type Options struct {
	Lines           hw.Lines
	Detector        Detector
	NewHardware     func() hw.Driver
	NewSim          func() hw.Driver
	NewHandler      func(driver hw.Driver) PressHandler
	Poll            time.Duration
	ShutdownTimeout time.Duration
	Logger          *log.Logger
}

// Service sequences initialize → monitor → shutdown for the whole panel.
type Service struct {
	opts   Options
	logger *log.Logger

	mu         sync.Mutex
	state      State
	mode       hw.Mode
	driver     hw.Driver
	handler    PressHandler
	monitoring bool
	cancel     context.CancelFunc

	observed []atomic.Bool // last observed state per line, written only by that line's monitor

	wg          sync.WaitGroup
	releaseOnce sync.Once
}

// New creates a Service in the Created state.
func New(opts Options) *Service {
	return &Service{
		opts:     opts,
		logger:   opts.Logger,
		state:    StateCreated,
		mode:     hw.ModeSimulation,
		observed: make([]atomic.Bool, opts.Lines.Count()),
	}
}

// Initialize detects the hardware mode and brings up the pin driver. A
// failed hardware bring-up unwinds whatever was configured and downgrades
// to simulation for the rest of the process lifetime. Initialize never
// aborts startup.
func (s *Service) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateCreated {
		s.mu.Unlock()
		s.logger.Warn("initialize called twice, ignoring", "state", s.state)
		return
	}
	s.state = StateInitializing
	s.mu.Unlock()

	mode := s.opts.Detector.Detect(s.logger)

	var driver hw.Driver
	if mode == hw.ModeHardware {
		driver = s.opts.NewHardware()
		if err := driver.Setup(); err != nil {
			s.logger.Error("hardware bring-up failed, falling back to simulation", "err", err)
			if rerr := driver.ReleaseAll(); rerr != nil {
				s.logger.Error("release after failed bring-up", "err", rerr)
			}
			mode = hw.ModeSimulation
			driver = nil
		}
	}
	if driver == nil {
		driver = s.opts.NewSim()
		if err := driver.Setup(); err != nil {
			s.logger.Error("simulated setup failed", "err", err)
		}
		s.logger.Info("simulation mode active, presses arrive via the test trigger",
			"switches", s.opts.Lines.Count())
	}

	handler := s.opts.NewHandler(driver)

	s.mu.Lock()
	s.mode = mode
	s.driver = driver
	s.handler = handler
	s.mu.Unlock()
}

// StartMonitoring starts one monitor per switch line in hardware mode. In
// simulation mode there is nothing to poll; monitoring still counts as
// active so the test trigger and status behave uniformly. Calling it again
// while active is a logged no-op.
func (s *Service) StartMonitoring(ctx context.Context) {
	s.mu.Lock()
	if s.monitoring {
		s.mu.Unlock()
		s.logger.Warn("monitoring already active, ignoring")
		return
	}
	if s.state == StateShuttingDown || s.state == StateTerminated {
		s.mu.Unlock()
		s.logger.Warn("cannot start monitoring after shutdown", "state", s.state)
		return
	}
	mctx, cancel := context.WithCancel(ctx)
	s.monitoring = true
	s.state = StateMonitoring
	s.cancel = cancel
	mode := s.mode
	s.mu.Unlock()

	if mode != hw.ModeHardware {
		s.logger.Info("monitoring active (simulation)")
		return
	}

	for i := 1; i <= s.opts.Lines.Count(); i++ {
		s.wg.Add(1)
		go s.monitor(mctx, i)
	}
	s.logger.Info("monitoring active (hardware)",
		"lines", s.opts.Lines.Count(), "poll", s.opts.Poll)
}

// monitor polls one switch line. A press is the released→pressed edge;
// the dispatch runs synchronously, so this line cannot raise another press
// until the current one completes. That throttle is the only debounce.
func (s *Service) monitor(ctx context.Context, index int) {
	defer s.wg.Done()

	prev, err := s.readSwitch(index)
	if err != nil {
		s.logger.Error("initial switch read failed", "switch", index, "err", err)
		prev = false
	}

	ticker := time.NewTicker(s.opts.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur, err := s.readSwitch(index)
			if err != nil {
				s.logger.Error("switch poll failed", "switch", index, "err", err)
				continue
			}
			s.observed[index-1].Store(cur)

			if !prev && cur {
				out, err := s.dispatch(ctx, index)
				if err != nil {
					s.logger.Error("press dispatch failed", "switch", index, "err", err)
				} else {
					s.logger.Info("press handled", "switch", index,
						"dispatch", out.Dispatch, "bulb_ok", out.Bulb.OK, "notify_ok", out.Notify.OK)
				}
			}
			prev = cur
		}
	}
}

func (s *Service) readSwitch(index int) (bool, error) {
	s.mu.Lock()
	d := s.driver
	s.mu.Unlock()
	if d == nil {
		return false, errors.New("service: driver not initialized")
	}
	return d.ReadSwitch(index)
}

func (s *Service) dispatch(ctx context.Context, index int) (press.Outcome, error) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h == nil {
		return press.Outcome{}, errors.New("service: not initialized")
	}
	return h.HandlePress(ctx, index)
}

// TriggerPress injects a press, as if switch index had been pressed
// physically. This is the only press source in simulation mode.
func (s *Service) TriggerPress(ctx context.Context, index int) (press.Outcome, error) {
	if !s.opts.Lines.ValidIndex(index) {
		return press.Outcome{}, errors.Wrapf(press.ErrInvalidIndex,
			"switch %d of %d", index, s.opts.Lines.Count())
	}
	return s.dispatch(ctx, index)
}

// Shutdown cancels all monitors, waits for them within the configured
// bound (outstanding dispatches past the deadline are abandoned) and then
// releases the GPIO lines. The release happens exactly once no matter how
// often Shutdown is called.
func (s *Service) Shutdown() {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		s.release() // idempotent by releaseOnce
		return
	}
	s.state = StateShuttingDown
	s.monitoring = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.opts.ShutdownTimeout):
		s.logger.Warn("monitors did not stop in time, abandoning outstanding dispatches",
			"timeout", s.opts.ShutdownTimeout)
	}

	s.release()

	s.mu.Lock()
	s.state = StateTerminated
	s.mu.Unlock()
	s.logger.Info("service terminated")
}

func (s *Service) release() {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		d := s.driver
		s.mu.Unlock()
		if d == nil {
			return
		}
		if err := d.ReleaseAll(); err != nil {
			s.logger.Error("gpio release failed", "err", err)
			return
		}
		s.logger.Info("gpio lines released")
	})
}

// Mode returns the mode chosen at initialization.
func (s *Service) Mode() hw.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Monitoring reports whether monitoring is active.
func (s *Service) Monitoring() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitoring
}

// State returns the current lifecycle phase.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SwitchStates returns the last observed state of every switch line,
// ordered 1..N. In simulation mode all lines read released.
func (s *Service) SwitchStates() []bool {
	out := make([]bool, len(s.observed))
	for i := range s.observed {
		out[i] = s.observed[i].Load()
	}
	return out
}

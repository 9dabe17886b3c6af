// Package press turns a detected switch press into its two effects: the
// paired bulb lights for the configured hold time, and the remote service
// is notified for the user bound to that switch. The two run concurrently
// and fail independently; a press always produces a complete Outcome.
package press

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/herrera/callpanel/internal/api"
	"github.com/herrera/callpanel/internal/directory"
	"github.com/herrera/callpanel/internal/events"
	"github.com/herrera/callpanel/internal/hw"
)

// simRelayDelay stands in for the closing time of the physical relay when
// no relay exists.
const simRelayDelay = 100 * time.Millisecond

// ErrInvalidIndex rejects presses for switches outside 1..N. It is the only
// failure that aborts a dispatch outright.
var ErrInvalidIndex = errors.New("press: switch index out of range")

// Kind classifies a failed branch.
type Kind string

const (
	// KindActuation: a bulb write failed mid-sequence.
	KindActuation Kind = "actuation"
	// KindLookupMiss: no user is bound to the pressed switch; the
	// notifier was never contacted.
	KindLookupMiss Kind = "lookup_miss"
	// KindNotify: the lookup or delivery to the remote service failed.
	KindNotify Kind = "notify"
)

// Branch is the result of one side of a dispatch. Failure is a value here,
// not an error: a failed branch never aborts its sibling.
type Branch struct {
	OK     bool   `json:"ok"`
	Kind   Kind   `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Outcome is the combined result of one press dispatch. Both branches are
// always populated.
type Outcome struct {
	Dispatch string  `json:"dispatch"`
	Switch   int     `json:"switch"`
	Mode     hw.Mode `json:"mode"`
	Bulb     Branch  `json:"bulbResult"`
	Notify   Branch  `json:"notifyResult"`
}

// Handler executes press dispatches.
type Handler struct {
	driver   hw.Driver
	lines    hw.Lines
	dir      directory.Directory
	notifier api.Notifier
	stream   events.Publisher // nil when no broker is configured
	hold     time.Duration
	deviceID string
	logger   *log.Logger
}

// NewHandler wires a Handler. stream may be nil.
func NewHandler(driver hw.Driver, lines hw.Lines, dir directory.Directory, notifier api.Notifier,
	stream events.Publisher, hold time.Duration, deviceID string, logger *log.Logger) *Handler {
	return &Handler{
		driver:   driver,
		lines:    lines,
		dir:      dir,
		notifier: notifier,
		stream:   stream,
		hold:     hold,
		deviceID: deviceID,
		logger:   logger,
	}
}

// HandlePress runs one dispatch for switch index. Out-of-range indices are
// rejected before any side effect. Otherwise both branches run to
// completion and the Outcome is returned even when either failed.
func (h *Handler) HandlePress(ctx context.Context, index int) (Outcome, error) {
	if !h.lines.ValidIndex(index) {
		return Outcome{}, errors.Wrapf(ErrInvalidIndex, "switch %d of %d", index, h.lines.Count())
	}

	out := Outcome{
		Dispatch: uuid.NewString(),
		Switch:   index,
		Mode:     h.driver.Mode(),
	}
	logger := h.logger.With("dispatch", out.Dispatch, "switch", index)
	logger.Info("switch activated")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		out.Bulb = h.actuate(ctx, index, logger)
	}()
	go func() {
		defer wg.Done()
		out.Notify = h.notify(ctx, index, logger)
	}()
	wg.Wait()

	logger.Info("dispatch complete", "bulb_ok", out.Bulb.OK, "notify_ok", out.Notify.OK)

	if h.stream != nil {
		err := h.stream.PublishPress(events.PressEvent{
			Timestamp: time.Now(),
			Dispatch:  out.Dispatch,
			Switch:    index,
			Mode:      string(out.Mode),
			BulbOK:    out.Bulb.OK,
			NotifyOK:  out.Notify.OK,
		})
		if err != nil {
			logger.Warn("press event not published", "err", err)
		}
	}

	return out, nil
}

// actuate lights the paired bulb for the hold time, then switches it off.
// A cancelled context cuts the hold short; the off-write still runs so the
// bulb is never left lit.
func (h *Handler) actuate(ctx context.Context, index int, logger *log.Logger) Branch {
	if h.driver.Mode() == hw.ModeSimulation {
		sleep(ctx, simRelayDelay)
	}

	if err := h.driver.WriteBulb(index, true); err != nil {
		logger.Error("bulb on failed", "bulb", index, "err", err)
		return Branch{Kind: KindActuation, Detail: err.Error()}
	}
	logger.Info("bulb on", "bulb", index, "hold", h.hold)

	held := sleep(ctx, h.hold)

	if err := h.driver.WriteBulb(index, false); err != nil {
		logger.Error("bulb off failed", "bulb", index, "err", err)
		return Branch{Kind: KindActuation, Detail: err.Error()}
	}
	logger.Info("bulb off", "bulb", index)

	if !held {
		return Branch{OK: true, Detail: "hold interrupted by shutdown"}
	}
	return Branch{OK: true}
}

// notify resolves the switch's user and delivers the switch event. A
// missing user is reported without contacting the notifier; the bulb
// branch is unaffected either way.
func (h *Handler) notify(ctx context.Context, index int, logger *log.Logger) Branch {
	user, err := h.dir.Lookup(ctx, index)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			logger.Warn("no user bound to switch", "switch", index)
			return Branch{Kind: KindLookupMiss, Detail: err.Error()}
		}
		logger.Error("directory lookup failed", "switch", index, "err", err)
		return Branch{Kind: KindNotify, Detail: err.Error()}
	}

	event := api.SwitchEvent{
		Location:       user.Location,
		BranchID:       h.deviceID,
		IsMultiService: false,
		Status:         api.StatusCalling,
	}

	logger.Info("notifying service", "user", user.ID)
	if err := h.notifier.SendSwitchEvent(ctx, event, user.AccessToken); err != nil {
		logger.Error("notification failed", "user", user.ID, "err", err)
		return Branch{Kind: KindNotify, Detail: err.Error()}
	}
	logger.Info("notification delivered", "user", user.ID)
	return Branch{OK: true}
}

// sleep waits for d or until ctx is done. Returns true if the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

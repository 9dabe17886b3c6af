package press

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/herrera/callpanel/internal/api"
	"github.com/herrera/callpanel/internal/directory"
	"github.com/herrera/callpanel/internal/events"
	"github.com/herrera/callpanel/internal/hw"
)

func testLines() hw.Lines {
	return hw.Lines{
		SwitchPins: []int{17, 27, 22, 5, 6},
		BulbPins:   []int{23, 24, 25, 16, 26},
	}
}

type fixture struct {
	driver   *hw.FakeDriver
	dir      *directory.Memory
	notifier *api.FakeNotifier
	stream   *events.FakePublisher
	handler  *Handler
}

func newFixture(t *testing.T, mode hw.Mode, hold time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		driver:   hw.NewFakeDriver(testLines(), mode),
		dir:      directory.NewMemory(),
		notifier: api.NewFakeNotifier(),
		stream:   events.NewFakePublisher(),
	}
	for i := 1; i <= 5; i++ {
		f.dir.Put(directory.User{
			ID:          "u-" + string(rune('0'+i)),
			AccessToken: "tok",
			Location:    api.Location{ID: "loc", Name: "Desk", Number: i},
			SwitchIndex: i,
		})
	}
	f.handler = NewHandler(f.driver, testLines(), f.dir, f.notifier, f.stream,
		hold, "panel-7", log.New(io.Discard))
	return f
}

func TestHandlePressInvalidIndex(t *testing.T) {
	f := newFixture(t, hw.ModeHardware, time.Millisecond)

	for _, index := range []int{-1, 0, 6, 99} {
		_, err := f.handler.HandlePress(context.Background(), index)
		if !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("index %d: got %v, want ErrInvalidIndex", index, err)
		}
	}

	if len(f.driver.Writes()) != 0 {
		t.Errorf("rejected press must not touch bulbs, got %v", f.driver.Writes())
	}
	if len(f.notifier.Sent()) != 0 {
		t.Errorf("rejected press must not notify, got %v", f.notifier.Sent())
	}
}

func TestHandlePressBothBranchesSucceed(t *testing.T) {
	f := newFixture(t, hw.ModeHardware, time.Millisecond)

	out, err := f.handler.HandlePress(context.Background(), 3)
	if err != nil {
		t.Fatalf("HandlePress: %v", err)
	}

	if out.Switch != 3 || out.Mode != hw.ModeHardware {
		t.Errorf("outcome header: got %+v", out)
	}
	if out.Dispatch == "" {
		t.Error("expected a dispatch id")
	}
	if !out.Bulb.OK {
		t.Errorf("bulb: got %+v", out.Bulb)
	}
	if !out.Notify.OK {
		t.Errorf("notify: got %+v", out.Notify)
	}

	writes := f.driver.Writes()
	if len(writes) != 2 || writes[0] != (hw.BulbWrite{Index: 3, On: true}) || writes[1] != (hw.BulbWrite{Index: 3, On: false}) {
		t.Errorf("bulb writes: got %v", writes)
	}

	sent := f.notifier.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent: got %d, want 1", len(sent))
	}
	if sent[0].Event.Status != api.StatusCalling {
		t.Errorf("status: got %q", sent[0].Event.Status)
	}
	if sent[0].Event.BranchID != "panel-7" {
		t.Errorf("branchId: got %q", sent[0].Event.BranchID)
	}
	if sent[0].Event.Location.Number != 3 {
		t.Errorf("location: got %+v", sent[0].Event.Location)
	}
	if sent[0].Token != "tok" {
		t.Errorf("token: got %q", sent[0].Token)
	}
	if sent[0].Event.IsMultiService {
		t.Error("isMultiService must be false")
	}
}

func TestHandlePressLookupMiss(t *testing.T) {
	f := newFixture(t, hw.ModeSimulation, time.Millisecond)
	f.dir = directory.NewMemory() // empty
	f.handler = NewHandler(f.driver, testLines(), f.dir, f.notifier, f.stream,
		time.Millisecond, "panel-7", log.New(io.Discard))

	out, err := f.handler.HandlePress(context.Background(), 1)
	if err != nil {
		t.Fatalf("HandlePress: %v", err)
	}

	if out.Notify.OK || out.Notify.Kind != KindLookupMiss {
		t.Errorf("notify: got %+v, want lookup_miss", out.Notify)
	}
	if !out.Bulb.OK {
		t.Errorf("bulb must succeed regardless of lookup: got %+v", out.Bulb)
	}
	if len(f.notifier.Sent()) != 0 {
		t.Error("notifier must not be contacted on a lookup miss")
	}
}

func TestHandlePressNotifierFailure(t *testing.T) {
	f := newFixture(t, hw.ModeHardware, time.Millisecond)
	f.notifier.SendError = errors.New("service returned status 500")

	out, err := f.handler.HandlePress(context.Background(), 2)
	if err != nil {
		t.Fatalf("HandlePress: %v", err)
	}

	if out.Notify.OK || out.Notify.Kind != KindNotify {
		t.Errorf("notify: got %+v, want notify error", out.Notify)
	}
	if !out.Bulb.OK {
		t.Errorf("bulb must succeed regardless of notifier: got %+v", out.Bulb)
	}
}

func TestHandlePressActuationFailure(t *testing.T) {
	f := newFixture(t, hw.ModeHardware, time.Millisecond)
	f.driver.WriteError = errors.New("line lost")

	out, err := f.handler.HandlePress(context.Background(), 4)
	if err != nil {
		t.Fatalf("HandlePress: %v", err)
	}

	if out.Bulb.OK || out.Bulb.Kind != KindActuation {
		t.Errorf("bulb: got %+v, want actuation error", out.Bulb)
	}
	if !out.Notify.OK {
		t.Errorf("notify must succeed regardless of bulb: got %+v", out.Notify)
	}
}

// The two branches of one dispatch run concurrently, so a press takes
// about max(hold, notify), not the sum.
func TestHandlePressBranchesOverlap(t *testing.T) {
	f := newFixture(t, hw.ModeHardware, 80*time.Millisecond)
	f.notifier.Delay = 80 * time.Millisecond

	start := time.Now()
	out, err := f.handler.HandlePress(context.Background(), 1)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("HandlePress: %v", err)
	}
	if !out.Bulb.OK || !out.Notify.OK {
		t.Fatalf("outcome: %+v", out)
	}

	if elapsed >= 150*time.Millisecond {
		t.Errorf("branches ran sequentially: elapsed %v", elapsed)
	}
}

// Presses on different lines are fully independent and overlap.
func TestHandlePressConcurrentLines(t *testing.T) {
	f := newFixture(t, hw.ModeHardware, 80*time.Millisecond)

	start := time.Now()
	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	for i, index := range []int{1, 2} {
		i, index := i, index
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.handler.HandlePress(context.Background(), index)
			if err != nil {
				t.Errorf("HandlePress(%d): %v", index, err)
			}
			outcomes[i] = out
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	for i, out := range outcomes {
		if !out.Bulb.OK || !out.Notify.OK {
			t.Errorf("outcome %d: %+v", i, out)
		}
	}
	if elapsed >= 150*time.Millisecond {
		t.Errorf("presses ran sequentially: elapsed %v", elapsed)
	}
}

// A cancelled context cuts the hold short but the bulb is still switched
// off and the branch reports success.
func TestHandlePressInterruptedHold(t *testing.T) {
	f := newFixture(t, hw.ModeHardware, 500*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	out, err := f.handler.HandlePress(ctx, 5)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("HandlePress: %v", err)
	}

	if elapsed >= 300*time.Millisecond {
		t.Errorf("hold was not interrupted: elapsed %v", elapsed)
	}
	if !out.Bulb.OK {
		t.Errorf("bulb: got %+v", out.Bulb)
	}

	writes := f.driver.Writes()
	if len(writes) == 0 || writes[len(writes)-1].On {
		t.Errorf("bulb must end off, writes: %v", writes)
	}
}

func TestHandlePressPublishesEvent(t *testing.T) {
	f := newFixture(t, hw.ModeSimulation, time.Millisecond)

	out, err := f.handler.HandlePress(context.Background(), 2)
	if err != nil {
		t.Fatalf("HandlePress: %v", err)
	}

	presses := f.stream.Presses()
	if len(presses) != 1 {
		t.Fatalf("published events: got %d, want 1", len(presses))
	}
	ev := presses[0]
	if ev.Dispatch != out.Dispatch || ev.Switch != 2 || ev.Mode != "simulation" {
		t.Errorf("event: got %+v", ev)
	}
	if !ev.BulbOK {
		t.Error("expected bulb_ok=true")
	}
}

// A nil event stream is valid configuration; the dispatch must not panic.
func TestHandlePressWithoutStream(t *testing.T) {
	f := newFixture(t, hw.ModeHardware, time.Millisecond)
	f.handler = NewHandler(f.driver, testLines(), f.dir, f.notifier, nil,
		time.Millisecond, "panel-7", log.New(io.Discard))

	if _, err := f.handler.HandlePress(context.Background(), 1); err != nil {
		t.Fatalf("HandlePress: %v", err)
	}
}

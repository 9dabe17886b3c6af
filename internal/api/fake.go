package api

import (
	"context"
	"sync"
	"time"
)

// SentEvent records one SendSwitchEvent call on a FakeNotifier.
type SentEvent struct {
	Event SwitchEvent
	Token string
}

// FakeNotifier records delivered events for test assertions.
type FakeNotifier struct {
	mu   sync.Mutex
	sent []SentEvent

	// SendError, if set, is returned by SendSwitchEvent.
	SendError error

	// Delay, if set, blocks each send for that long (or until ctx is
	// done). Used to exercise the fan-out timing.
	Delay time.Duration
}

// NewFakeNotifier creates a FakeNotifier.
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

// SendSwitchEvent records the event and returns the injected error, if any.
func (f *FakeNotifier) SendSwitchEvent(ctx context.Context, event SwitchEvent, accessToken string) error {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendError != nil {
		return f.SendError
	}
	f.sent = append(f.sent, SentEvent{Event: event, Token: accessToken})
	return nil
}

// Sent returns a copy of all recorded events.
func (f *FakeNotifier) Sent() []SentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SentEvent, len(f.sent))
	copy(out, f.sent)
	return out
}

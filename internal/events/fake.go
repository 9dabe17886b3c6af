package events

import "sync"

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// PressEvents contains all press events that were published.
	PressEvents []PressEvent

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// PublishError, if set, is returned by both publish methods.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishPress records the event.
func (f *FakePublisher) PublishPress(event PressEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.PressEvents = append(f.PressEvents, event)
	return nil
}

// PublishSystem records the event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.SystemEvents = append(f.SystemEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Presses returns a copy of the recorded press events.
func (f *FakePublisher) Presses() []PressEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PressEvent, len(f.PressEvents))
	copy(out, f.PressEvents)
	return out
}

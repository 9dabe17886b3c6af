// Package events publishes press and lifecycle events to an MQTT broker so
// home-automation and monitoring consumers can observe the panel. The
// stream is optional: with no broker configured the daemon runs without it.
package events

import (
	"encoding/json"
	"time"
)

// Topic carries one message per completed press dispatch.
const Topic = "callpanel/switch/events"

// TopicSystem carries daemon lifecycle events (STARTUP, SHUTDOWN).
const TopicSystem = "callpanel/switch/system"

// Publisher publishes panel events.
type Publisher interface {
	// PublishPress sends one completed press dispatch.
	PublishPress(event PressEvent) error

	// PublishSystem sends a lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// PressEvent describes one completed press dispatch.
type PressEvent struct {
	Timestamp time.Time
	Dispatch  string // dispatch id
	Switch    int    // 1..N
	Mode      string // hardware | simulation
	BulbOK    bool
	NotifyOK  bool
}

// SystemEvent describes a daemon lifecycle transition.
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g. "STARTUP", "SHUTDOWN"
	Reason    string // e.g. "SIGTERM"
	Retained  bool
}

type pressPayload struct {
	Press pressInner `json:"press"`
}

type pressInner struct {
	Timestamp string `json:"timestamp"`
	Dispatch  string `json:"dispatch"`
	Switch    int    `json:"switch"`
	Mode      string `json:"mode"`
	BulbOK    bool   `json:"bulb_ok"`
	NotifyOK  bool   `json:"notify_ok"`
}

// FormatPressPayload creates the JSON payload for a press event.
func FormatPressPayload(event PressEvent) ([]byte, error) {
	return json.Marshal(pressPayload{
		Press: pressInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Dispatch:  event.Dispatch,
			Switch:    event.Switch,
			Mode:      event.Mode,
			BulbOK:    event.BulbOK,
			NotifyOK:  event.NotifyOK,
		},
	})
}

type systemPayload struct {
	System systemInner `json:"system"`
}

type systemInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	return json.Marshal(systemPayload{
		System: systemInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

// Package api talks to the remote queueing service: it fetches the panel's
// user assignments at startup and delivers switch events when a press is
// handled. Every call is a single attempt; the press handler treats any
// failure as an ordinary error result.
package api

import "context"

// Location is the place a panel user is assigned to. It travels opaquely
// from the user fetch into the switch event.
type Location struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number int    `json:"number"`
}

// User is one remote user record as returned by the fetch endpoint.
type User struct {
	ID          string   `json:"id"`
	AccessToken string   `json:"accessToken"`
	Location    Location `json:"location"`
	Pin         *int     `json:"pin,omitempty"`
}

// SwitchEvent is the payload delivered to the queueing service when a
// switch is pressed.
type SwitchEvent struct {
	Location       Location `json:"location"`
	BranchID       string   `json:"branchId"`
	IsMultiService bool     `json:"isMultiService"`
	Status         string   `json:"status"`
}

// StatusCalling is the fixed status carried by every press notification.
const StatusCalling = "calling"

// Notifier delivers switch events. The press handler only needs this one
// operation from the remote service.
type Notifier interface {
	SendSwitchEvent(ctx context.Context, event SwitchEvent, accessToken string) error
}

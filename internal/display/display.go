// Package display owns the hub's display state machine.
//
// The controller runs in one of two modes. In Manual mode the shown
// layout only changes on an explicit command. In AutoRotate mode a
// scheduler job cycles through the configured layout sequence. A manual
// display command always wins: issuing one while rotating drops the
// controller back to Manual.
//
// The physical transport is slow (multi-second e-ink refresh), so the
// push path is strictly serialized with latest-wins coalescing: at most
// one push in flight, and of the requests that arrive meanwhile only
// the newest survives.
package display

import "time"

// Mode is the controller's operating mode.
type Mode string

// Controller modes.
const (
	ModeManual     Mode = "manual"
	ModeAutoRotate Mode = "auto_rotate"
)

// ParseMode validates a mode string from config or an API request.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeManual, ModeAutoRotate:
		return Mode(s), nil
	default:
		return "", ErrUnknownMode
	}
}

// Status is a read-only snapshot of the controller.
type Status struct {
	Mode          Mode      `json:"mode"`
	CurrentLayout string    `json:"current_layout,omitempty"`
	LastPushAt    time.Time `json:"last_push_at,omitzero"`
	LastPushError string    `json:"last_push_error,omitempty"`
	Degraded      bool      `json:"degraded"`
}

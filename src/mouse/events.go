package mouse

import (
	"errors"

	"screenshots/src/geom"
)

// Kind enumerates the input events the monitor reacts to.
type Kind int

const (
	KindButtonDown Kind = iota + 1
	KindButtonUp
	KindDrag
	KindKeyDown
	KindKeyUp
)

func (k Kind) String() string {
	switch k {
	case KindButtonDown:
		return "button-down"
	case KindButtonUp:
		return "button-up"
	case KindDrag:
		return "drag"
	case KindKeyDown:
		return "key-down"
	case KindKeyUp:
		return "key-up"
	default:
		return "unknown"
	}
}

// Event is one global input event delivered by a Source.
type Event struct {
	Kind     Kind
	Location geom.Point
	Keycode  uint16
}

// Result is one finalized drag gesture: where the button went down (adjusted
// for panning) and where it was released.
type Result struct {
	Initial geom.Point `json:"initial"`
	End     geom.Point `json:"end"`
}

// Source is the OS capability behind the monitor: a system-wide, listen-only
// tap for mouse button, drag and key events.
type Source interface {
	// Start installs the tap and delivers events to emit until Stop is called.
	Start(emit func(Event)) error
	// Stop disables and invalidates the tap. Safe to call when not started.
	Stop()
}

// SpaceKeycode is the macOS virtual keycode for the space bar (kVK_Space).
// Holding it while dragging moves the selection instead of resizing it.
const SpaceKeycode uint16 = 49

var (
	// ErrCantCreateEventTap means the tap itself could not be created, usually
	// because input monitoring permission was not granted.
	ErrCantCreateEventTap = errors.New("can't start listening mouse events: event tap creation failed")
	// ErrCantCreateRunLoopSource means the tap exists but could not be attached
	// to a run loop.
	ErrCantCreateRunLoopSource = errors.New("can't start listening mouse events: run loop source creation failed")
)

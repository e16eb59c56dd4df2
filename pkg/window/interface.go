package window

import (
	"context"
	"fmt"
	"time"
)

// Handle identifies one top-level window for its lifetime
type Handle uint32

func (h Handle) String() string {
	return fmt.Sprintf("0x%08x", uint32(h))
}

// Record is a snapshot of a window at a point in time
type Record struct {
	Handle    Handle
	Title     string
	AppName   string
	Timestamp time.Time
}

// EventKind is the kind of a window lifecycle event
type EventKind int

const (
	Setup EventKind = iota
	Opened
	Focused
	Closed
	Minimized
	Renamed
)

func (k EventKind) String() string {
	switch k {
	case Setup:
		return "setup"
	case Opened:
		return "open"
	case Focused:
		return "focus"
	case Closed:
		return "close"
	case Minimized:
		return "minimize"
	case Renamed:
		return "rename"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is a window lifecycle event emitted by a Source.
// Records is only set for Setup events.
type Event struct {
	Kind    EventKind
	Record  Record
	Records []Record
}

// Source is the interface that all window event sources must satisfy
type Source interface {
	// Windows returns the currently open windows, most recently active first
	Windows() ([]Record, error)

	// Watch streams window events into events until ctx is cancelled
	Watch(ctx context.Context, events chan<- Event) error

	// IsAvailable checks if this source can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type ("x11" or "wayland")
	GetDisplayServer() string

	// Close cleans up any resources used by the source
	Close() error
}

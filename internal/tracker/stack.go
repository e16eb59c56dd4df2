package tracker

import (
	"slices"

	"github.com/focusrank/focusrank/pkg/window"
)

// WindowStack tracks the z-order of open windows, topmost first
type WindowStack struct {
	handles []window.Handle
}

// NewWindowStack creates an empty stack
func NewWindowStack() *WindowStack {
	return &WindowStack{}
}

// Subscribe makes the stack follow the events of hub. Observers registered
// before the stack see the z-order from before each event.
func (s *WindowStack) Subscribe(hub *window.Hub) {
	hub.OnSetup(s.setup)
	hub.OnOpenedOrFocused(s.moveToTop)
	hub.OnClosedOrMinimized(s.remove)
}

// ZIndex returns the position of h from the top, or -1 when it is not on
// the stack
func (s *WindowStack) ZIndex(h window.Handle) int {
	return slices.Index(s.handles, h)
}

// Handles returns the stack, topmost first
func (s *WindowStack) Handles() []window.Handle {
	return slices.Clone(s.handles)
}

func (s *WindowStack) setup(records []window.Record) {
	s.handles = s.handles[:0]
	for _, r := range records {
		s.handles = append(s.handles, r.Handle)
	}
}

func (s *WindowStack) moveToTop(record window.Record) {
	s.remove(record)
	s.handles = slices.Insert(s.handles, 0, record.Handle)
}

func (s *WindowStack) remove(record window.Record) {
	if i := slices.Index(s.handles, record.Handle); i != -1 {
		s.handles = slices.Delete(s.handles, i, i+1)
	}
}

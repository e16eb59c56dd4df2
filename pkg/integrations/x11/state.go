package x11

import (
	"slices"
	"time"

	"github.com/focusrank/focusrank/pkg/window"
)

// properties is the part of the X connection the event derivation reads
type properties interface {
	clientList() ([]window.Handle, error)
	activeWindow() (window.Handle, error)
	title(h window.Handle) string
	appName(h window.Handle) string
	hidden(h window.Handle) bool
}

// state remembers what was last reported for every client so property
// changes can be turned into window events
type state struct {
	props properties
	now   func() time.Time

	clients map[window.Handle]window.Record
	hidden  map[window.Handle]bool
	active  window.Handle
}

func newState(props properties, now func() time.Time) *state {
	return &state{
		props:   props,
		now:     now,
		clients: make(map[window.Handle]window.Record),
		hidden:  make(map[window.Handle]bool),
	}
}

func (s *state) record(h window.Handle) window.Record {
	return window.Record{
		Handle:    h,
		Title:     s.props.title(h),
		AppName:   s.props.appName(h),
		Timestamp: s.now(),
	}
}

// windows resets the state from the server and returns the visible clients,
// active window first
func (s *state) windows() ([]window.Record, error) {
	handles, err := s.props.clientList()
	if err != nil {
		return nil, err
	}
	active, err := s.props.activeWindow()
	if err != nil {
		return nil, err
	}
	if i := slices.Index(handles, active); i > 0 {
		handles = slices.Delete(handles, i, i+1)
		handles = slices.Insert(handles, 0, active)
	}

	clear(s.clients)
	clear(s.hidden)
	s.active = active

	records := make([]window.Record, 0, len(handles))
	for _, h := range handles {
		r := s.record(h)
		s.clients[h] = r
		if s.props.hidden(h) {
			s.hidden[h] = true
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// clientListChanged reports clients that appeared as opened and clients that
// disappeared as closed
func (s *state) clientListChanged() ([]window.Event, error) {
	handles, err := s.props.clientList()
	if err != nil {
		return nil, err
	}

	var events []window.Event
	current := make(map[window.Handle]bool, len(handles))
	for _, h := range handles {
		current[h] = true
		if _, ok := s.clients[h]; ok {
			continue
		}
		r := s.record(h)
		s.clients[h] = r
		events = append(events, window.Event{Kind: window.Opened, Record: r})
	}

	var closed []window.Handle
	for h := range s.clients {
		if !current[h] {
			closed = append(closed, h)
		}
	}
	slices.Sort(closed)
	for _, h := range closed {
		delete(s.clients, h)
		delete(s.hidden, h)
		if s.active == h {
			s.active = 0
		}
		events = append(events, window.Event{
			Kind:   window.Closed,
			Record: window.Record{Handle: h, Timestamp: s.now()},
		})
	}
	return events, nil
}

// activeChanged reports a focus change. Repeated activation of the same
// window is not reported.
func (s *state) activeChanged() ([]window.Event, error) {
	active, err := s.props.activeWindow()
	if err != nil {
		return nil, err
	}
	if active == 0 || active == s.active {
		return nil, nil
	}
	s.active = active
	delete(s.hidden, active)

	r, ok := s.clients[active]
	if !ok {
		r = s.record(active)
		s.clients[active] = r
	}
	r.Timestamp = s.now()
	return []window.Event{{Kind: window.Focused, Record: r}}, nil
}

// titleChanged reports a new title of a known client
func (s *state) titleChanged(h window.Handle) []window.Event {
	r, ok := s.clients[h]
	if !ok {
		return nil
	}
	title := s.props.title(h)
	if title == r.Title {
		return nil
	}
	r.Title = title
	s.clients[h] = r
	r.Timestamp = s.now()
	return []window.Event{{Kind: window.Renamed, Record: r}}
}

// wmStateChanged reports a client becoming hidden
func (s *state) wmStateChanged(h window.Handle) []window.Event {
	r, ok := s.clients[h]
	if !ok {
		return nil
	}
	hidden := s.props.hidden(h)
	wasHidden := s.hidden[h]
	if hidden == wasHidden {
		return nil
	}
	if !hidden {
		delete(s.hidden, h)
		return nil
	}
	s.hidden[h] = true
	if s.active == h {
		s.active = 0
	}
	r.Timestamp = s.now()
	return []window.Event{{Kind: window.Minimized, Record: r}}
}

package tracker

import (
	"github.com/focusrank/focusrank/pkg/window"
)

// WindowCache keeps the last known record of every open window and turns raw
// source events into the events the models see.
//
// Focus or open of an unknown window registers it. Close, minimize and rename
// of an unknown window are dropped, as is a rename that keeps the title.
type WindowCache struct {
	records map[window.Handle]window.Record
}

// NewWindowCache creates an empty cache
func NewWindowCache() *WindowCache {
	return &WindowCache{records: make(map[window.Handle]window.Record)}
}

// Apply updates the cache with ev and returns the event to dispatch, or false
// when the event must be dropped
func (c *WindowCache) Apply(ev window.Event) (window.Event, bool) {
	switch ev.Kind {
	case window.Setup:
		clear(c.records)
		for _, r := range ev.Records {
			if _, ok := c.records[r.Handle]; !ok {
				c.records[r.Handle] = r
			}
		}
		return ev, true

	case window.Opened, window.Focused:
		record, ok := c.records[ev.Record.Handle]
		if !ok {
			record = ev.Record
			c.records[record.Handle] = record
		}
		return c.stamped(ev, record), true

	case window.Closed:
		record, ok := c.records[ev.Record.Handle]
		if !ok {
			return ev, false
		}
		delete(c.records, record.Handle)
		return c.stamped(ev, record), true

	case window.Minimized:
		record, ok := c.records[ev.Record.Handle]
		if !ok {
			return ev, false
		}
		return c.stamped(ev, record), true

	case window.Renamed:
		record, ok := c.records[ev.Record.Handle]
		if !ok || record.Title == ev.Record.Title {
			return ev, false
		}
		record.Title = ev.Record.Title
		c.records[record.Handle] = record
		return c.stamped(ev, record), true
	}
	return ev, false
}

// Get returns the cached record of h
func (c *WindowCache) Get(h window.Handle) (window.Record, bool) {
	r, ok := c.records[h]
	return r, ok
}

// Len returns the number of cached windows
func (c *WindowCache) Len() int {
	return len(c.records)
}

// stamped returns ev carrying the cached record and the event's own timestamp
func (c *WindowCache) stamped(ev window.Event, record window.Record) window.Event {
	record.Timestamp = ev.Record.Timestamp
	ev.Record = record
	return ev
}

package window

// Hub fans window events out to registered callbacks.
// It is not safe for concurrent use: callbacks are registered at construction
// time and Dispatch is only called from the engine goroutine.
type Hub struct {
	setup     []func([]Record)
	opened    []func(Record)
	focused   []func(Record)
	closed    []func(Record)
	minimized []func(Record)
	renamed   []func(Record)
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{}
}

// OnSetup registers fn for the Setup event listing the open windows
func (h *Hub) OnSetup(fn func([]Record)) {
	h.setup = append(h.setup, fn)
}

// OnOpened registers fn for Opened events
func (h *Hub) OnOpened(fn func(Record)) {
	h.opened = append(h.opened, fn)
}

// OnFocused registers fn for Focused events
func (h *Hub) OnFocused(fn func(Record)) {
	h.focused = append(h.focused, fn)
}

// OnOpenedOrFocused registers fn for both Opened and Focused events
func (h *Hub) OnOpenedOrFocused(fn func(Record)) {
	h.OnOpened(fn)
	h.OnFocused(fn)
}

// OnClosed registers fn for Closed events
func (h *Hub) OnClosed(fn func(Record)) {
	h.closed = append(h.closed, fn)
}

// OnMinimized registers fn for Minimized events
func (h *Hub) OnMinimized(fn func(Record)) {
	h.minimized = append(h.minimized, fn)
}

// OnClosedOrMinimized registers fn for both Closed and Minimized events
func (h *Hub) OnClosedOrMinimized(fn func(Record)) {
	h.OnClosed(fn)
	h.OnMinimized(fn)
}

// OnRenamed registers fn for Renamed events
func (h *Hub) OnRenamed(fn func(Record)) {
	h.renamed = append(h.renamed, fn)
}

// Dispatch delivers ev to every callback registered for its kind, in
// registration order
func (h *Hub) Dispatch(ev Event) {
	switch ev.Kind {
	case Setup:
		for _, fn := range h.setup {
			records := make([]Record, len(ev.Records))
			copy(records, ev.Records)
			fn(records)
		}
	case Opened:
		call(h.opened, ev.Record)
	case Focused:
		call(h.focused, ev.Record)
	case Closed:
		call(h.closed, ev.Record)
	case Minimized:
		call(h.minimized, ev.Record)
	case Renamed:
		call(h.renamed, ev.Record)
	}
}

func call(fns []func(Record), record Record) {
	for _, fn := range fns {
		fn(record)
	}
}

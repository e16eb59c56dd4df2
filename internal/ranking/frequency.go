package ranking

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/focusrank/focusrank/pkg/window"
)

// Frequency scores a window by its share of the focus events within the
// trailing timeframe.
type Frequency struct {
	settings Settings
	now      func() time.Time
	logger   *zap.Logger

	scores ScoreMap
	events []focusEvent
	closed map[window.Handle]struct{}
	top    []window.Handle

	changed notifier
}

type focusEvent struct {
	handle window.Handle
	at     time.Time
}

// NewFrequency creates the model and subscribes it to hub
func NewFrequency(hub *window.Hub, settings Settings, opts ...Option) *Frequency {
	o := newOptions(opts)
	f := &Frequency{
		settings: settings,
		now:      o.now,
		logger:   o.logger.Named("frequency"),
		scores:   make(ScoreMap),
		closed:   make(map[window.Handle]struct{}),
	}
	hub.OnSetup(f.setup)
	hub.OnOpenedOrFocused(f.onOpenedOrFocused)
	hub.OnClosedOrMinimized(f.onClosedOrMinimized)
	return f
}

// Name identifies the model in detailed scores and metrics
func (f *Frequency) Name() string {
	return "Frequency"
}

// GetScores returns a copy of the current scores
func (f *Frequency) GetScores() ScoreMap {
	return f.scores.Clone()
}

// OnScoreChanged registers fn to be called when the top windows change
func (f *Frequency) OnScoreChanged(fn func()) {
	f.changed.subscribe(fn)
}

// OnInterval drops outdated events and events of closed windows and
// recomputes the scores
func (f *Frequency) OnInterval() {
	cutoff := f.now().Add(-f.settings.DurationTimeframe)

	f.events = slices.DeleteFunc(f.events, func(ev focusEvent) bool {
		_, closed := f.closed[ev.handle]
		return closed || ev.at.Before(cutoff)
	})
	clear(f.closed)

	counts := make(map[window.Handle]int)
	for _, ev := range f.events {
		counts[ev.handle]++
	}
	total := float64(len(f.events))
	scores := make(ScoreMap, len(counts))
	for h, n := range counts {
		scores[h] = float64(n) / total
	}
	f.scores = scores

	top := TopWindows(f.scores, f.settings.NumberOfWindows)
	if !slices.Equal(f.top, top) {
		f.top = top
		f.logger.Debug("order changed", zap.Int("events", len(f.events)))
		f.changed.notify()
	}
}

func (f *Frequency) setup(records []window.Record) {
	if len(records) == 0 {
		return
	}
	active := records[0]
	f.events = append(f.events, focusEvent{handle: active.Handle, at: eventTime(active, f.now)})
	f.scores = ScoreMap{active.Handle: 1}
	f.top = []window.Handle{active.Handle}
}

func (f *Frequency) onOpenedOrFocused(record window.Record) {
	if _, ok := f.closed[record.Handle]; ok {
		// Reopened before the next tick: forget the history from before the close.
		f.events = slices.DeleteFunc(f.events, func(ev focusEvent) bool {
			return ev.handle == record.Handle
		})
		delete(f.closed, record.Handle)
	}
	f.events = append(f.events, focusEvent{handle: record.Handle, at: eventTime(record, f.now)})
}

func (f *Frequency) onClosedOrMinimized(record window.Record) {
	f.closed[record.Handle] = struct{}{}
}

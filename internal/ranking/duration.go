package ranking

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/focusrank/focusrank/pkg/window"
)

// Duration scores a window by the share of the trailing timeframe during which
// it held focus.
//
// Focus is kept as an ordered list of spans: a span starts at a focus event and
// ends at the next span's start, or now for the last one. Each interval only
// the part of a span that left the timeframe since the previous poll and the
// part that was added since the previous poll are applied to the score, so the
// cost of a tick does not depend on how long a window has been focused.
type Duration struct {
	settings Settings
	now      func() time.Time
	logger   *zap.Logger

	scores   ScoreMap
	spans    []focusSpan
	closed   map[window.Handle]struct{}
	top      []window.Handle
	lastPoll time.Time

	changed notifier
}

type focusSpan struct {
	handle window.Handle
	start  time.Time
}

// NewDuration creates the model and subscribes it to hub
func NewDuration(hub *window.Hub, settings Settings, opts ...Option) *Duration {
	o := newOptions(opts)
	d := &Duration{
		settings: settings,
		now:      o.now,
		logger:   o.logger.Named("duration"),
		scores:   make(ScoreMap),
		closed:   make(map[window.Handle]struct{}),
	}
	hub.OnSetup(d.setup)
	hub.OnOpenedOrFocused(d.onOpenedOrFocused)
	hub.OnClosedOrMinimized(d.onClosedOrMinimized)
	return d
}

// Name identifies the model in detailed scores and metrics
func (d *Duration) Name() string {
	return "Duration"
}

// GetScores returns a copy of the current scores
func (d *Duration) GetScores() ScoreMap {
	return d.scores.Clone()
}

// OnScoreChanged registers fn to be called when the top windows change
func (d *Duration) OnScoreChanged(fn func()) {
	d.changed.subscribe(fn)
}

// OnInterval advances the timeframe to now and applies the score changes
func (d *Duration) OnInterval() {
	now := d.now()
	cutoff := now.Add(-d.settings.DurationTimeframe)
	lastPoll := d.lastPoll
	if lastPoll.IsZero() {
		lastPoll = now.Add(-d.settings.DurationInterval)
	}

	kept := d.spans[:0]
	for i, span := range d.spans {
		end := now
		if i+1 < len(d.spans) {
			end = d.spans[i+1].start
		}
		if end.Before(span.start) {
			end = span.start
		}

		var delta time.Duration
		if span.start.Before(cutoff) {
			delta -= minTime(end, cutoff).Sub(span.start)
		}
		if end.After(lastPoll) {
			delta += end.Sub(maxTime(span.start, lastPoll))
		}
		d.apply(span, delta, lastPoll)

		if !end.After(cutoff) {
			continue
		}
		if span.start.Before(cutoff) {
			span.start = cutoff
		}
		kept = append(kept, span)
	}
	d.spans = kept

	clear(d.closed)
	d.lastPoll = now

	top := TopWindows(d.scores, d.settings.NumberOfWindows)
	if !slices.Equal(d.top, top) {
		d.top = top
		d.logger.Debug("order changed", zap.Int("windows", len(d.scores)))
		d.changed.notify()
	}
}

func (d *Duration) apply(span focusSpan, delta time.Duration, lastPoll time.Time) {
	if delta == 0 {
		return
	}
	score, ok := d.scores[span.handle]
	if !ok {
		// Only spans that started since the last poll may create a score;
		// older spans of an unscored window belong to a window that closed.
		if span.start.Before(lastPoll) {
			return
		}
		if _, closed := d.closed[span.handle]; closed {
			return
		}
	}
	score += float64(delta) / float64(d.settings.DurationTimeframe)
	if score < ScoreEpsilon {
		delete(d.scores, span.handle)
		return
	}
	d.scores[span.handle] = score
}

func (d *Duration) setup(records []window.Record) {
	if len(records) == 0 {
		return
	}
	active := records[0]
	start := eventTime(active, d.now)
	d.spans = append(d.spans, focusSpan{handle: active.Handle, start: start})
	// the first poll measures from the seeded span, however late it fires
	d.lastPoll = start
}

func (d *Duration) onOpenedOrFocused(record window.Record) {
	start := eventTime(record, d.now)
	if n := len(d.spans); n > 0 && start.Before(d.spans[n-1].start) {
		start = d.spans[n-1].start
	}
	delete(d.closed, record.Handle)
	d.spans = append(d.spans, focusSpan{handle: record.Handle, start: start})
}

func (d *Duration) onClosedOrMinimized(record window.Record) {
	if _, ok := d.scores[record.Handle]; ok {
		delete(d.scores, record.Handle)
		return
	}
	d.closed[record.Handle] = struct{}{}
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

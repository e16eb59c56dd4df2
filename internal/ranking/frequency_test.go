package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/focusrank/focusrank/pkg/window"
)

func newTestFrequency(t *testing.T) (*Frequency, *window.Hub, *fakeClock, *int) {
	t.Helper()
	clock := newFakeClock()
	hub := window.NewHub()
	f := NewFrequency(hub, testSettings(), WithClock(clock.Now))
	calls := 0
	f.OnScoreChanged(func() { calls++ })
	return f, hub, clock, &calls
}

func TestFrequency_Empty(t *testing.T) {
	f, hub, _, calls := newTestFrequency(t)
	hub.Dispatch(setupEvent())
	f.OnInterval()
	assert.Empty(t, f.GetScores())
	assert.Zero(t, *calls)
}

func TestFrequency_Setup(t *testing.T) {
	f, hub, _, calls := newTestFrequency(t)
	hub.Dispatch(setupEvent(records(1, 2, 3)...))
	assertScores(t, ScoreMap{1: 1}, f.GetScores())
	assert.Zero(t, *calls)

	f.OnInterval()
	assertScores(t, ScoreMap{1: 1}, f.GetScores())
	assert.Zero(t, *calls)
}

func TestFrequency_Focus(t *testing.T) {
	f, hub, clock, calls := newTestFrequency(t)
	hub.Dispatch(setupEvent(records(1, 2)...))
	clock.Advance(intervalStep)
	hub.Dispatch(event(window.Focused, 2))
	clock.Advance(intervalStep)
	hub.Dispatch(event(window.Focused, 1))

	// scores only change on the tick
	assertScores(t, ScoreMap{1: 1}, f.GetScores())

	clock.Advance(intervalStep)
	f.OnInterval()
	assertScores(t, ScoreMap{1: 2.0 / 3, 2: 1.0 / 3}, f.GetScores())
	assert.Equal(t, 1, *calls)

	f.OnInterval()
	assert.Equal(t, 1, *calls, "unchanged order must not notify")
}

func TestFrequency_ScoresChangeWithoutOrderChange(t *testing.T) {
	f, hub, clock, calls := newTestFrequency(t)
	hub.Dispatch(setupEvent(records(1)...))
	hub.Dispatch(event(window.Focused, 2))
	hub.Dispatch(event(window.Focused, 1))
	f.OnInterval()
	assert.Equal(t, 1, *calls)

	clock.Advance(intervalStep)
	hub.Dispatch(event(window.Focused, 1))
	f.OnInterval()
	assertScores(t, ScoreMap{1: 0.75, 2: 0.25}, f.GetScores())
	assert.Equal(t, 1, *calls)
}

func TestFrequency_Ties(t *testing.T) {
	f, hub, _, _ := newTestFrequency(t)
	hub.Dispatch(setupEvent(records(7)...))
	hub.Dispatch(event(window.Focused, 3))
	hub.Dispatch(event(window.Focused, 5))
	hub.Dispatch(event(window.Focused, 1))
	f.OnInterval()

	scores := f.GetScores()
	assertScores(t, ScoreMap{1: 0.25, 3: 0.25, 5: 0.25, 7: 0.25}, scores)
	assert.Equal(t, []window.Handle{1, 3, 5}, TopWindows(scores, testSettings().NumberOfWindows))
}

func TestFrequency_Pruning(t *testing.T) {
	f, hub, clock, calls := newTestFrequency(t)
	settings := testSettings()

	hub.Dispatch(setupEvent(records(1)...))
	clock.Advance(intervalStep)
	hub.Dispatch(event(window.Focused, 2))
	clock.Advance(intervalStep)
	hub.Dispatch(event(window.Focused, 1))
	f.OnInterval()
	assertScores(t, ScoreMap{1: 2.0 / 3, 2: 1.0 / 3}, f.GetScores())
	assert.Equal(t, 1, *calls)

	// first two events fall out of the timeframe
	clock.Advance(settings.DurationTimeframe - time.Second)
	f.OnInterval()
	assertScores(t, ScoreMap{1: 1}, f.GetScores())
	assert.Equal(t, 2, *calls)

	clock.Advance(2 * time.Second)
	f.OnInterval()
	assert.Empty(t, f.GetScores())
	assert.Equal(t, 3, *calls)
}

func TestFrequency_Closed(t *testing.T) {
	f, hub, clock, calls := newTestFrequency(t)
	hub.Dispatch(setupEvent(records(1)...))
	clock.Advance(intervalStep)
	hub.Dispatch(event(window.Focused, 2))
	clock.Advance(intervalStep)
	hub.Dispatch(event(window.Focused, 1))
	f.OnInterval()
	assert.Equal(t, 1, *calls)

	hub.Dispatch(event(window.Closed, 2))
	assertScores(t, ScoreMap{1: 2.0 / 3, 2: 1.0 / 3}, f.GetScores())

	f.OnInterval()
	assertScores(t, ScoreMap{1: 1}, f.GetScores())
	assert.Equal(t, 2, *calls)
}

func TestFrequency_ReopenedBeforeTick(t *testing.T) {
	f, hub, clock, _ := newTestFrequency(t)
	hub.Dispatch(setupEvent(records(1)...))
	clock.Advance(intervalStep)
	hub.Dispatch(event(window.Focused, 2))
	hub.Dispatch(event(window.Focused, 2))
	hub.Dispatch(event(window.Minimized, 2))
	clock.Advance(intervalStep)
	hub.Dispatch(event(window.Focused, 2))
	f.OnInterval()

	assertScores(t, ScoreMap{1: 0.5, 2: 0.5}, f.GetScores())
}

func TestFrequency_ClosedUnknownWindow(t *testing.T) {
	f, hub, _, calls := newTestFrequency(t)
	hub.Dispatch(setupEvent(records(1)...))
	hub.Dispatch(event(window.Closed, 9))
	f.OnInterval()
	assertScores(t, ScoreMap{1: 1}, f.GetScores())
	assert.Zero(t, *calls)
}

func TestFrequency_RecordTimestamp(t *testing.T) {
	f, hub, clock, _ := newTestFrequency(t)
	hub.Dispatch(setupEvent(records(1)...))

	// an event stamped long ago is pruned on the next tick
	old := window.Event{Kind: window.Focused, Record: window.Record{
		Handle:    2,
		Timestamp: clock.Now().Add(-time.Hour),
	}}
	hub.Dispatch(old)
	f.OnInterval()
	assertScores(t, ScoreMap{1: 1}, f.GetScores())
}

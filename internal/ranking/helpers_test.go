package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/focusrank/focusrank/pkg/window"
)

const scoreDelta = 1e-9

var testStart = time.Date(2002, 2, 2, 14, 14, 14, 0, time.UTC)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: testStart}
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func testSettings() Settings {
	return Settings{
		NumberOfWindows:   3,
		DurationTimeframe: 10 * time.Minute,
		DurationInterval:  10 * time.Second,
	}
}

type stubModel struct {
	name    string
	scores  ScoreMap
	changed notifier
}

func (s *stubModel) Name() string {
	return s.name
}

func (s *stubModel) GetScores() ScoreMap {
	if s.scores == nil {
		panic("stub model has no scores")
	}
	return s.scores.Clone()
}

func (s *stubModel) OnScoreChanged(fn func()) {
	s.changed.subscribe(fn)
}

func (s *stubModel) set(scores ScoreMap) {
	s.scores = scores
	s.changed.notify()
}

func records(handles ...window.Handle) []window.Record {
	rs := make([]window.Record, len(handles))
	for i, h := range handles {
		rs[i] = window.Record{Handle: h}
	}
	return rs
}

func titled(h window.Handle, title string) window.Record {
	return window.Record{Handle: h, Title: title}
}

func event(kind window.EventKind, h window.Handle) window.Event {
	return window.Event{Kind: kind, Record: window.Record{Handle: h}}
}

func setupEvent(rs ...window.Record) window.Event {
	return window.Event{Kind: window.Setup, Records: rs}
}

func assertScores(t *testing.T, expected, actual ScoreMap) {
	t.Helper()
	if !assert.Len(t, actual, len(expected), "scores: %v", actual) {
		return
	}
	for h, want := range expected {
		got, ok := actual[h]
		if assert.True(t, ok, "missing score for %v in %v", h, actual) {
			assert.InDelta(t, want, got, scoreDelta, "score for %v", h)
		}
	}
}

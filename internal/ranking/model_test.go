package ranking

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/focusrank/focusrank/pkg/window"
)

func TestTopWindows(t *testing.T) {
	tests := []struct {
		name   string
		scores ScoreMap
		k      int
		want   []window.Handle
	}{
		{"empty", ScoreMap{}, 3, []window.Handle{}},
		{"descending", ScoreMap{1: 0.1, 2: 0.5, 3: 0.3}, 3, []window.Handle{2, 3, 1}},
		{"truncated", ScoreMap{1: 0.1, 2: 0.5, 3: 0.3}, 2, []window.Handle{2, 3}},
		{"ties by handle", ScoreMap{9: 1, 4: 1, 7: 1, 1: 0.5}, 3, []window.Handle{4, 7, 9}},
		{"zero scores kept", ScoreMap{5: 0, 2: 0, 3: 1}, 3, []window.Handle{3, 2, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TopWindows(tt.scores, tt.k))
		})
	}
}

func TestTopWindows_Deterministic(t *testing.T) {
	scores := ScoreMap{}
	for h := window.Handle(1); h <= 50; h++ {
		scores[h] = float64(h % 4)
	}
	first := TopWindows(scores, 10)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, TopWindows(scores, 10))
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr bool
	}{
		{"valid", func(s *Settings) {}, false},
		{"zero windows", func(s *Settings) { s.NumberOfWindows = 0 }, true},
		{"negative windows", func(s *Settings) { s.NumberOfWindows = -1 }, true},
		{"zero timeframe", func(s *Settings) { s.DurationTimeframe = 0 }, true},
		{"zero interval", func(s *Settings) { s.DurationInterval = 0 }, true},
		{"negative interval", func(s *Settings) { s.DurationInterval = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings()
			tt.modify(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidConfig), "error %v should wrap ErrInvalidConfig", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScoreMapClone(t *testing.T) {
	original := ScoreMap{1: 0.5}
	clone := original.Clone()
	clone[1] = 1
	clone[2] = 1
	assert.Equal(t, ScoreMap{1: 0.5}, original)
}

func TestEventTime(t *testing.T) {
	clock := newFakeClock()
	assert.Equal(t, testStart, eventTime(window.Record{Handle: 1}, clock.Now))

	stamped := testStart.Add(-time.Minute)
	assert.Equal(t, stamped, eventTime(window.Record{Handle: 1, Timestamp: stamped}, clock.Now))
}

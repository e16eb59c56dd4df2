// Package ranking scores open windows by predicted relevance.
//
// Each Model keeps its own ScoreMap, updated from window events delivered by a
// window.Hub and, for the time-window models, from a periodic tick. Core
// normalizes every model's scores, merges them with fixed weights and keeps the
// top windows. Nothing in this package is safe for concurrent use except the
// read accessors of Core: the owner must serialize event dispatch, ticks and
// Core recomputation on one goroutine.
package ranking

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/focusrank/focusrank/pkg/window"
)

// ScoreEpsilon is the distance from zero below which a score is treated as zero
const ScoreEpsilon = 1e-7

// ErrInvalidConfig is returned for settings that cannot produce a ranking
var ErrInvalidConfig = errors.New("invalid recommender configuration")

// ScoreMap maps windows to non-negative scores. A missing key means zero.
type ScoreMap map[window.Handle]float64

// Clone returns a copy of m
func (m ScoreMap) Clone() ScoreMap {
	c := make(ScoreMap, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Sum returns the sum of all scores
func (m ScoreMap) Sum() float64 {
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum
}

// Model is a single relevance signal
type Model interface {
	// Name identifies the model in score reports
	Name() string

	// GetScores returns a snapshot of the model's current scores
	GetScores() ScoreMap

	// OnScoreChanged registers fn to be called whenever the model's scores
	// change in a way that matters for the ranking
	OnScoreChanged(fn func())
}

// Settings are the fixed parameters shared by the models
type Settings struct {
	NumberOfWindows   int
	DurationTimeframe time.Duration
	DurationInterval  time.Duration
}

// Validate checks that the settings can produce a ranking
func (s Settings) Validate() error {
	if s.NumberOfWindows <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "number of windows must be positive, got %d", s.NumberOfWindows)
	}
	if s.DurationTimeframe <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "duration timeframe must be positive, got %v", s.DurationTimeframe)
	}
	if s.DurationInterval <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "duration interval must be positive, got %v", s.DurationInterval)
	}
	return nil
}

// TopWindows returns at most k handles ordered by descending score.
// Equal scores are ordered by ascending handle.
func TopWindows(scores ScoreMap, k int) []window.Handle {
	handles := make([]window.Handle, 0, len(scores))
	for h := range scores {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool {
		si, sj := scores[handles[i]], scores[handles[j]]
		if si != sj {
			return si > sj
		}
		return handles[i] < handles[j]
	})
	if len(handles) > k {
		handles = handles[:k]
	}
	return handles
}

// Option configures a model or Core
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *zap.Logger
}

func newOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock replaces time.Now as the source of the current time
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type notifier struct {
	fns []func()
}

func (n *notifier) subscribe(fn func()) {
	n.fns = append(n.fns, fn)
}

func (n *notifier) notify() {
	for _, fn := range n.fns {
		fn()
	}
}

// eventTime returns the record timestamp, or now when the source left it unset
func eventTime(record window.Record, now func() time.Time) time.Time {
	if record.Timestamp.IsZero() {
		return now()
	}
	return record.Timestamp
}

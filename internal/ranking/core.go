package ranking

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/focusrank/focusrank/pkg/window"
)

// MergedScoreName is the key of the merged scores in Scores.ByModel reports
const MergedScoreName = "Merged"

// ModelWeight pairs a model with its weight in the merged score
type ModelWeight struct {
	Model  Model
	Weight float64
}

// Scores is a snapshot of one recomputation. ByModel holds each model's
// normalized scores before weighting.
type Scores struct {
	Merged  ScoreMap
	ByModel map[string]ScoreMap
}

func (s Scores) clone() Scores {
	c := Scores{
		Merged:  s.Merged.Clone(),
		ByModel: make(map[string]ScoreMap, len(s.ByModel)),
	}
	for name, scores := range s.ByModel {
		c.ByModel[name] = scores.Clone()
	}
	return c
}

// Core merges the scores of all models and keeps the top windows.
//
// Recomputation happens on the goroutine that calls Start or triggers a model
// notification. GetScores, GetDetailedScores and GetTopWindows may be called
// from any goroutine.
type Core struct {
	k         int
	models    []ModelWeight
	weightSum float64
	logger    *zap.Logger

	mu     sync.RWMutex
	top    []window.Handle
	scores Scores

	windowsChanged []func([]window.Handle)
	scoreChanged   []func(Scores)
}

// NewCore creates a Core over models and subscribes to their notifications.
// It returns ErrInvalidConfig when k is not positive, a weight is negative or
// all weights are zero.
func NewCore(k int, models []ModelWeight, opts ...Option) (*Core, error) {
	if k <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "number of windows must be positive, got %d", k)
	}
	var weightSum float64
	for _, mw := range models {
		if mw.Weight < 0 {
			return nil, errors.Wrapf(ErrInvalidConfig, "weight of %s must not be negative, got %v", mw.Model.Name(), mw.Weight)
		}
		weightSum += mw.Weight
	}
	if weightSum <= 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "at least one model weight must be positive")
	}

	o := newOptions(opts)
	c := &Core{
		k:         k,
		models:    slices.Clone(models),
		weightSum: weightSum,
		logger:    o.logger.Named("core"),
		top:       []window.Handle{},
		scores:    Scores{Merged: make(ScoreMap), ByModel: make(map[string]ScoreMap)},
	}
	for _, mw := range c.models {
		mw.Model.OnScoreChanged(c.onScoreChanged)
	}
	return c, nil
}

// OnWindowsChanged registers fn to be called with the new top windows whenever
// their sequence changes
func (c *Core) OnWindowsChanged(fn func([]window.Handle)) {
	c.windowsChanged = append(c.windowsChanged, fn)
}

// OnScoreChanged registers fn to be called after every recomputation.
// The snapshot is shared between callbacks and must not be modified.
func (c *Core) OnScoreChanged(fn func(Scores)) {
	c.scoreChanged = append(c.scoreChanged, fn)
}

// Start computes the initial ranking and notifies every observer
func (c *Core) Start() {
	c.recompute(true)
}

// GetTopWindows returns the latest top windows, best first
func (c *Core) GetTopWindows() []window.Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.top)
}

// GetScores returns the latest merged scores
func (c *Core) GetScores() ScoreMap {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scores.Merged.Clone()
}

// GetDetailedScores returns the latest merged and per-model scores
func (c *Core) GetDetailedScores() Scores {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scores.clone()
}

func (c *Core) onScoreChanged() {
	c.recompute(false)
}

func (c *Core) recompute(force bool) {
	scores := c.merge()
	top := TopWindows(scores.Merged, c.k)

	c.mu.Lock()
	changed := force || !slices.Equal(c.top, top)
	c.top = top
	c.scores = scores
	c.mu.Unlock()

	for _, fn := range c.scoreChanged {
		fn(scores)
	}
	if !changed {
		return
	}
	c.logger.Debug("top windows changed", zap.Stringers("windows", top))
	for _, fn := range c.windowsChanged {
		fn(slices.Clone(top))
	}
}

func (c *Core) merge() Scores {
	scores := Scores{
		Merged:  make(ScoreMap),
		ByModel: make(map[string]ScoreMap, len(c.models)),
	}
	for _, mw := range c.models {
		if mw.Weight == 0 {
			continue
		}
		relativeWeight := mw.Weight / c.weightSum
		normalized := Normalize(mw.Model.GetScores())
		scores.ByModel[mw.Model.Name()] = normalized
		for h, score := range normalized {
			scores.Merged[h] += score * relativeWeight
		}
	}
	return scores
}

// Normalize scales scores so that they sum to 1. A map whose scores sum to
// zero is returned unchanged.
func Normalize(scores ScoreMap) ScoreMap {
	sum := scores.Sum()
	if sum == 0 {
		return scores.Clone()
	}
	normalized := make(ScoreMap, len(scores))
	for h, score := range scores {
		normalized[h] = score / sum
	}
	return normalized
}

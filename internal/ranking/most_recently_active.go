package ranking

import (
	"slices"

	"go.uber.org/zap"

	"github.com/focusrank/focusrank/pkg/window"
)

// MostRecentlyActive gives score 1 to the NumberOfWindows most recently
// focused windows and 0 to the rest.
//
// It only notifies when a window enters or leaves that set; reordering inside
// either side does not change any score.
type MostRecentlyActive struct {
	settings Settings
	logger   *zap.Logger

	windows []window.Handle

	changed notifier
}

// NewMostRecentlyActive creates the model and subscribes it to hub
func NewMostRecentlyActive(hub *window.Hub, settings Settings, opts ...Option) *MostRecentlyActive {
	o := newOptions(opts)
	m := &MostRecentlyActive{
		settings: settings,
		logger:   o.logger.Named("most_recently_active"),
	}
	hub.OnSetup(m.setup)
	hub.OnOpenedOrFocused(m.onOpenedOrFocused)
	hub.OnClosedOrMinimized(m.onClosedOrMinimized)
	return m
}

// Name identifies the model in detailed scores and metrics
func (m *MostRecentlyActive) Name() string {
	return "MostRecentlyActive"
}

// GetScores scores the first NumberOfWindows windows 1 and the rest 0
func (m *MostRecentlyActive) GetScores() ScoreMap {
	scores := make(ScoreMap, len(m.windows))
	for i, h := range m.windows {
		if i < m.settings.NumberOfWindows {
			scores[h] = 1
		} else {
			scores[h] = 0
		}
	}
	return scores
}

// OnScoreChanged registers fn to be called when the top windows may have changed
func (m *MostRecentlyActive) OnScoreChanged(fn func()) {
	m.changed.subscribe(fn)
}

// Windows returns the tracked windows, most recently active first
func (m *MostRecentlyActive) Windows() []window.Handle {
	return slices.Clone(m.windows)
}

func (m *MostRecentlyActive) setup(records []window.Record) {
	m.windows = m.windows[:0]
	for _, r := range records {
		if !slices.Contains(m.windows, r.Handle) {
			m.windows = append(m.windows, r.Handle)
		}
	}
}

func (m *MostRecentlyActive) onOpenedOrFocused(record window.Record) {
	index := slices.Index(m.windows, record.Handle)
	if index != -1 {
		m.windows = slices.Delete(m.windows, index, index+1)
	}
	m.windows = slices.Insert(m.windows, 0, record.Handle)
	if index == -1 || index >= m.settings.NumberOfWindows {
		m.logger.Debug("window entered top", zap.Stringer("window", record.Handle))
		m.changed.notify()
	}
}

func (m *MostRecentlyActive) onClosedOrMinimized(record window.Record) {
	index := slices.Index(m.windows, record.Handle)
	if index == -1 {
		return
	}
	m.windows = slices.Delete(m.windows, index, index+1)
	if index < m.settings.NumberOfWindows {
		m.logger.Debug("window left top", zap.Stringer("window", record.Handle))
		m.changed.notify()
	}
}

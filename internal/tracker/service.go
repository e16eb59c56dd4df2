package tracker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/focusrank/focusrank/internal/config"
	"github.com/focusrank/focusrank/internal/journal"
	"github.com/focusrank/focusrank/internal/metrics"
	"github.com/focusrank/focusrank/internal/models"
	"github.com/focusrank/focusrank/internal/ranking"
	"github.com/focusrank/focusrank/pkg/window"
)

const eventBuffer = 64

// ErrorSink stores errors the engine could not handle
type ErrorSink interface {
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// Service runs the recommender: it feeds source events to the models through
// the hub and drives the interval timer. Every handler runs on the goroutine
// that called Start.
type Service struct {
	config    *config.Config
	source    window.Source
	logger    *zap.Logger
	metrics   *metrics.Metrics
	errorSink ErrorSink
	journal   *journal.Recorder
	now       func() time.Time
	ticks     func(time.Duration) (<-chan time.Time, func())

	hub       *window.Hub
	cache     *WindowCache
	stack     *WindowStack
	duration  *ranking.Duration
	frequency *ranking.Frequency
	core      *ranking.Core

	mu      sync.RWMutex
	records map[window.Handle]window.Record

	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables the engine metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithErrorSink stores source errors in sink
func WithErrorSink(sink ErrorSink) Option {
	return func(s *Service) {
		s.errorSink = sink
	}
}

// WithJournal records every event and the ranking around it
func WithJournal(r *journal.Recorder) Option {
	return func(s *Service) {
		s.journal = r
	}
}

// WithClock replaces time.Now in the models
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// withTicks replaces the interval ticker
func withTicks(ticks func(time.Duration) (<-chan time.Time, func())) Option {
	return func(s *Service) {
		s.ticks = ticks
	}
}

// NewService builds the hub, the models and the Core from cfg
func NewService(cfg *config.Config, source window.Source, opts ...Option) (*Service, error) {
	s := &Service{
		config:   cfg,
		source:   source,
		logger:   zap.NewNop(),
		now:      time.Now,
		ticks:    tickerTicks,
		hub:      window.NewHub(),
		cache:    NewWindowCache(),
		stack:    NewWindowStack(),
		records:  make(map[window.Handle]window.Record),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	settings := cfg.Recommender.Settings()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	// the journal reads the stack before it follows the event
	if s.journal != nil {
		s.journal.Register(s.hub, s.stack)
	}
	s.stack.Subscribe(s.hub)

	modelOpts := []ranking.Option{ranking.WithClock(s.now), ranking.WithLogger(s.logger)}
	s.duration = ranking.NewDuration(s.hub, settings, modelOpts...)
	s.frequency = ranking.NewFrequency(s.hub, settings, modelOpts...)
	mra := ranking.NewMostRecentlyActive(s.hub, settings, modelOpts...)
	ts := ranking.NewTitleSimilarity(s.hub, modelOpts...)

	weights := cfg.Recommender.Weights
	core, err := ranking.NewCore(settings.NumberOfWindows, []ranking.ModelWeight{
		{Model: s.duration, Weight: weights.Duration},
		{Model: s.frequency, Weight: weights.Frequency},
		{Model: mra, Weight: weights.MostRecentlyActive},
		{Model: ts, Weight: weights.TitleSimilarity},
	}, modelOpts...)
	if err != nil {
		return nil, err
	}
	s.core = core

	if s.metrics != nil {
		for _, m := range []ranking.Model{s.duration, s.frequency, mra, ts} {
			counter := s.metrics.ModelNotifications.WithLabelValues(m.Name())
			m.OnScoreChanged(counter.Inc)
		}
	}
	core.OnScoreChanged(s.onScoreChanged)
	core.OnWindowsChanged(s.onWindowsChanged)

	return s, nil
}

func tickerTicks(d time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(d)
	return ticker.C, ticker.Stop
}

// Start runs the engine until ctx is cancelled or Stop is called
func (s *Service) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("tracker is already running")
	}
	defer s.running.Store(false)

	interval := s.config.Recommender.Settings().DurationInterval
	s.logger.Info("starting tracker",
		zap.String("display_server", s.source.GetDisplayServer()),
		zap.Duration("interval", interval),
		zap.Int("number_of_windows", s.config.Recommender.NumberOfWindows),
	)

	records, err := s.source.Windows()
	if err != nil {
		s.storeError(err)
		return errors.Wrap(err, "failed to list windows")
	}
	s.dispatch(window.Event{Kind: window.Setup, Records: records})
	s.core.Start()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan window.Event, eventBuffer)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- s.source.Watch(watchCtx, events)
	}()

	ticks, stopTicks := s.ticks(interval)
	defer stopTicks()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("tracker stopped by context")
			return ctx.Err()

		case <-s.stopChan:
			s.logger.Info("tracker stopped")
			return nil

		case ev := <-events:
			s.dispatch(ev)

		case <-ticks:
			s.duration.OnInterval()
			s.frequency.OnInterval()

		case err := <-watchErr:
			if err == nil || errors.Is(err, context.Canceled) {
				s.logger.Info("window source finished")
				return nil
			}
			s.storeError(err)
			return errors.Wrap(err, "window source failed")
		}
	}
}

// Stop ends a running Start
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// IsRunning reports whether Start is active
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// Core returns the ranking core
func (s *Service) Core() *ranking.Core {
	return s.core
}

// GetTopWindows returns the current recommendation. Safe from any goroutine.
func (s *Service) GetTopWindows() []window.Handle {
	return s.core.GetTopWindows()
}

// GetDetailedScores returns the latest merged and per-model scores. Safe from
// any goroutine.
func (s *Service) GetDetailedScores() ranking.Scores {
	return s.core.GetDetailedScores()
}

// Hub returns the event hub. Callbacks must be registered before Start.
func (s *Service) Hub() *window.Hub {
	return s.hub
}

// Lookup returns the last known record of h. Safe from any goroutine.
func (s *Service) Lookup(h window.Handle) (window.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[h]
	return r, ok
}

// TrackedWindows returns the number of open windows. Safe from any goroutine.
func (s *Service) TrackedWindows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Service) dispatch(raw window.Event) {
	ev, ok := s.cache.Apply(raw)
	if !ok {
		s.logger.Debug("dropped window event",
			zap.Stringer("kind", raw.Kind),
			zap.Stringer("handle", raw.Record.Handle),
		)
		return
	}
	s.updateRecords(ev)
	if s.metrics != nil {
		s.metrics.WindowEvents.WithLabelValues(ev.Kind.String()).Inc()
		s.metrics.TrackedWindows.Set(float64(s.cache.Len()))
	}
	s.hub.Dispatch(ev)
}

func (s *Service) updateRecords(ev window.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Kind {
	case window.Setup:
		clear(s.records)
		for _, r := range ev.Records {
			if cached, ok := s.cache.Get(r.Handle); ok {
				s.records[r.Handle] = cached
			}
		}
	case window.Closed:
		delete(s.records, ev.Record.Handle)
	default:
		s.records[ev.Record.Handle] = ev.Record
	}
}

func (s *Service) onScoreChanged(scores ranking.Scores) {
	if s.journal != nil {
		s.journal.SetScores(scores)
	}
	if s.metrics != nil {
		s.metrics.Recomputations.Inc()
	}
}

func (s *Service) onWindowsChanged(top []window.Handle) {
	if s.journal != nil {
		s.journal.SetTopWindows(top)
	}
	if s.metrics != nil {
		s.metrics.WindowsChanged.Inc()
	}
}

func (s *Service) storeError(err error) {
	if s.metrics != nil {
		s.metrics.SourceErrors.Inc()
	}
	if s.errorSink == nil {
		s.logger.Error("window source error", zap.Error(err))
		return
	}
	errorLog := &models.ErrorLog{
		Timestamp: s.now(),
		Component: "tracker",
		ErrorMsg:  err.Error(),
	}
	if dbErr := s.errorSink.CreateErrorLog(errorLog); dbErr != nil {
		s.logger.Error("failed to store error in database", zap.Error(dbErr), zap.NamedError("original", err))
		return
	}
	s.logger.Error("error logged to database", zap.Error(err))
}

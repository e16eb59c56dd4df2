// Package journal records window events together with the ranking that was
// current when they happened.
package journal

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/focusrank/focusrank/internal/metrics"
	"github.com/focusrank/focusrank/internal/models"
	"github.com/focusrank/focusrank/internal/ranking"
	"github.com/focusrank/focusrank/pkg/window"
)

const (
	maxBatch      = 64
	pruneInterval = time.Hour
)

// Store persists journal entries
type Store interface {
	CreateBatch(events []*models.WindowEvent) error
	DeleteOldEvents(before time.Time) (int64, error)
}

// ZOrder reports the stack position of a window, -1 when unknown
type ZOrder interface {
	ZIndex(h window.Handle) int
}

// Recorder turns hub events into journal entries.
//
// The hub callbacks and SetScores/SetTopWindows run on the engine goroutine
// and only enqueue; Run writes the queue to the store on its own goroutine.
// When the queue is full new entries are dropped and counted.
type Recorder struct {
	store     Store
	sessionID string
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	retention time.Duration

	queue   chan *models.WindowEvent
	dropped atomic.Int64

	// engine goroutine state
	zorder ZOrder
	scores ranking.ScoreMap
	ranks  []window.Handle
}

// Option configures a Recorder
type Option func(*Recorder)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics enables the journal counters
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithClock replaces time.Now for entries whose record has no timestamp
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithRetention makes Run delete entries older than d every hour
func WithRetention(d time.Duration) Option {
	return func(r *Recorder) {
		r.retention = d
	}
}

// NewRecorder creates a recorder with a fresh session id and a queue of
// queueSize entries
func NewRecorder(store Store, queueSize int, opts ...Option) *Recorder {
	if queueSize < 1 {
		queueSize = 1
	}
	r := &Recorder{
		store:     store,
		sessionID: uuid.NewString(),
		logger:    zap.NewNop(),
		now:       time.Now,
		queue:     make(chan *models.WindowEvent, queueSize),
		scores:    make(ranking.ScoreMap),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("journal")
	return r
}

// SessionID identifies the entries of this run
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Dropped returns the number of entries lost to a full queue
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Register subscribes the recorder to hub. zorder is read when an event
// arrives, so registering before the stack follows the hub records the
// z-order the user saw when acting.
func (r *Recorder) Register(hub *window.Hub, zorder ZOrder) {
	r.zorder = zorder
	hub.OnSetup(r.onSetup)
	hub.OnOpened(r.onOpened)
	hub.OnFocused(r.onFocused)
	hub.OnClosed(r.onClosed)
	hub.OnMinimized(r.onMinimized)
}

// SetScores stores the latest merged scores
func (r *Recorder) SetScores(scores ranking.Scores) {
	r.scores = scores.Merged.Clone()
}

// SetTopWindows stores the latest top windows
func (r *Recorder) SetTopWindows(top []window.Handle) {
	r.ranks = top
}

func (r *Recorder) onSetup(records []window.Record) {
	for i, record := range records {
		r.enqueue(r.entry(models.EventInitial, record, i, false))
	}
}

func (r *Recorder) onOpened(record window.Record) {
	r.enqueue(r.entry(models.EventOpen, record, r.zIndex(record.Handle), false))
}

func (r *Recorder) onFocused(record window.Record) {
	if _, ok := r.scores[record.Handle]; ok {
		r.enqueue(r.entry(models.EventFocus, record, r.zIndex(record.Handle), true))
		return
	}
	r.enqueue(r.entry(models.EventOpen, record, r.zIndex(record.Handle), false))
}

func (r *Recorder) onClosed(record window.Record) {
	if _, ok := r.scores[record.Handle]; !ok {
		return
	}
	r.enqueue(r.entry(models.EventClose, record, r.zIndex(record.Handle), true))
	delete(r.scores, record.Handle)
}

func (r *Recorder) onMinimized(record window.Record) {
	if _, ok := r.scores[record.Handle]; !ok {
		return
	}
	r.enqueue(r.entry(models.EventMinimize, record, r.zIndex(record.Handle), true))
}

func (r *Recorder) zIndex(h window.Handle) int {
	if r.zorder == nil {
		return -1
	}
	return r.zorder.ZIndex(h)
}

func (r *Recorder) entry(event string, record window.Record, zIndex int, ranked bool) *models.WindowEvent {
	ts := record.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}
	e := &models.WindowEvent{
		SessionID: r.sessionID,
		Timestamp: ts,
		Event:     event,
		Handle:    uint32(record.Handle),
		AppName:   record.AppName,
		Title:     record.Title,
		ZIndex:    zIndex,
		Rank:      -1,
		Score:     -1,
	}
	if ranked {
		e.Rank = slices.Index(r.ranks, record.Handle)
		e.Score = r.scores[record.Handle]
	}
	return e
}

func (r *Recorder) enqueue(e *models.WindowEvent) {
	select {
	case r.queue <- e:
	default:
		r.dropped.Add(1)
		if r.metrics != nil {
			r.metrics.JournalDropped.Inc()
		}
		r.logger.Warn("journal queue full, entry dropped",
			zap.String("event", e.Event),
			zap.Uint32("handle", e.Handle),
		)
	}
}

// Run writes queued entries until ctx is cancelled, then flushes what is left
func (r *Recorder) Run(ctx context.Context) error {
	var prune <-chan time.Time
	if r.retention > 0 {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		prune = ticker.C
		r.prune()
	}

	r.logger.Info("journal started", zap.String("session", r.sessionID))
	for {
		select {
		case <-ctx.Done():
			r.write(r.drain(nil, len(r.queue)))
			r.logger.Info("journal stopped", zap.Int64("dropped", r.Dropped()))
			return nil

		case e := <-r.queue:
			r.write(r.drain([]*models.WindowEvent{e}, maxBatch))

		case <-prune:
			r.prune()
		}
	}
}

// drain appends queued entries to batch without blocking
func (r *Recorder) drain(batch []*models.WindowEvent, limit int) []*models.WindowEvent {
	for len(batch) < limit {
		select {
		case e := <-r.queue:
			batch = append(batch, e)
		default:
			return batch
		}
	}
	return batch
}

func (r *Recorder) write(batch []*models.WindowEvent) {
	if len(batch) == 0 {
		return
	}
	if err := r.store.CreateBatch(batch); err != nil {
		if r.metrics != nil {
			r.metrics.JournalErrors.Inc()
		}
		r.logger.Error("failed to write journal", zap.Int("entries", len(batch)), zap.Error(err))
		return
	}
	if r.metrics != nil {
		r.metrics.JournalWritten.Add(float64(len(batch)))
	}
}

func (r *Recorder) prune() {
	deleted, err := r.store.DeleteOldEvents(r.now().Add(-r.retention))
	if err != nil {
		r.logger.Error("failed to prune journal", zap.Error(err))
		return
	}
	if deleted > 0 {
		r.logger.Info("pruned journal", zap.Int64("deleted", deleted))
	}
}

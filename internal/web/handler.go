package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/focusrank/focusrank/internal/config"
	"github.com/focusrank/focusrank/internal/metrics"
	"github.com/focusrank/focusrank/internal/models"
	"github.com/focusrank/focusrank/internal/ranking"
	"github.com/focusrank/focusrank/internal/reporter"
	"github.com/focusrank/focusrank/pkg/utils"
)

const defaultEventLimit = 100

// Engine is the running recommender
type Engine interface {
	reporter.Ranking
	reporter.Windows
	IsRunning() bool
}

// Store reads the journal
type Store interface {
	reporter.HistoryStore
	GetEventsSince(since time.Time) ([]*models.WindowEvent, error)
	GetLatest() (*models.WindowEvent, error)
}

// ScoresResponse is the body of /api/scores
type ScoresResponse struct {
	Merged  ranking.ScoreMap            `json:"merged"`
	ByModel map[string]ranking.ScoreMap `json:"by_model"`
	Top     []uint32                    `json:"top"`
}

type Handler struct {
	config      *config.Config
	engine      Engine
	repo        Store
	reporter    *reporter.Reporter
	broadcaster *Broadcaster
	metrics     *metrics.Metrics
	logger      *zap.Logger
	startedAt   time.Time
}

// Option configures a Handler
type Option func(*Handler)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics serves m on /metrics and counts WebSocket traffic
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func NewHandler(cfg *config.Config, engine Engine, repo Store, opts ...Option) *Handler {
	h := &Handler{
		config:    cfg,
		engine:    engine,
		repo:      repo,
		reporter:  reporter.New(repo),
		logger:    zap.NewNop(),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("web")
	h.broadcaster = NewBroadcaster(h.ranking, h.logger, h.metrics)
	return h
}

// Broadcaster returns the WebSocket broadcaster
func (h *Handler) Broadcaster() *Broadcaster {
	return h.broadcaster
}

// Routes returns the API router
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/top", h.handleTop).Methods(http.MethodGet)
	api.HandleFunc("/scores", h.handleScores).Methods(http.MethodGet)
	api.HandleFunc("/events", h.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/events/latest", h.handleLatestEvent).Methods(http.MethodGet)
	api.HandleFunc("/history", h.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/ws", h.broadcaster.ServeWS)
	r.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)

	return r
}

func (h *Handler) ranking() *models.RankingReport {
	return h.reporter.GenerateRanking(h.engine, h.engine)
}

func (h *Handler) handleTop(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.ranking())
}

func (h *Handler) handleScores(w http.ResponseWriter, r *http.Request) {
	scores := h.engine.GetDetailedScores()
	top := h.engine.GetTopWindows()

	resp := ScoresResponse{
		Merged:  scores.Merged,
		ByModel: scores.ByModel,
		Top:     make([]uint32, len(top)),
	}
	for i, handle := range top {
		resp.Top[i] = uint32(handle)
	}
	respondJSON(w, resp)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := defaultEventLimit
	if s := query.Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	since := time.Now().Add(-24 * time.Hour)
	if periodType := query.Get("period"); periodType != "" {
		period, err := h.reporter.Period(periodType)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		since = period.Start
	}

	events, err := h.repo.GetEventsSince(since)
	if err != nil {
		h.logger.Error("failed to fetch events", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to fetch events")
		return
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}

	respondJSON(w, events)
}

func (h *Handler) handleLatestEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.repo.GetLatest()
	if err != nil {
		h.logger.Error("failed to fetch latest event", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to fetch latest event")
		return
	}

	if event == nil {
		respondError(w, http.StatusNotFound, "no events found")
		return
	}

	respondJSON(w, event)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	if _, err := h.reporter.Period(periodType); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.reporter.GenerateHistory(periodType)
	if err != nil {
		h.logger.Error("failed to generate history", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to generate history")
		return
	}

	respondJSON(w, report)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec := h.config.Recommender
	settings := rec.Settings()

	status := map[string]any{
		"running":            h.engine.IsRunning(),
		"started_at":         h.startedAt.Format(time.RFC3339),
		"uptime":             utils.FormatRoundedUnit(time.Since(h.startedAt)),
		"tracked_windows":    h.engine.TrackedWindows(),
		"number_of_windows":  rec.NumberOfWindows,
		"duration_timeframe": settings.DurationTimeframe.String(),
		"duration_interval":  settings.DurationInterval.String(),
		"weights":            rec.Weights,
		"database_path":      h.config.Database.Path,
		"journal_enabled":    h.config.Journal.Enabled,
	}

	if latest, err := h.repo.GetLatest(); err == nil && latest != nil {
		status["latest_event"] = map[string]any{
			"event":     latest.Event,
			"app_name":  latest.AppName,
			"title":     latest.Title,
			"timestamp": latest.Timestamp,
		}
	}

	respondJSON(w, status)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(reporter.FormatRankingText(h.ranking())))
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

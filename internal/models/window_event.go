package models

import (
	"time"

	"gorm.io/gorm"
)

// Journal event names
const (
	EventInitial  = "Initial"
	EventOpen     = "Open"
	EventFocus    = "Focus"
	EventClose    = "Close"
	EventMinimize = "Minimize"
)

// WindowEvent is one journal entry. Rank and Score are -1 for windows that
// had no merged score when the event happened.
type WindowEvent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	SessionID string         `gorm:"not null;index" json:"session_id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Event     string         `gorm:"not null;index" json:"event"`
	Handle    uint32         `gorm:"not null;index" json:"handle"`
	AppName   string         `gorm:"not null" json:"app_name"`
	Title     string         `gorm:"not null" json:"title"`
	ZIndex    int            `gorm:"not null" json:"z_index"`
	Rank      int            `gorm:"not null" json:"rank"`
	Score     float64        `gorm:"not null" json:"score"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// WindowSummary aggregates the journal of one window
type WindowSummary struct {
	Handle     uint32  `json:"handle"`
	AppName    string  `json:"app_name"`
	FocusCount int     `json:"focus_count"`
	Percentage float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

// HistoryReport summarizes the journal over a period
type HistoryReport struct {
	Period      ReportPeriod    `json:"period"`
	Windows     []WindowSummary `json:"windows"`
	TotalFocus  int             `json:"total_focus"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// RankedWindow is one entry of the current recommendation
type RankedWindow struct {
	Rank    int                `json:"rank"`
	Handle  uint32             `json:"handle"`
	Title   string             `json:"title"`
	AppName string             `json:"app_name"`
	Score   float64            `json:"score"`
	ByModel map[string]float64 `json:"by_model,omitempty"`
}

// RankingReport is a snapshot of the recommendation
type RankingReport struct {
	Windows     []RankedWindow `json:"windows"`
	Tracked     int            `json:"tracked"`
	GeneratedAt time.Time      `json:"generated_at"`
}

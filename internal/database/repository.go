package database

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/focusrank/focusrank/internal/models"
)

// Repository handles all database operations for the window journal
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new window event into the database
func (r *Repository) Create(event *models.WindowEvent) error {
	event.AppName = strings.ToLower(event.AppName)
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert window event")
	}
	return nil
}

// CreateBatch inserts events in one transaction
func (r *Repository) CreateBatch(events []*models.WindowEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, event := range events {
		event.AppName = strings.ToLower(event.AppName)
	}
	result := r.db.Create(events)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to insert %d window events", len(events))
	}
	return nil
}

// GetEventsSince retrieves all window events since a given time, oldest first
func (r *Repository) GetEventsSince(since time.Time) ([]*models.WindowEvent, error) {
	var events []*models.WindowEvent
	result := r.db.Where("timestamp >= ?", since).Order("timestamp ASC, id ASC").Find(&events)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query window events")
	}

	return events, nil
}

// GetEventCountsSince returns per-window counts of Open and Focus events since
// a given time, most focused first
func (r *Repository) GetEventCountsSince(since time.Time) ([]models.WindowSummary, error) {
	var summaries []models.WindowSummary

	result := r.db.Model(&models.WindowEvent{}).
		Select("handle, app_name, COUNT(*) as focus_count").
		Where("timestamp >= ? AND event IN ?", since, []string{models.EventOpen, models.EventFocus}).
		Group("handle, app_name").
		Order("focus_count DESC, handle ASC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query window summary")
	}

	return summaries, nil
}

// DeleteOldEvents deletes events older than a specified date (soft delete)
func (r *Repository) DeleteOldEvents(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.WindowEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old events")
	}
	return result.RowsAffected, nil
}

// GetLatest retrieves the most recent window event, or nil when the journal
// is empty
func (r *Repository) GetLatest() (*models.WindowEvent, error) {
	var event models.WindowEvent
	result := r.db.Order("timestamp DESC, id DESC").First(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest event")
	}
	return &event, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// GetRecentErrors returns the latest error logs, newest first
func (r *Repository) GetRecentErrors(limit int) ([]models.ErrorLog, error) {
	var logs []models.ErrorLog
	result := r.db.Order("timestamp DESC, id DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// Clear removes all window events from the database
func (r *Repository) Clear() error {
	result := r.db.Exec("DELETE FROM window_events")
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear window events")
	}
	return nil
}

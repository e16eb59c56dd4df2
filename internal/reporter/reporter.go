package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/focusrank/focusrank/internal/models"
	"github.com/focusrank/focusrank/internal/ranking"
	"github.com/focusrank/focusrank/pkg/window"
)

// HistoryStore reads journal aggregates
type HistoryStore interface {
	GetEventCountsSince(since time.Time) ([]models.WindowSummary, error)
}

// Ranking is the live recommendation
type Ranking interface {
	GetTopWindows() []window.Handle
	GetDetailedScores() ranking.Scores
}

// Windows resolves handles to their last known record
type Windows interface {
	Lookup(h window.Handle) (window.Record, bool)
	TrackedWindows() int
}

// Reporter handles report generation
type Reporter struct {
	repo HistoryStore
	now  func() time.Time
}

// New creates a new reporter
func New(repo HistoryStore) *Reporter {
	return &Reporter{
		repo: repo,
		now:  time.Now,
	}
}

// GenerateHistory summarizes the journal for the specified period
func (r *Reporter) GenerateHistory(periodType string) (*models.HistoryReport, error) {
	period, err := r.Period(periodType)
	if err != nil {
		return nil, err
	}

	summaries, err := r.repo.GetEventCountsSince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get window summary")
	}

	var total int
	for _, s := range summaries {
		total += s.FocusCount
	}
	if total > 0 {
		for i := range summaries {
			summaries[i].Percentage = float64(summaries[i].FocusCount) / float64(total) * 100.0
		}
	}

	return &models.HistoryReport{
		Period:      *period,
		Windows:     summaries,
		TotalFocus:  total,
		GeneratedAt: r.now(),
	}, nil
}

// GenerateRanking combines the current top windows with their records and
// per-model scores
func (r *Reporter) GenerateRanking(rank Ranking, windows Windows) *models.RankingReport {
	top := rank.GetTopWindows()
	scores := rank.GetDetailedScores()

	report := &models.RankingReport{
		Windows:     make([]models.RankedWindow, 0, len(top)),
		Tracked:     windows.TrackedWindows(),
		GeneratedAt: r.now(),
	}
	for i, h := range top {
		entry := models.RankedWindow{
			Rank:    i + 1,
			Handle:  uint32(h),
			Score:   scores.Merged[h],
			ByModel: make(map[string]float64, len(scores.ByModel)),
		}
		if record, ok := windows.Lookup(h); ok {
			entry.Title = record.Title
			entry.AppName = record.AppName
		}
		for name, modelScores := range scores.ByModel {
			entry.ByModel[name] = modelScores[h]
		}
		report.Windows = append(report.Windows, entry)
	}
	return report
}

// Period calculates the time range for the report
func (r *Reporter) Period(periodType string) (*models.ReportPeriod, error) {
	now := r.now()
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, errors.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatHistoryText formats the history report as a table
func FormatHistoryText(report *models.HistoryReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Window History - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Total Activations: %d\n\n", report.TotalFocus)

	if len(report.Windows) == 0 {
		b.WriteString("No activity recorded for this period.\n")
		return b.String()
	}

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HANDLE\tAPPLICATION\tACTIVATIONS\tPERCENT")
	for _, s := range report.Windows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f%%\n",
			window.Handle(s.Handle), truncate(s.AppName, 30), s.FocusCount, s.Percentage)
	}
	w.Flush()
	return b.String()
}

// FormatRankingText formats the ranking as a table
func FormatRankingText(report *models.RankingReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommended windows (%d tracked)\n\n", report.Tracked)

	if len(report.Windows) == 0 {
		b.WriteString("No windows ranked yet.\n")
		return b.String()
	}

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tHANDLE\tAPPLICATION\tTITLE\tSCORE")
	for _, entry := range report.Windows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.3f\n",
			entry.Rank, window.Handle(entry.Handle), truncate(entry.AppName, 20), truncate(entry.Title, 50), entry.Score)
	}
	w.Flush()
	return b.String()
}

// FormatJSON formats a report as indented JSON
func FormatJSON(report any) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}

// truncate shortens s to maxLen runes
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
